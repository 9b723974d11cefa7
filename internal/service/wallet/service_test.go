package wallet

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"transfers-client/internal/chain"
	"transfers-client/internal/contract"
	"transfers-client/internal/event"
	"transfers-client/internal/keymaterial"
	"transfers-client/internal/service/balance"
	"transfers-client/pkg/address"
	"transfers-client/pkg/crypto_util"
	"transfers-client/pkg/errno"

	"github.com/btcsuite/btcd/btcec/v2"
	ethevent "github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testContract = "wasm1contract"

type execCall struct {
	sender string
	msg    string
	funds  string
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []execCall
	err   error
}

func (e *fakeExecutor) ExecuteContract(_ context.Context, sender, _ string, msg json.Marshaler, funds chain.Coins) (*chain.Receipt, error) {
	body, _ := msg.MarshalJSON()
	e.mu.Lock()
	e.calls = append(e.calls, execCall{sender: sender, msg: string(body), funds: funds.String()})
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return &chain.Receipt{TxHash: "ABCD"}, nil
}

func (e *fakeExecutor) last(t *testing.T) execCall {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	require.NotEmpty(t, e.calls)
	return e.calls[len(e.calls)-1]
}

type fakeResolver struct{ addr string }

func (r fakeResolver) KeyAddress(context.Context, string) (string, error) {
	if r.addr == "" {
		return "", errors.New("key not found")
	}
	return r.addr, nil
}

// parkedCorrelator subscribes and never delivers.
type parkedCorrelator struct{}

func (parkedCorrelator) Subscribe(_ context.Context, _ string, _ event.Handler) (ethevent.Subscription, error) {
	return ethevent.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	}), nil
}

type harness struct {
	svc     *Service
	exec    *fakeExecutor
	keys    *keymaterial.Manager
	flow    *balance.Flow
	enclave *btcec.PrivateKey
	alice   string
	bob     string
}

func accountAddress(t *testing.T, gen *address.Bech32Generator) string {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := gen.PubKeyToAddress(priv.PubKey().SerializeCompressed())
	require.NoError(t, err)
	return addr
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	enclave, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	gen := address.NewBech32Generator("wasm")
	h := &harness{
		exec:    &fakeExecutor{},
		keys:    keymaterial.NewManager(keymaterial.NewMemoryStore(), zap.NewNop()),
		enclave: enclave,
		alice:   accountAddress(t, gen),
		bob:     accountAddress(t, gen),
	}
	h.flow = balance.NewFlow(balance.Config{Contract: testContract, ResponseTimeout: 5 * time.Second},
		h.keys, h.exec, nil, parkedCorrelator{}, balance.Options{Logger: zap.NewNop()})
	h.svc = NewService(Config{
		Contract:      testContract,
		Denom:         "ucosm",
		EnclavePubKey: "0x" + hex.EncodeToString(enclave.PubKey().SerializeCompressed()),
		KeyName:       "main",
	}, h.keys, h.exec, h.flow, fakeResolver{addr: h.alice}, gen, nil, zap.NewNop())
	return h
}

func TestConnectResolvesKeyringAccount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	account, err := h.svc.Connect(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, h.alice, account)
	assert.Equal(t, h.alice, h.svc.Snapshot().Account)

	mnemonic, err := h.svc.Mnemonic(ctx)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(mnemonic), 24)

	pub, err := h.svc.PublicKey(ctx)
	require.NoError(t, err)
	assert.Len(t, pub, 130)

	// reconnecting keeps the mnemonic
	_, err = h.svc.Connect(ctx, h.bob)
	require.NoError(t, err)
	again, err := h.svc.Mnemonic(ctx)
	require.NoError(t, err)
	assert.Equal(t, mnemonic, again)
	assert.Equal(t, h.bob, h.svc.Snapshot().Account)
}

func TestConnectRejectsBadAccount(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Connect(context.Background(), "cosmos1notours")
	assert.True(t, errors.Is(err, errno.ErrInvalidAddress))
	assert.Empty(t, h.svc.Snapshot().Account)
}

func TestDisconnectClearsMnemonic(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Connect(ctx, h.alice)
	require.NoError(t, err)

	require.NoError(t, h.svc.Disconnect(ctx))
	assert.Empty(t, h.svc.Snapshot().Account)
	_, err = h.svc.Mnemonic(ctx)
	assert.True(t, errors.Is(err, errno.ErrMnemonicNotFound))
	_, err = h.svc.PublicKey(ctx)
	assert.True(t, errors.Is(err, errno.ErrKeyDerivation))
}

func TestGuardedWhileBalanceInFlight(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Connect(ctx, h.alice)
	require.NoError(t, err)
	before, err := h.svc.Mnemonic(ctx)
	require.NoError(t, err)

	reqCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, err := h.svc.RequestBalance(reqCtx)
		done <- err
	}()
	require.Eventually(t, func() bool {
		return h.svc.Snapshot().State == balance.AwaitingResponse
	}, 2*time.Second, 5*time.Millisecond)

	legalWinner := "legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth title"
	assert.True(t, errors.Is(h.svc.ImportMnemonic(ctx, legalWinner), errno.ErrBusy))
	assert.True(t, errors.Is(h.svc.Disconnect(ctx), errno.ErrBusy))

	after, err := h.svc.Mnemonic(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	cancel()
	<-done
	require.NoError(t, h.svc.ImportMnemonic(ctx, legalWinner))
	pub, err := h.svc.PublicKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "04142715675faf8da1ecc4d51e0b9e539fa0d52fdd96ed60dbe99adb15d6b05ad90bb325eaeeb09c99bc600eacef8a1b50f39a7c85dbb5d0ec7dde9a2f6458e32f", pub)
}

func TestImportMnemonicInvalid(t *testing.T) {
	h := newHarness(t)
	err := h.svc.ImportMnemonic(context.Background(), "not a real phrase")
	assert.True(t, errors.Is(err, errno.ErrInvalidMnemonicFormat))
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.Deposit(ctx, "100")
	assert.True(t, errors.Is(err, errno.ErrNotConnected))

	_, err = h.svc.Connect(ctx, h.alice)
	require.NoError(t, err)

	receipt, err := h.svc.Deposit(ctx, " 100 ")
	require.NoError(t, err)
	assert.Equal(t, "ABCD", receipt.TxHash)
	assert.Equal(t, execCall{sender: h.alice, msg: `"deposit"`, funds: "100ucosm"}, h.exec.last(t))

	for _, bad := range []string{"0", "-5", "1.5", "abc", ""} {
		_, err := h.svc.Deposit(ctx, bad)
		assert.True(t, errors.Is(err, errno.ErrInvalidAmount), bad)
	}
}

func TestTransferEncryptsForEnclave(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Connect(ctx, h.alice)
	require.NoError(t, err)

	_, err = h.svc.Transfer(ctx, h.bob, "25")
	require.NoError(t, err)

	call := h.exec.last(t)
	assert.Equal(t, h.alice, call.sender)
	assert.Empty(t, call.funds)

	var msg struct {
		TransferRequest struct {
			Ciphertext string `json:"ciphertext"`
			Digest     string `json:"digest"`
		} `json:"transfer_request"`
	}
	require.NoError(t, json.Unmarshal([]byte(call.msg), &msg))
	assert.Equal(t, "", msg.TransferRequest.Digest)

	plaintext, err := crypto_util.Decrypt(h.enclave, msg.TransferRequest.Ciphertext)
	require.NoError(t, err)
	var payload contract.TransferPayload
	require.NoError(t, json.Unmarshal(plaintext, &payload))
	assert.Equal(t, contract.TransferPayload{Sender: h.alice, Receiver: h.bob, Amount: "25"}, payload)
}

func TestTransferValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Connect(ctx, h.alice)
	require.NoError(t, err)

	_, err = h.svc.Transfer(ctx, "osmo1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq", "1")
	assert.True(t, errors.Is(err, errno.ErrInvalidAddress))

	_, err = h.svc.Transfer(ctx, h.bob, "0")
	assert.True(t, errors.Is(err, errno.ErrInvalidAmount))

	h.exec.mu.Lock()
	assert.Empty(t, h.exec.calls)
	h.exec.mu.Unlock()
}

func TestWithdrawPropagatesSubmissionError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Connect(ctx, h.alice)
	require.NoError(t, err)

	_, err = h.svc.Withdraw(ctx)
	require.NoError(t, err)
	assert.Equal(t, `"withdraw"`, h.exec.last(t).msg)

	h.exec.err = errno.Wrap(errno.ErrSubmissionFailed, errors.New("out of gas"))
	_, err = h.svc.Withdraw(ctx)
	assert.True(t, errors.Is(err, errno.ErrSubmissionFailed))
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("340282366920938463463374607431768211455")
	require.NoError(t, err)
	assert.Equal(t, "340282366920938463463374607431768211455", d.String())

	d, err = ParseAmount("1e3")
	require.NoError(t, err)
	assert.Equal(t, "1000", d.String())
}
