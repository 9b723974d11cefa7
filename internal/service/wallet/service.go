package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"transfers-client/internal/chain"
	"transfers-client/internal/contract"
	"transfers-client/internal/keymaterial"
	"transfers-client/internal/service/balance"
	"transfers-client/pkg/crypto_util"
	"transfers-client/pkg/errno"
	"transfers-client/pkg/logger"
	"transfers-client/pkg/monitor"

	ethevent "github.com/ethereum/go-ethereum/event"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Keys is the session mnemonic store, see keymaterial.Manager.
type Keys interface {
	GetOrCreate(ctx context.Context) (string, error)
	Current(ctx context.Context) (string, error)
	Import(ctx context.Context, phrase string) (string, error)
	CurrentKeyPair(ctx context.Context) (*keymaterial.KeyPair, error)
	Clear(ctx context.Context) error
}

// AccountResolver maps a keyring entry to its address.
type AccountResolver interface {
	KeyAddress(ctx context.Context, name string) (string, error)
}

// AddressValidator checks recipient addresses.
type AddressValidator interface {
	Validate(addr string) error
}

type Config struct {
	Contract      string
	Denom         string
	EnclavePubKey string
	// KeyName is the keyring entry used by Connect when no account is given.
	KeyName string
}

// Service is the wallet session: the mnemonic, the connected account and
// the contract actions that run as that account.
type Service struct {
	cfg       Config
	keys      Keys
	executor  chain.Executor
	flow      *balance.Flow
	resolver  AccountResolver
	addresses AddressValidator
	metrics   *monitor.FlowMetrics
	log       *zap.Logger
}

func NewService(cfg Config, keys Keys, executor chain.Executor, flow *balance.Flow, resolver AccountResolver, addresses AddressValidator, metrics *monitor.FlowMetrics, log *zap.Logger) *Service {
	if log == nil {
		log = logger.Named("wallet")
	}
	return &Service{
		cfg:       cfg,
		keys:      keys,
		executor:  executor,
		flow:      flow,
		resolver:  resolver,
		addresses: addresses,
		metrics:   metrics,
		log:       log,
	}
}

// Connect makes sure a session mnemonic exists and switches the flow to
// account. An empty account is resolved from the configured keyring entry.
func (s *Service) Connect(ctx context.Context, account string) (string, error) {
	if _, err := s.keys.GetOrCreate(ctx); err != nil {
		return "", err
	}

	account = strings.TrimSpace(account)
	if account == "" {
		if s.resolver == nil || s.cfg.KeyName == "" {
			return "", errno.ErrNotConnected
		}
		resolved, err := s.resolver.KeyAddress(ctx, s.cfg.KeyName)
		if err != nil {
			return "", errno.Wrap(errno.ErrNotConnected, err)
		}
		account = resolved
	}
	if s.addresses != nil {
		if err := s.addresses.Validate(account); err != nil {
			return "", err
		}
	}

	if err := s.flow.SetAccount(ctx, account); err != nil {
		return "", err
	}
	s.log.Info("wallet connected", zap.String("account", account))
	return account, nil
}

// Disconnect forgets the account and the session mnemonic.
func (s *Service) Disconnect(ctx context.Context) error {
	if err := s.flow.Disconnect(ctx); err != nil {
		return err
	}
	return s.keys.Clear(ctx)
}

// ImportMnemonic replaces the session mnemonic. Refused mid round trip: the
// pending response is encrypted for the current key.
func (s *Service) ImportMnemonic(ctx context.Context, phrase string) error {
	if s.flow.Snapshot().State.Busy() {
		return errno.ErrBusy
	}
	_, err := s.keys.Import(ctx, phrase)
	return err
}

func (s *Service) Mnemonic(ctx context.Context) (string, error) {
	return s.keys.Current(ctx)
}

// PublicKey is the uncompressed hex key the contract encrypts balances for.
func (s *Service) PublicKey(ctx context.Context) (string, error) {
	kp, err := s.keys.CurrentKeyPair(ctx)
	if err != nil {
		return "", err
	}
	return kp.PublicKeyHex(), nil
}

func (s *Service) RequestBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.flow.RequestBalance(ctx)
}

func (s *Service) Refresh(ctx context.Context) (decimal.Decimal, error) {
	return s.flow.Refresh(ctx)
}

func (s *Service) Snapshot() balance.Snapshot {
	return s.flow.Snapshot()
}

// Deposit moves amount base units of the configured denom into the contract.
func (s *Service) Deposit(ctx context.Context, amount string) (*chain.Receipt, error) {
	amt, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	funds := chain.Coins{{Denom: s.cfg.Denom, Amount: amt.String()}}
	return s.execute(ctx, contract.BuildDeposit(), funds)
}

// Transfer sends amount to receiver inside the contract. Sender, receiver
// and amount travel encrypted for the enclave key; no funds are attached.
func (s *Service) Transfer(ctx context.Context, receiver, amount string) (*chain.Receipt, error) {
	receiver = strings.TrimSpace(receiver)
	if s.addresses != nil {
		if err := s.addresses.Validate(receiver); err != nil {
			return nil, err
		}
	}
	amt, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	sender := s.flow.Account()
	if sender == "" {
		return nil, errno.ErrNotConnected
	}

	plaintext, err := json.Marshal(contract.TransferPayload{
		Sender:   sender,
		Receiver: receiver,
		Amount:   amt.String(),
	})
	if err != nil {
		return nil, errno.Wrap(errno.ErrEncryption, err)
	}
	ciphertext, err := crypto_util.Encrypt(s.cfg.EnclavePubKey, plaintext)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, contract.BuildTransfer(ciphertext), nil)
}

// Withdraw asks the contract to pay out the caller's balance.
func (s *Service) Withdraw(ctx context.Context) (*chain.Receipt, error) {
	return s.execute(ctx, contract.BuildWithdraw(), nil)
}

func (s *Service) execute(ctx context.Context, msg contract.Message, funds chain.Coins) (*chain.Receipt, error) {
	sender := s.flow.Account()
	if sender == "" {
		return nil, errno.ErrNotConnected
	}
	receipt, err := s.executor.ExecuteContract(ctx, sender, s.cfg.Contract, msg, funds)
	s.metrics.ObserveExecution(msg.Action(), err)
	if err != nil {
		s.log.Warn("contract execution failed", zap.String("action", msg.Action()), zap.String("sender", sender), zap.Error(err))
		return nil, err
	}
	return receipt, nil
}

// ParseAmount accepts a positive whole number of base units.
func ParseAmount(amount string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return decimal.Zero, errno.Wrap(errno.ErrInvalidAmount, fmt.Errorf("%q is not a number", amount))
	}
	if !d.IsPositive() {
		return decimal.Zero, errno.ErrInvalidAmount
	}
	if !d.Equal(d.Truncate(0)) {
		return decimal.Zero, errno.Wrap(errno.ErrInvalidAmount, fmt.Errorf("%s is not a whole number of base units", d))
	}
	return d, nil
}

// SubscribeState forwards flow snapshots to ch, see balance.Flow.
func (s *Service) SubscribeState(ch chan<- balance.Snapshot) ethevent.Subscription {
	return s.flow.SubscribeState(ch)
}
