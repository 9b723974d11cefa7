package address

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"transfers-client/pkg/errno"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, hrp string, raw []byte) string {
	t.Helper()
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	require.NoError(t, err)
	addr, err := bech32.Encode(hrp, conv)
	require.NoError(t, err)
	return addr
}

func TestPubKeyToAddress(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	gen := NewBech32Generator("wasm")
	addr, err := gen.PubKeyToAddress(priv.PubKey().SerializeCompressed())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(addr, "wasm1"))
	assert.NoError(t, gen.Validate(addr))

	_, err = gen.PubKeyToAddress(priv.PubKey().SerializeUncompressed())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	gen := NewBech32Generator("wasm")

	account := encode(t, "wasm", bytes.Repeat([]byte{1}, 20))
	contract := encode(t, "wasm", bytes.Repeat([]byte{2}, 32))
	assert.NoError(t, gen.Validate(account))
	assert.NoError(t, gen.Validate(contract))

	bad := []string{
		"",
		"not an address",
		encode(t, "cosmos", bytes.Repeat([]byte{1}, 20)),
		encode(t, "wasm", bytes.Repeat([]byte{1}, 8)),
		flipLast(account), // broken checksum
	}
	for _, addr := range bad {
		err := gen.Validate(addr)
		assert.True(t, errors.Is(err, errno.ErrInvalidAddress), "address %q: %v", addr, err)
	}
}

func TestValidateAnyPrefix(t *testing.T) {
	gen := NewBech32Generator("")
	assert.NoError(t, gen.Validate(encode(t, "neutron", bytes.Repeat([]byte{7}, 20))))
}

func flipLast(addr string) string {
	last := addr[len(addr)-1]
	repl := byte('q')
	if last == 'q' {
		repl = 'p'
	}
	return addr[:len(addr)-1] + string(repl)
}
