package address

import (
	"errors"
	"fmt"
	"strings"

	"transfers-client/pkg/errno"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Bech32Generator Cosmos SDK 风格地址生成与校验 (bech32, 20 字节)
type Bech32Generator struct {
	prefix string
}

// NewBech32Generator returns a generator bound to an HRP such as "wasm".
// An empty prefix accepts any HRP in Validate.
func NewBech32Generator(prefix string) *Bech32Generator {
	return &Bech32Generator{prefix: prefix}
}

func (g *Bech32Generator) Prefix() string {
	return g.prefix
}

// PubKeyToAddress 将压缩公钥 (33 bytes) 转换为 bech32 账户地址:
// bech32(prefix, RIPEMD160(SHA256(pubkey)))
func (g *Bech32Generator) PubKeyToAddress(pubKeyBytes []byte) (string, error) {
	if len(pubKeyBytes) != 33 {
		return "", fmt.Errorf("expected 33-byte compressed public key, got %d bytes", len(pubKeyBytes))
	}
	if g.prefix == "" {
		return "", errors.New("bech32 prefix not configured")
	}

	conv, err := bech32.ConvertBits(btcutil.Hash160(pubKeyBytes), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(g.prefix, conv)
}

// Validate checks the bech32 checksum, the prefix and the payload length
// (20 bytes for accounts, 32 for contracts).
func (g *Bech32Generator) Validate(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errno.Wrap(errno.ErrInvalidAddress, errors.New("empty address"))
	}

	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return errno.Wrap(errno.ErrInvalidAddress, err)
	}
	if g.prefix != "" && hrp != g.prefix {
		return errno.Wrap(errno.ErrInvalidAddress, fmt.Errorf("expected prefix %q, got %q", g.prefix, hrp))
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return errno.Wrap(errno.ErrInvalidAddress, err)
	}
	if len(raw) != 20 && len(raw) != 32 {
		return errno.Wrap(errno.ErrInvalidAddress, fmt.Errorf("unexpected address length %d", len(raw)))
	}
	return nil
}
