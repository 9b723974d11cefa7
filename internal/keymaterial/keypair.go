package keymaterial

import (
	"encoding/hex"
	"fmt"

	"transfers-client/pkg/bip39"
	"transfers-client/pkg/errno"

	"github.com/btcsuite/btcd/btcec/v2"
)

const scalarLen = 32

// KeyPair is the session's ephemeral secp256k1 key. It is never persisted;
// it is re-derived from the mnemonic whenever needed.
type KeyPair struct {
	priv *btcec.PrivateKey
}

func (k *KeyPair) PrivateKey() *btcec.PrivateKey {
	return k.priv
}

func (k *KeyPair) PublicKey() *btcec.PublicKey {
	return k.priv.PubKey()
}

// PublicKeyHex is the uncompressed SEC1 encoding (65 bytes, 04 prefix),
// the form the contract expects in query_request.
func (k *KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(k.priv.PubKey().SerializeUncompressed())
}

// Derive maps a mnemonic to its key pair. The BIP-39 entropy is used
// directly as the private scalar; entropy shorter than 32 bytes is
// right-padded with zeros.
func Derive(mnemonic string) (*KeyPair, error) {
	entropy, err := bip39.NewMnemonicService().MnemonicToEntropy(mnemonic)
	if err != nil {
		return nil, errno.Wrap(errno.ErrInvalidMnemonicFormat, err)
	}
	if len(entropy) > scalarLen {
		return nil, errno.Wrap(errno.ErrKeyDerivation, fmt.Errorf("entropy is %d bytes", len(entropy)))
	}

	padded := make([]byte, scalarLen)
	copy(padded, entropy)

	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(padded); overflow {
		return nil, errno.Wrap(errno.ErrKeyDerivation, fmt.Errorf("scalar is not below the curve order"))
	}
	if scalar.IsZero() {
		return nil, errno.Wrap(errno.ErrKeyDerivation, fmt.Errorf("scalar is zero"))
	}

	priv, _ := btcec.PrivKeyFromBytes(padded)
	return &KeyPair{priv: priv}, nil
}
