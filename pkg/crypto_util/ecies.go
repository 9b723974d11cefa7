package crypto_util

import (
	"encoding/hex"
	"errors"
	"strings"

	"transfers-client/pkg/errno"

	"github.com/btcsuite/btcd/btcec/v2"
	ecies "github.com/ecies/go/v2"
)

// ------------------------------------------------------------------------------------------------
// ECIES over secp256k1
// 与 eciesjs / Rust ecies 的线格式兼容：
// ephemeral uncompressed pubkey (65) || nonce (16) || tag (16) || ciphertext
// ------------------------------------------------------------------------------------------------

// Encrypt encrypts plaintext for the holder of recipientPubHex (compressed or
// uncompressed SEC1 hex) and returns the payload hex encoded. Every call uses
// a fresh ephemeral key, so output differs between calls.
func Encrypt(recipientPubHex string, plaintext []byte) (string, error) {
	recipientPubHex = trimHex(recipientPubHex)
	if recipientPubHex == "" {
		return "", errno.Wrap(errno.ErrEncryption, errors.New("recipient public key is empty"))
	}

	pub, err := ecies.NewPublicKeyFromHex(recipientPubHex)
	if err != nil {
		return "", errno.Wrap(errno.ErrEncryption, err)
	}

	payload, err := ecies.Encrypt(pub, plaintext)
	if err != nil {
		return "", errno.Wrap(errno.ErrEncryption, err)
	}
	return hex.EncodeToString(payload), nil
}

// Decrypt opens a hex payload produced by Encrypt for priv's public key.
// An empty payload decrypts to an empty plaintext.
func Decrypt(priv *btcec.PrivateKey, payloadHex string) ([]byte, error) {
	if priv == nil {
		return nil, errno.Wrap(errno.ErrDecryptionFailed, errors.New("no private key"))
	}

	payloadHex = trimHex(payloadHex)
	if payloadHex == "" {
		return []byte{}, nil
	}

	payload, err := hex.DecodeString(payloadHex)
	if err != nil {
		return nil, errno.Wrap(errno.ErrDecryptionFailed, err)
	}

	plaintext, err := ecies.Decrypt(ecies.NewPrivateKeyFromBytes(priv.Serialize()), payload)
	if err != nil {
		return nil, errno.Wrap(errno.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func trimHex(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	return strings.TrimPrefix(s, "0X")
}
