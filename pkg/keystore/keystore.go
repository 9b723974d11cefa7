package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"transfers-client/pkg/safe_random"

	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
)

const (
	version     = 1
	cipherName  = "aes-256-gcm"
	kdfName     = "scrypt"
	scryptDKLen = 32
	saltLen     = 32
)

// ErrWrongPassphrase is returned by Open when authentication of the sealed
// data fails (bad passphrase or tampered file).
var ErrWrongPassphrase = errors.New("keystore: wrong passphrase or corrupted data")

// Params are the scrypt cost parameters.
type Params struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

// StandardParams matches the go-ethereum "standard" keystore cost.
var StandardParams = Params{N: 1 << 18, R: 8, P: 1}

// LightParams is cheap enough for tests and throwaway sessions.
var LightParams = Params{N: 1 << 12, R: 8, P: 1}

// SealedMnemonic is the on-disk form of an encrypted mnemonic. Layout is
// loosely modelled after the Ethereum V3 keystore.
type SealedMnemonic struct {
	ID      string      `json:"id"`
	Version int         `json:"version"`
	Crypto  SealedCrypt `json:"crypto"`
}

type SealedCrypt struct {
	Cipher     string    `json:"cipher"`
	CipherText string    `json:"ciphertext"` // hex, includes the GCM tag
	Nonce      string    `json:"nonce"`
	KDF        string    `json:"kdf"`
	KDFParams  KDFParams `json:"kdfparams"`
}

type KDFParams struct {
	Params
	DKLen int    `json:"dklen"`
	Salt  string `json:"salt"`
}

// Seal encrypts mnemonic under a key derived from passphrase.
func Seal(mnemonic, passphrase string, params Params) (*SealedMnemonic, error) {
	if params.N == 0 {
		params = StandardParams
	}

	salt, err := safe_random.GenerateRandomBytes(saltLen)
	if err != nil {
		return nil, err
	}
	derivedKey, err := scrypt.Key([]byte(passphrase), salt, params.N, params.R, params.P, scryptDKLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	gcm, err := newGCM(derivedKey)
	if err != nil {
		return nil, err
	}
	nonce, err := safe_random.GenerateRandomBytes(gcm.NonceSize())
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()

	ciphertext := gcm.Seal(nil, nonce, []byte(mnemonic), []byte(id))

	return &SealedMnemonic{
		ID:      id,
		Version: version,
		Crypto: SealedCrypt{
			Cipher:     cipherName,
			CipherText: hex.EncodeToString(ciphertext),
			Nonce:      hex.EncodeToString(nonce),
			KDF:        kdfName,
			KDFParams: KDFParams{
				Params: params,
				DKLen:  scryptDKLen,
				Salt:   hex.EncodeToString(salt),
			},
		},
	}, nil
}

// Open decrypts a sealed mnemonic. The id is bound as additional data so a
// ciphertext cannot be moved between files unnoticed.
func Open(sealed *SealedMnemonic, passphrase string) (string, error) {
	if sealed.Crypto.Cipher != cipherName || sealed.Crypto.KDF != kdfName {
		return "", fmt.Errorf("keystore: unsupported cipher %q / kdf %q", sealed.Crypto.Cipher, sealed.Crypto.KDF)
	}

	salt, err := hex.DecodeString(sealed.Crypto.KDFParams.Salt)
	if err != nil {
		return "", fmt.Errorf("invalid salt: %w", err)
	}
	nonce, err := hex.DecodeString(sealed.Crypto.Nonce)
	if err != nil {
		return "", fmt.Errorf("invalid nonce: %w", err)
	}
	ciphertext, err := hex.DecodeString(sealed.Crypto.CipherText)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext: %w", err)
	}

	kp := sealed.Crypto.KDFParams
	derivedKey, err := scrypt.Key([]byte(passphrase), salt, kp.N, kp.R, kp.P, kp.DKLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	gcm, err := newGCM(derivedKey)
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("invalid nonce length %d", len(nonce))
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(sealed.ID))
	if err != nil {
		return "", ErrWrongPassphrase
	}
	return string(plaintext), nil
}

// SaveToFile writes the sealed mnemonic with 0600 permissions, creating the
// parent directory when needed.
func (k *SealedMnemonic) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return err
	}

	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, filename)
}

// LoadFromFile 从文件加载
func LoadFromFile(filename string) (*SealedMnemonic, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var k SealedMnemonic
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("parse keystore %s: %w", filename, err)
	}
	return &k, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
