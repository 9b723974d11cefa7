package bip39

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// EntropyBits is the entropy size used for freshly generated phrases (24 words).
const EntropyBits = 256

// MnemonicService 提供助记词相关的功能
type MnemonicService struct{}

// NewMnemonicService 创建一个新的助记词服务实例
func NewMnemonicService() *MnemonicService {
	return &MnemonicService{}
}

// GenerateMnemonic 生成一个新的随机助记词 (BIP-39)。
// bitSize: 熵的位数，128 (12个单词) 到 256 (24个单词)。
func (s *MnemonicService) GenerateMnemonic(bitSize int) (string, error) {
	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}

	return mnemonic, nil
}

// ValidateMnemonic checks the wordlist and the checksum.
func (s *MnemonicService) ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(Normalize(mnemonic))
}

// MnemonicToEntropy returns the raw entropy encoded by the phrase
// (16 to 32 bytes). The checksum is verified.
func (s *MnemonicService) MnemonicToEntropy(mnemonic string) ([]byte, error) {
	return bip39.EntropyFromMnemonic(Normalize(mnemonic))
}

// Normalize lower-cases the phrase and collapses whitespace to single spaces.
func Normalize(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}
