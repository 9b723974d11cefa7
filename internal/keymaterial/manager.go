package keymaterial

import (
	"context"
	"errors"
	"sync"

	"transfers-client/pkg/bip39"
	"transfers-client/pkg/errno"
	"transfers-client/pkg/logger"

	"go.uber.org/zap"
)

// Manager owns the session mnemonic: one per session, created on first use.
type Manager struct {
	store     Store
	mnemonics *bip39.MnemonicService
	log       *zap.Logger

	mu sync.Mutex
}

func NewManager(store Store, log *zap.Logger) *Manager {
	if log == nil {
		log = logger.Named("keymaterial")
	}
	return &Manager{
		store:     store,
		mnemonics: bip39.NewMnemonicService(),
		log:       log,
	}
}

// GetOrCreate returns the stored mnemonic, generating and persisting a fresh
// 24-word phrase when there is none.
func (m *Manager) GetOrCreate(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mnemonic, err := m.store.Load(ctx, StorageKey)
	if err == nil {
		return mnemonic, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	mnemonic, err = m.mnemonics.GenerateMnemonic(bip39.EntropyBits)
	if err != nil {
		return "", err
	}
	if err := m.store.Save(ctx, StorageKey, mnemonic); err != nil {
		return "", err
	}
	m.log.Info("generated new session mnemonic")
	return mnemonic, nil
}

// Current returns the stored mnemonic without creating one.
func (m *Manager) Current(ctx context.Context) (string, error) {
	mnemonic, err := m.store.Load(ctx, StorageKey)
	if errors.Is(err, ErrNotFound) {
		return "", errno.ErrMnemonicNotFound
	}
	return mnemonic, err
}

// Import replaces the session mnemonic with a user supplied phrase.
func (m *Manager) Import(ctx context.Context, phrase string) (string, error) {
	mnemonic := bip39.Normalize(phrase)
	if !m.mnemonics.ValidateMnemonic(mnemonic) {
		return "", errno.ErrInvalidMnemonicFormat
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Save(ctx, StorageKey, mnemonic); err != nil {
		return "", err
	}
	m.log.Info("imported session mnemonic")
	return mnemonic, nil
}

func (m *Manager) Derive(mnemonic string) (*KeyPair, error) {
	return Derive(mnemonic)
}

// CurrentKeyPair derives the key pair of the stored mnemonic. Any failure,
// including a missing mnemonic, is reported as a key derivation error.
func (m *Manager) CurrentKeyPair(ctx context.Context) (*KeyPair, error) {
	mnemonic, err := m.Current(ctx)
	if err != nil {
		return nil, errno.Wrap(errno.ErrKeyDerivation, err)
	}
	kp, err := Derive(mnemonic)
	if err != nil && !errors.Is(err, errno.ErrKeyDerivation) {
		return nil, errno.Wrap(errno.ErrKeyDerivation, err)
	}
	return kp, err
}

// Clear forgets the mnemonic. Payloads encrypted for the old key can no
// longer be read.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(ctx, StorageKey); err != nil {
		return err
	}
	m.log.Info("cleared session mnemonic")
	return nil
}
