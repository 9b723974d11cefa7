package keymaterial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"transfers-client/pkg/keystore"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// StorageKey is the single slot the session mnemonic lives under.
const StorageKey = "ephemeral-mnemonic"

// ErrNotFound is returned by Store.Load for an empty slot.
var ErrNotFound = errors.New("keymaterial: not found")

// Store persists the session mnemonic.
type Store interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, mnemonic string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps the mnemonic for the life of the process only.
type MemoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, 0)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (string, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	return v.(string), nil
}

func (s *MemoryStore) Save(_ context.Context, key, mnemonic string) error {
	s.c.Set(key, mnemonic, gocache.NoExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

// FileStore seals the mnemonic into <dir>/<key>.json.
type FileStore struct {
	dir        string
	passphrase string
	params     keystore.Params
}

func NewFileStore(dir, passphrase string, params keystore.Params) *FileStore {
	return &FileStore{dir: dir, passphrase: passphrase, params: params}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Load(_ context.Context, key string) (string, error) {
	sealed, err := keystore.LoadFromFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return keystore.Open(sealed, s.passphrase)
}

func (s *FileStore) Save(_ context.Context, key, mnemonic string) error {
	sealed, err := keystore.Seal(mnemonic, s.passphrase, s.params)
	if err != nil {
		return err
	}
	return sealed.SaveToFile(s.path(key))
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// RedisStore keeps the sealed mnemonic in redis so several processes of the
// same deployment share one identity.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	passphrase string
	params     keystore.Params
}

func NewRedisStore(client redis.UniversalClient, prefix, passphrase string, params keystore.Params) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, passphrase: passphrase, params: params}
}

func (s *RedisStore) Load(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	var sealed keystore.SealedMnemonic
	if err := json.Unmarshal(val, &sealed); err != nil {
		return "", fmt.Errorf("parse sealed mnemonic: %w", err)
	}
	return keystore.Open(&sealed, s.passphrase)
}

func (s *RedisStore) Save(ctx context.Context, key, mnemonic string) error {
	sealed, err := keystore.Seal(mnemonic, s.passphrase, s.params)
	if err != nil {
		return err
	}
	val, err := json.Marshal(sealed)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, val, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
