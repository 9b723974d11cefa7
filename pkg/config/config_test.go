package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("app:\n  env: test\n"), 0600))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, "wasmd", cfg.Chain.Binary)
	assert.Equal(t, "wasm", cfg.Chain.Bech32Prefix)
	assert.Equal(t, 2*time.Minute, cfg.Balance.ResponseTimeout)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "main", cfg.Chain.From)
	assert.False(t, cfg.Redis.Lock)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	body := `
contract:
  address: wasm1contract
  enclave_pubkey: "02abcd"
balance:
  response_timeout: 45s
storage:
  backend: memory
`
	require.NoError(t, os.WriteFile(file, []byte(body), 0600))
	t.Setenv("STORAGE_PASSPHRASE", "from-env")

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "wasm1contract", cfg.Contract.Address)
	assert.Equal(t, "02abcd", cfg.Contract.EnclavePubKey)
	assert.Equal(t, 45*time.Second, cfg.Balance.ResponseTimeout)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "from-env", cfg.Storage.Passphrase)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
