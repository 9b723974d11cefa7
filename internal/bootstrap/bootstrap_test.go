package bootstrap

import (
	"context"
	"errors"
	"testing"

	"transfers-client/internal/keymaterial"
	"transfers-client/internal/service/mq"
	"transfers-client/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "test"},
		Chain:    config.ChainConfig{RpcUrl: "http://localhost:26657", RestUrl: "http://localhost:1317", Binary: "wasmd", Bech32Prefix: "wasm", Denom: "ucosm", From: "main"},
		Contract: config.ContractConfig{Address: "wasm1contract"},
		Storage:  config.StorageConfig{Backend: "memory"},
		Redis:    config.RedisConfig{MQType: "none"},
		Notify:   config.NotifyConfig{Topic: "transfers_events_balance", Group: "transfers-watch"},
	}
}

func TestNewMemoryNoRedis(t *testing.T) {
	c, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Redis)
	assert.Nil(t, c.Producer)
	assert.NotNil(t, c.Wallet)
	assert.Empty(t, c.Flow.Account())

	families, err := c.Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["transfers_balance_flow_state"])
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Addr: mr.Addr(), MQType: "redis", Lock: true}
	cfg.Storage = config.StorageConfig{Backend: "redis", Passphrase: "pw", ScryptN: 1 << 10}

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Redis)
	assert.IsType(t, &mq.RedisProducer{}, c.Producer)

	ctx := context.Background()
	mnemonic, err := c.Keys.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(redisPrefix+keymaterial.StorageKey))
	again, err := c.Keys.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, mnemonic, again)

	consumer, err := NewConsumer(cfg, c.Redis)
	require.NoError(t, err)
	assert.IsType(t, &mq.RedisConsumer{}, consumer)
}

func TestNewKeyStore(t *testing.T) {
	_, err := NewKeyStore(config.StorageConfig{Backend: "file", Dir: t.TempDir()}, nil)
	assert.True(t, errors.Is(err, ErrPassphraseRequired))

	_, err = NewKeyStore(config.StorageConfig{Backend: "redis", Passphrase: "pw"}, nil)
	assert.Error(t, err)

	_, err = NewKeyStore(config.StorageConfig{Backend: "tape"}, nil)
	assert.Error(t, err)

	s, err := NewKeyStore(config.StorageConfig{Backend: "file", Dir: t.TempDir(), Passphrase: "pw", ScryptN: 1 << 10}, nil)
	require.NoError(t, err)
	assert.IsType(t, &keymaterial.FileStore{}, s)
}

func TestProducerAndConsumerSelection(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.MQType = "kafka"
	cfg.Kafka.Brokers = []string{"localhost:9092"}

	p, err := NewProducer(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &mq.KafkaProducer{}, p)
	_ = p.Close()

	consumer, err := NewConsumer(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &mq.KafkaConsumer{}, consumer)

	cfg.Redis.MQType = "none"
	_, err = NewConsumer(cfg, nil)
	assert.Error(t, err)

	cfg.Redis.MQType = "sqs"
	_, err = NewProducer(cfg, nil)
	assert.Error(t, err)
}
