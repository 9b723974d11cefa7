package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"transfers-client/internal/chain"
	"transfers-client/internal/event"
	"transfers-client/internal/keymaterial"
	"transfers-client/internal/service/balance"
	"transfers-client/internal/service/mq"
	"transfers-client/internal/service/wallet"
	"transfers-client/pkg/address"
	"transfers-client/pkg/config"
	"transfers-client/pkg/database"
	"transfers-client/pkg/keystore"
	"transfers-client/pkg/logger"
	"transfers-client/pkg/monitor"
	"transfers-client/pkg/utils/lock"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisPrefix = "transfers:"

// ErrPassphraseRequired is returned when an encrypted mnemonic store is
// configured without a passphrase.
var ErrPassphraseRequired = errors.New("storage passphrase required (STORAGE_PASSPHRASE)")

// Container 持有一次进程生命周期内的全部组件
type Container struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Redis    *redis.Client // nil unless something needs it
	Keys     *keymaterial.Manager
	Executor *chain.CLIExecutor
	Querier  *chain.LCDClient
	Flow     *balance.Flow
	Wallet   *wallet.Service
	Producer mq.Producer // nil when mq_type is none
}

// New builds the object graph described by cfg. Nothing talks to the chain
// until a wallet operation runs; redis, when needed, is pinged here.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg, Registry: prometheus.NewRegistry()}

	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	monitor.Init(c.Registry)

	if needsRedis(cfg) {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		c.Redis = rdb
	}

	store, err := NewKeyStore(cfg.Storage, c.Redis)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Keys = keymaterial.NewManager(store, logger.Named("keymaterial"))

	c.Executor = chain.NewCLIExecutor(chain.CLIOptions{
		Binary:         cfg.Chain.Binary,
		Node:           cfg.Chain.RpcUrl,
		ChainID:        cfg.Chain.ChainID,
		From:           cfg.Chain.From,
		KeyringBackend: cfg.Chain.KeyringBack,
		GasPrices:      cfg.Chain.GasPrices,
		GasAdjustment:  cfg.Chain.GasAdjustment,
	}, nil, logger.Named("chain"))
	c.Querier = chain.NewLCDClient(cfg.Chain.RestUrl, logger.Named("lcd"))

	source, err := chain.NewTendermintSource(cfg.Chain.RpcUrl, logger.Named("tendermint"))
	if err != nil {
		c.Close()
		return nil, err
	}
	correlator := event.NewCorrelator(source, logger.Named("correlator"))

	c.Producer, err = NewProducer(cfg, c.Redis)
	if err != nil {
		c.Close()
		return nil, err
	}

	opts := balance.Options{
		Metrics: monitor.Flow,
		Logger:  logger.Named("balance"),
	}
	if c.Producer != nil {
		opts.Notifier = mq.NewNotifier(c.Producer, cfg.Notify.Topic)
	}
	if cfg.Redis.Lock && c.Redis != nil {
		opts.Locker = lock.NewRedisLock(c.Redis, redisPrefix)
	}

	c.Flow = balance.NewFlow(balance.Config{
		Contract:        cfg.Contract.Address,
		ResponseTimeout: cfg.Balance.ResponseTimeout,
		LockTTL:         cfg.Balance.LockTTL,
		RefreshOnSwitch: cfg.Balance.RefreshOnConnect,
	}, c.Keys, c.Executor, c.Querier, correlator, opts)

	c.Wallet = wallet.NewService(wallet.Config{
		Contract:      cfg.Contract.Address,
		Denom:         cfg.Chain.Denom,
		EnclavePubKey: cfg.Contract.EnclavePubKey,
		KeyName:       cfg.Chain.From,
	}, c.Keys, c.Executor, c.Flow, c.Executor, address.NewBech32Generator(cfg.Chain.Bech32Prefix), monitor.Flow, logger.Named("wallet"))

	return c, nil
}

// Close releases the connections New opened.
func (c *Container) Close() {
	if c.Producer != nil {
		if err := c.Producer.Close(); err != nil {
			logger.Warn("close producer", zap.Error(err))
		}
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

func needsRedis(cfg *config.Config) bool {
	return cfg.Storage.Backend == "redis" || cfg.Redis.MQType == "redis" || cfg.Redis.Lock
}

// NewKeyStore picks the mnemonic store for the configured backend.
func NewKeyStore(cfg config.StorageConfig, rdb redis.UniversalClient) (keymaterial.Store, error) {
	params := keystore.StandardParams
	if cfg.ScryptN > 0 {
		params.N = cfg.ScryptN
	}

	switch cfg.Backend {
	case "memory":
		return keymaterial.NewMemoryStore(), nil
	case "file", "":
		if cfg.Passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		return keymaterial.NewFileStore(cfg.Dir, cfg.Passphrase, params), nil
	case "redis":
		if cfg.Passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		if rdb == nil {
			return nil, errors.New("redis storage backend without a redis connection")
		}
		return keymaterial.NewRedisStore(rdb, redisPrefix, cfg.Passphrase, params), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewProducer returns nil for mq_type none.
func NewProducer(cfg *config.Config, rdb redis.UniversalClient) (mq.Producer, error) {
	switch cfg.Redis.MQType {
	case "kafka":
		logger.Info("使用 Kafka 作为消息队列", zap.Strings("brokers", cfg.Kafka.Brokers))
		return mq.NewKafkaProducer(cfg.Kafka.Brokers), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis mq without a redis connection")
		}
		logger.Info("使用 Redis Streams 作为消息队列")
		return mq.NewRedisProducer(rdb, 10000), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown mq_type %q", cfg.Redis.MQType)
	}
}

// NewConsumer builds the consumer side for `watch`.
func NewConsumer(cfg *config.Config, rdb redis.UniversalClient) (mq.Consumer, error) {
	switch cfg.Redis.MQType {
	case "kafka":
		return mq.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Notify.Group), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis mq without a redis connection")
		}
		host, _ := os.Hostname()
		return mq.NewRedisConsumer(rdb, cfg.Notify.Group, host+"-"+strconv.Itoa(os.Getpid())), nil
	default:
		return nil, fmt.Errorf("no message queue configured (redis.mq_type=%q)", cfg.Redis.MQType)
	}
}
