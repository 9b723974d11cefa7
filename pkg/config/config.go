package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Contract ContractConfig `mapstructure:"contract"`
	Balance  BalanceConfig  `mapstructure:"balance"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

// ChainConfig describes the node endpoints and the CLI binary used to sign
// and broadcast contract executions.
type ChainConfig struct {
	ChainID       string  `mapstructure:"chain_id"`
	RpcUrl        string  `mapstructure:"rpc_url"`  // tendermint RPC, also used for the websocket
	RestUrl       string  `mapstructure:"rest_url"` // LCD, smart queries
	Denom         string  `mapstructure:"denom"`
	Bech32Prefix  string  `mapstructure:"bech32_prefix"`
	Binary        string  `mapstructure:"binary"` // wasmd / neutrond
	GasPrices     string  `mapstructure:"gas_prices"`
	GasAdjustment float64 `mapstructure:"gas_adjustment"`
	KeyringBack   string  `mapstructure:"keyring_backend"`
	From          string  `mapstructure:"from"` // keyring entry that signs
}

type ContractConfig struct {
	Address       string `mapstructure:"address"`
	EnclavePubKey string `mapstructure:"enclave_pubkey"` // hex, SEC1
}

type BalanceConfig struct {
	ResponseTimeout time.Duration `mapstructure:"response_timeout"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	// RefreshOnConnect 连接或切换账户后立即 smart query 一次
	RefreshOnConnect bool `mapstructure:"refresh_on_connect"`
}

type StorageConfig struct {
	Backend    string `mapstructure:"backend"` // memory, file, redis
	Dir        string `mapstructure:"dir"`
	Passphrase string `mapstructure:"passphrase"` // 通常通过环境变量 STORAGE_PASSPHRASE 传入
	ScryptN    int    `mapstructure:"scrypt_n"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis", "kafka" or "none"
	Lock     bool   `mapstructure:"lock"`    // 跨进程的余额请求互斥
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type NotifyConfig struct {
	Topic string `mapstructure:"topic"`
	Group string `mapstructure:"group"`
}

var Global Config

// Load reads configFile (or config.yaml from the usual paths when empty),
// applies environment overrides and defaults.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, err
		}
		log.Printf("Warning: Config file not found, using defaults and environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Init(configFile string) {
	cfg, err := Load(configFile)
	if err != nil {
		log.Fatalf("Fatal error config file: %s \n", err)
	}
	Global = *cfg
	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http_port", "8080")

	v.SetDefault("chain.chain_id", "testing")
	v.SetDefault("chain.rpc_url", "http://localhost:26657")
	v.SetDefault("chain.rest_url", "http://localhost:1317")
	v.SetDefault("chain.denom", "ucosm")
	v.SetDefault("chain.bech32_prefix", "wasm")
	v.SetDefault("chain.binary", "wasmd")
	v.SetDefault("chain.gas_prices", "0.0025ucosm")
	v.SetDefault("chain.gas_adjustment", 1.3)
	v.SetDefault("chain.keyring_backend", "test")
	v.SetDefault("chain.from", "main")

	// 没有默认值的 key 也要登记, 否则 AutomaticEnv 不会生效
	v.SetDefault("contract.address", "")
	v.SetDefault("contract.enclave_pubkey", "")

	v.SetDefault("balance.response_timeout", 2*time.Minute)
	v.SetDefault("balance.lock_ttl", 3*time.Minute)
	v.SetDefault("balance.refresh_on_connect", true)

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", ".transfers")
	v.SetDefault("storage.passphrase", "")
	v.SetDefault("storage.scrypt_n", 1<<18)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.mq_type", "none")
	v.SetDefault("redis.lock", false)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})

	v.SetDefault("notify.topic", "transfers_events_balance")
	v.SetDefault("notify.group", "transfers-watch")
}
