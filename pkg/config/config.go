package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Wallet  WalletConfig  `mapstructure:"wallet"`
	Tokens  []TokenConfig `mapstructure:"tokens"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error; 为空时按 env 决定
}

type ChainConfig struct {
	RpcUrl      string `mapstructure:"rpc_url"`
	ChainID     int64  `mapstructure:"chain_id"`     // 11155111 = Sepolia
	ExplorerUrl string `mapstructure:"explorer_url"` // 交易详情页前缀
}

// TrackerConfig 交易追踪相关配置
type TrackerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	WaitTimeout  time.Duration `mapstructure:"wait_timeout"` // 超过该时间仍未确认则提示用户
	Store        string        `mapstructure:"store"`        // file, memory, redis, postgres
	FilePath     string        `mapstructure:"file_path"`
	StorageKey   string        `mapstructure:"storage_key"`
	Topic        string        `mapstructure:"topic"`
	MQType       string        `mapstructure:"mq_type"`   // memory, redis, kafka
	PollLock     bool          `mapstructure:"poll_lock"` // 多个实例共享 Redis 时只允许一个实例轮询
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type WalletConfig struct {
	PrivateKey   string `mapstructure:"private_key"`   // Hex, 仅开发环境使用
	KeystorePath string `mapstructure:"keystore_path"` // go-ethereum keystore JSON
	Password     string `mapstructure:"password"`      // 通常通过环境变量 WALLET_PASSWORD 传入
}

type TokenConfig struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"` // "ETH" 表示原生币
}

var Global Config

// DSN 返回 gorm postgres 驱动使用的连接串
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.Host, c.User, c.Password, c.Name, c.Port)
}

// URL 返回 golang-migrate 使用的连接串
func (c DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// Init 加载配置到 Global; cfgFile 为空时按默认路径查找 config.yaml
func Init(cfgFile string) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	cfg, err := Load(v)
	if err != nil {
		log.Fatalf("Fatal error config file: %s \n", err)
	}
	Global = cfg

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

// Load 读取配置文件 (可选) 与环境变量并解码
func Load(v *viper.Viper) (Config, error) {
	var cfg Config

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http_port", "8080")
	v.SetDefault("app.log_level", "")

	v.SetDefault("chain.rpc_url", "https://rpc.sepolia.org")
	v.SetDefault("chain.chain_id", 11155111)
	v.SetDefault("chain.explorer_url", "https://sepolia.etherscan.io/tx/")

	v.SetDefault("tracker.poll_interval", 5*time.Second)
	v.SetDefault("tracker.wait_timeout", 30*time.Second)
	v.SetDefault("tracker.store", "file")
	v.SetDefault("tracker.file_path", "transactions.json")
	v.SetDefault("tracker.storage_key", "tracker:transactions")
	v.SetDefault("tracker.topic", "tracker_transactions")
	v.SetDefault("tracker.mq_type", "memory")
	v.SetDefault("tracker.poll_lock", false)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "tracker_user")
	v.SetDefault("db.password", "tracker_password")
	v.SetDefault("db.name", "tracker_db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})

	// 没有默认值的 key 不会从环境变量读取，这里显式注册
	v.SetDefault("wallet.private_key", "")
	v.SetDefault("wallet.keystore_path", "")
	v.SetDefault("wallet.password", "")

	v.SetDefault("tokens", []map[string]interface{}{
		{"name": "ETH", "address": "ETH"},
		{"name": "Sepolia Test LINK Token", "address": "0x779877A7B0D9E8603169DdbD7836e478b4624789"},
	})
}
