package config

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	_ "github.com/spf13/viper/remote"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	config       = viper.New()
	configHolder atomic.Value
	backend      = "consul"
	backendAddr  = "127.0.0.1:8500"
	backendPath  = "development" // e.g., app/<env>/<service_name>
	configType   = "yaml"
)

type Config struct {
	AppEnv       string `mapstructure:"APP_ENV"`
	AppName      string `mapstructure:"APP_NAME"`
	AppVersion   string `mapstructure:"APP_VERSION"`
	AppNamespace string `mapstructure:"APP_NAMESPACE"`
	NodeID       int64  `mapstructure:"NODE_ID"`
	TLS          struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr     string `mapstructure:"ADDR"`
		Protocol string `mapstructure:"PROTOCOL"`
		Insecure bool   `mapstructure:"INSECURE"`
	} `mapstructure:"OTEL"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Grpc struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"GRPC_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
		Metrics struct {
			Enable   bool   `mapstructure:"ENABLE"`
			PushAddr string `mapstructure:"PUSH_ADDR"`
			Port     uint32 `mapstructure:"PORT"`
		} `mapstructure:"METRICS"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	AccessControl struct {
		Model     string   `mapstructure:"MODEL"`
		Policy    string   `mapstructure:"POLICY"`
		AdminKeys []string `mapstructure:"ADMIN_KEYS"`
	} `mapstructure:"ACCESS_CONTROL"`
	Flagsmith struct {
		Addr   string `mapstructure:"ADDR"`
		ApiKey string `mapstructure:"API_KEY"`
	} `mapstructure:"FLAGSMITH"`
	Minio struct {
		Endpoint   string `mapstructure:"ENDPOINT"`
		AccessKey  string `mapstructure:"ACCESS_KEY"`
		SecretKey  string `mapstructure:"SECRET_KEY"`
		Secure     bool   `mapstructure:"SECURE"`
		BucketName string `mapstructure:"BUCKET_NAME"`
	} `mapstructure:"MINIO"`
	Consul struct {
		Addr     string `mapstructure:"ADDR"`
		Register bool   `mapstructure:"REGISTER"`
		Host     string `mapstructure:"HOST"`
	} `mapstructure:"CONSUL"`
	Loyalty  Loyalty  `mapstructure:"LOYALTY"`
	Currency Currency `mapstructure:"CURRENCY"`
}

// Loyalty holds the tier ladder, reward catalog and program knobs. Empty
// Tiers or Rewards fall back to the built-in program.
type Loyalty struct {
	Store           string         `mapstructure:"STORE"`
	RewardValidity  time.Duration  `mapstructure:"REWARD_VALIDITY"`
	ReferralBonus   int64          `mapstructure:"REFERRAL_BONUS"`
	CardPrefix      string         `mapstructure:"CARD_PREFIX"`
	SummaryCacheTTL time.Duration  `mapstructure:"SUMMARY_CACHE_TTL"`
	Tiers           []TierConfig   `mapstructure:"TIERS"`
	Rewards         []RewardConfig `mapstructure:"REWARDS"`
}

type TierConfig struct {
	Code       string   `mapstructure:"CODE"`
	Name       string   `mapstructure:"NAME"`
	MinPoints  int64    `mapstructure:"MIN_POINTS"`
	Multiplier string   `mapstructure:"MULTIPLIER"`
	Benefits   []string `mapstructure:"BENEFITS"`
}

type RewardConfig struct {
	ID          string `mapstructure:"ID"`
	Name        string `mapstructure:"NAME"`
	Points      int64  `mapstructure:"POINTS"`
	Kind        string `mapstructure:"KIND"`
	Value       string `mapstructure:"VALUE"`
	Description string `mapstructure:"DESCRIPTION"`
	Eligibility string `mapstructure:"ELIGIBILITY"`
}

type Currency struct {
	Default string            `mapstructure:"DEFAULT"`
	Rates   map[string]string `mapstructure:"RATES"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))
var RemoteModule = fx.Module("remote.config", fx.Provide(LoadRemote))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "vaultbooks-loyalty")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("GRPC_SERVER.ADDR", "9090")
	v.SetDefault("OTEL.PROTOCOL", "grpc")
	v.SetDefault("OTEL.INSECURE", true)
	v.SetDefault("DATABASE.TYPE", "sqlite")
	v.SetDefault("DATABASE.DBNAME", "vaultbooks")
	v.SetDefault("LOYALTY.STORE", "database")
	v.SetDefault("LOYALTY.REWARD_VALIDITY", 30*24*time.Hour)
	v.SetDefault("LOYALTY.REFERRAL_BONUS", 500)
	v.SetDefault("LOYALTY.CARD_PREFIX", "VB-")
	v.SetDefault("LOYALTY.SUMMARY_CACHE_TTL", time.Minute)
	v.SetDefault("CURRENCY.DEFAULT", "USD")
}

func LoadConfig(p Params) *Config {

	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	setDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		zap.L().Error("failed to read config", zap.Error(err))
		os.Exit(1)
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	if p.Vault != nil {
		if err := overlaySecrets(context.Background(), p.Vault, &cfg); err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}
	}

	return &cfg
}

func LoadRemote(p Params) *Config {
	if p.Vault == nil {
		zap.L().Error("vault can't provide")
		os.Exit(1)
	}

	if v, ok := os.LookupEnv("REMOTE_CONFIG_PROVIDER"); ok {
		backend = v
	}

	if v, ok := os.LookupEnv("REMOTE_CONFIG_ADDR"); ok {
		backendAddr = v
	}

	if v, ok := os.LookupEnv("REMOTE_CONFIG_PATH"); ok {
		backendPath = v
	}

	config.SetConfigType(configType)
	setDefaults(config)
	if err := config.AddRemoteProvider(backend, backendAddr, backendPath); err != nil {
		zap.L().Error("failed to add remote config provider", zap.String("backend", backend), zap.Error(err))
		os.Exit(1)
	}

	if err := config.ReadRemoteConfig(); err != nil {
		zap.L().Error("failed to read remote config", zap.String("path", backendPath), zap.Error(err))
		os.Exit(1)
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		os.Exit(1)
	}
	configHolder.Store(&cfg)

	go func() {
		for {
			time.Sleep(time.Second * 5)

			if err := config.WatchRemoteConfig(); err != nil {
				zap.L().Error("unable to read remote config", zap.Error(err))
				continue
			}

			var newcfg Config
			if err := config.Unmarshal(&newcfg); err != nil {
				zap.L().Error("unable to unmarshal remote config", zap.Error(err))
				continue
			}
			configHolder.Store(&newcfg)
		}
	}()

	if err := overlaySecrets(context.Background(), p.Vault, &cfg); err != nil {
		zap.L().Error("failed get secret from vault", zap.Error(err))
		os.Exit(1)
	}

	return &cfg
}

// Current returns the latest remote config snapshot, or nil when the remote
// provider is not in use.
func Current() *Config {
	cfg, _ := configHolder.Load().(*Config)
	return cfg
}

func overlaySecrets(ctx context.Context, client *vault.Client, cfg *Config) error {
	zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
	secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
	if err != nil {
		return err
	}
	zap.L().Info("Success Get Secret")

	get := func(key string) string {
		if val, ok := secret.Data.Data[key].(string); ok {
			return val
		}
		return ""
	}

	cfg.Database.User = get("postgres_user")
	cfg.Database.Password = get("postgres_password")
	cfg.Redis.Password = get("redis_password")
	cfg.Flagsmith.ApiKey = get("flagsmith_api_key")
	cfg.Minio.AccessKey = get("minio_access_key")
	cfg.Minio.SecretKey = get("minio_secret_key")

	return nil
}
