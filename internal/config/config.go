package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// BackendConfig points at the clinic records REST service.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type StoreConfig struct {
	Driver  string
	Path    string
	Prefix  string
	SealKey string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	// TokenSecret enables HMAC signature checks on decoded tokens when set.
	TokenSecret string
	Leeway      time.Duration
}

type SessionConfig struct {
	RevalidateSpec string
}

type StorageConfig struct {
	Driver    string
	Dir       string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Backend          BackendConfig
	Store            StoreConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Session          SessionConfig
	Storage          StorageConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

const (
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"

	StorageDriverDisk  = "disk"
	StorageDriverMinio = "minio"
)

func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("clinicdesk")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CLINICDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.baseurl is required")
	}
	switch c.Store.Driver {
	case StoreDriverSQLite, StoreDriverRedis, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Storage.Driver {
	case StorageDriverDisk, StorageDriverMinio:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "127.0.0.1")
	v.SetDefault("http.port", 8090)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("backend.baseurl", "http://localhost:3000/")
	v.SetDefault("backend.timeout", "10s")

	v.SetDefault("store.driver", StoreDriverSQLite)
	v.SetDefault("store.path", "clinicdesk.db")
	v.SetDefault("store.prefix", "clinicdesk:")
	v.SetDefault("store.sealkey", "")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.tokensecret", "")
	v.SetDefault("security.leeway", "30s")

	v.SetDefault("session.revalidatespec", "0 * * * * *") // every minute

	v.SetDefault("storage.driver", StorageDriverDisk)
	v.SetDefault("storage.dir", "results")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "clinicdesk-results")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("logging.level", "")
	v.SetDefault("allowcorsorigins", []string{})
}
