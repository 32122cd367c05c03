package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

type (
	Config struct {
		Debug        bool
		TestMode     bool
		Env          string
		AppName      string
		Build        string
		RollbarToken string
		API          APIConfig
		Web          WebConfig
		Storage      StorageConfig
	}

	APIConfig struct {
		BaseURL string
		Timeout time.Duration // 0: no timeout
	}

	WebConfig struct {
		Host         string
		Address      string
		CookieSecure bool
		MaxClients   int           // browsers kept in memory at most
		ClientIdle   time.Duration // a browser idle for longer is forgotten
	}

	StorageConfig struct {
		Driver    string
		Dir       string
		RedisAddr string
		RedisDB   int
	}
)

// NewConfig reads the configuration from the environment.
// ENV selects the prefix of the variables (DEV by default, e.g. DEV_API_BASEURL for api.baseURL)
// and the optional dotenv file config/.env.<env> loaded beforehand.
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Classroom")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("api.baseURL", "http://localhost:8080")
	v.SetDefault("api.timeout", time.Duration(0))
	v.SetDefault("web.host", "localhost")
	v.SetDefault("web.address", ":8000")
	v.SetDefault("web.cookieSecure", false)
	v.SetDefault("web.maxClients", 10000)
	v.SetDefault("web.clientIdle", 30*time.Minute)
	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.dir", defaultStorageDir())
	v.SetDefault("storage.redisAddr", "127.0.0.1:6379")
	v.SetDefault("storage.redisDB", 0)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("storage.driver", StorageMemory)
	case "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Env:          env,
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbarToken"),
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("api.baseURL"), "/"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Web: WebConfig{
			Host:         v.GetString("web.host"),
			Address:      v.GetString("web.address"),
			CookieSecure: v.GetBool("web.cookieSecure"),
			MaxClients:   v.GetInt("web.maxClients"),
			ClientIdle:   v.GetDuration("web.clientIdle"),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(v.GetString("storage.driver")),
			Dir:       v.GetString("storage.dir"),
			RedisAddr: v.GetString("storage.redisAddr"),
			RedisDB:   v.GetInt("storage.redisDB"),
		},
	}
	if err := conf.check(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) check() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageFile, StorageRedis:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.API.BaseURL == "" {
		return errors.New("api.baseURL is required")
	}
	return nil
}

func defaultStorageDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "classroom")
	}
	return filepath.Join(dir, "classroom")
}
