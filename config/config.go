package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	JWT        JWTConfig        `toml:"jwt"`
	Cloudinary CloudinaryConfig `toml:"cloudinary"`
	Firebase   FirebaseConfig   `toml:"firebase"`
	Client     ClientConfig     `toml:"client"`
	Sync       SyncConfig       `toml:"sync"`
	Log        LogConfig        `toml:"log"`
}

type ServerConfig struct {
	Port         string        `toml:"port"`
	Env          string        `toml:"env"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	// RateLimit is requests per second per client IP; zero disables it.
	RateLimit float64 `toml:"rate_limit"`
}

type DatabaseConfig struct {
	// DSN is a MySQL DSN, or "sqlite:<path>" for an embedded database.
	DSN             string        `toml:"dsn"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	AdminMobile     string        `toml:"admin_mobile"`
	AdminPassword   string        `toml:"admin_password"`
}

type JWTConfig struct {
	AccessSecret string        `toml:"access_secret"`
	AccessExpiry time.Duration `toml:"access_expiry"`
	Issuer       string        `toml:"issuer"`
}

type CloudinaryConfig struct {
	CloudName string `toml:"cloud_name"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	Folder    string `toml:"folder"`
}

// FirebaseConfig enables device push when CredentialsFile is set.
type FirebaseConfig struct {
	CredentialsFile string `toml:"credentials_file"`
}

// ClientConfig is used by the sync client commands.
type ClientConfig struct {
	APIURL          string        `toml:"api_url"`
	WSURL           string        `toml:"ws_url"`
	Timeout         time.Duration `toml:"timeout"`
	CredentialsPath string        `toml:"credentials_path"`
}

type SyncConfig struct {
	ReconnectAttempts int           `toml:"reconnect_attempts"`
	ReconnectDelay    time.Duration `toml:"reconnect_delay"`
	// RefreshInterval is the minimum spacing of full refreshes of one
	// collection; RefreshBurst refreshes may run back to back.
	RefreshInterval time.Duration `toml:"refresh_interval"`
	RefreshBurst    int           `toml:"refresh_burst"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8099",
			Env:          "development",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			RateLimit:    20,
		},
		Database: DatabaseConfig{
			DSN:             "sqlite:salun.db",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
			AdminMobile:     "9999999999",
		},
		JWT: JWTConfig{
			AccessExpiry: 24 * time.Hour,
			Issuer:       "salun",
		},
		Cloudinary: CloudinaryConfig{
			Folder: "rewards",
		},
		Client: ClientConfig{
			APIURL:          "http://localhost:8099/api",
			WSURL:           "ws://localhost:8099/ws",
			Timeout:         15 * time.Second,
			CredentialsPath: "salun-credentials.db",
		},
		Sync: SyncConfig{
			ReconnectAttempts: 5,
			ReconnectDelay:    2 * time.Second,
			RefreshInterval:   500 * time.Millisecond,
			RefreshBurst:      2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (optional, skipped when empty or missing), then a .env file in the working
// directory, then SALUN_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("SALUN_PORT", &c.Server.Port)
	str("SALUN_ENV", &c.Server.Env)
	str("SALUN_DATABASE_DSN", &c.Database.DSN)
	str("SALUN_ADMIN_MOBILE", &c.Database.AdminMobile)
	str("SALUN_ADMIN_PASSWORD", &c.Database.AdminPassword)
	str("SALUN_JWT_SECRET", &c.JWT.AccessSecret)
	str("CLOUDINARY_CLOUD_NAME", &c.Cloudinary.CloudName)
	str("CLOUDINARY_API_KEY", &c.Cloudinary.APIKey)
	str("CLOUDINARY_API_SECRET", &c.Cloudinary.APISecret)
	str("GOOGLE_APPLICATION_CREDENTIALS", &c.Firebase.CredentialsFile)
	str("SALUN_API_URL", &c.Client.APIURL)
	str("SALUN_WS_URL", &c.Client.WSURL)
	str("SALUN_CREDENTIALS_PATH", &c.Client.CredentialsPath)
	str("SALUN_LOG_LEVEL", &c.Log.Level)

	if v := os.Getenv("SALUN_RECONNECT_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: SALUN_RECONNECT_ATTEMPTS: %w", err)
		}
		c.Sync.ReconnectAttempts = n
	}
	for key, dst := range map[string]*time.Duration{
		"SALUN_RECONNECT_DELAY": &c.Sync.ReconnectDelay,
		"SALUN_CLIENT_TIMEOUT":  &c.Client.Timeout,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate reports settings the reference backend cannot start without.
func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" {
		return errors.New("config: jwt access secret is required (SALUN_JWT_SECRET)")
	}
	if c.Database.DSN == "" {
		return errors.New("config: database dsn is required")
	}
	return nil
}
