package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

func (l LogLevel) ToSlog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type LogFormat string

const (
	LogFormatPlaintext LogFormat = "plaintext"
	LogFormatJSON      LogFormat = "json"
)

type AppEnv string

const (
	AppEnvDev        AppEnv = "dev"
	AppEnvProduction AppEnv = "production"
)

type StorageDriver string

const (
	StorageDriverFile     StorageDriver = "file"
	StorageDriverPostgres StorageDriver = "postgres"
	StorageDriverRedis    StorageDriver = "redis"
)

type Config struct {
	App        AppConfig
	Sentry     SentryConfig
	Log        LogConfig
	Storage    StorageConfig
	Enrichment EnrichmentConfig
	Form       FormConfig
}

type AppConfig struct {
	Debug           bool
	SSL             bool
	Port            uint32
	ProxyPort       uint32
	Host            string
	URL             string
	Name            string
	ShutdownTimeout int32 // in seconds
	Env             AppEnv
	Version         string
	RequestTimeout  uint32 // in seconds
	// Key used to sign the flash message cookie
	AuthenticationKey string `mapstructure:"AUTHKEY"`
	// Key used to encrypt the flash message cookie, leave empty to only sign it
	EncryptionKey string `mapstructure:"ENCKEY"`
	FallbackLang  string
}

type SentryConfig struct {
	Enabled      bool
	DSN          string
	SampleRate   float64
	TracesRate   float64
	ProfilesRate float64
}

type LogConfig struct {
	Format  LogFormat
	Level   LogLevel
	Verbose bool
	// Write logs to this file instead of stdout, the terminal ui discards logs if this is empty.
	File string
}

type StorageConfig struct {
	Driver StorageDriver
	// Path of the customer file, used by the file driver
	Path string
	// Name of the slot that holds the customer list, used by the postgres and redis drivers
	Slot string
	// Connection url, used by the postgres and redis drivers
	URL string
	// Reload the customer list when another process changes it, only supported by the file driver
	Watch         bool
	WatchDebounce time.Duration
}

type EnrichmentConfig struct {
	Enabled      bool
	BaseURL      string
	VerifyPath   string
	PostcodePath string
	Timeout      time.Duration
	// Time a field has to stay unchanged before it is looked up
	Debounce time.Duration
}

type FormConfig struct {
	DiscardStale        bool
	TrackAddressesByKey bool
}

func setDefaults(reader *viper.Viper) {
	reader.SetDefault("app_name", "clientbook")
	reader.SetDefault("app_env", AppEnvProduction)
	reader.SetDefault("app_host", "localhost")
	reader.SetDefault("app_port", 3000)
	reader.SetDefault("app_ssl", false)
	reader.SetDefault("app_shutdowntimeout", 2)
	reader.SetDefault("app_requesttimeout", 30)
	reader.SetDefault("app_fallbacklang", "en")
	reader.SetDefault("log_format", LogFormatJSON)
	reader.SetDefault("log_level", LogLevelInfo)
	reader.SetDefault("storage_driver", StorageDriverFile)
	reader.SetDefault("storage_path", "clientbook.json")
	reader.SetDefault("storage_slot", "customers")
	reader.SetDefault("storage_watch", true)
	reader.SetDefault("storage_watchdebounce", 100*time.Millisecond)
	reader.SetDefault("enrichment_enabled", true)
	reader.SetDefault("enrichment_baseurl", "https://lab.pixel6.co/api")
	reader.SetDefault("enrichment_verifypath", "/verify-pan.php")
	reader.SetDefault("enrichment_postcodepath", "/get-postcode-details.php")
	reader.SetDefault("enrichment_timeout", time.Duration(0))
	reader.SetDefault("enrichment_debounce", 300*time.Millisecond)
}

// Validate checks the combinations of settings that cannot be expressed as defaults.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverFile:
		if len(c.Storage.Path) == 0 {
			return errors.New("storage.path is required for the file driver")
		}
	case StorageDriverPostgres, StorageDriverRedis:
		if len(c.Storage.URL) == 0 {
			return fmt.Errorf("storage.url is required for the %s driver", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Enrichment.Enabled && len(c.Enrichment.BaseURL) == 0 {
		return errors.New("enrichment.baseurl is required when enrichment is enabled")
	}
	return nil
}

func (c Config) BaseURL() string {
	url := c.App.URL
	// If no url was specified, build one from the host and port values
	if len(c.App.URL) == 0 {
		port := c.App.Port
		if c.App.ProxyPort > 0 {
			port = c.App.ProxyPort
		}
		url = fmt.Sprintf("%v:%v", c.App.Host, port)
	}
	protocol := "http"
	if c.App.SSL {
		protocol = "https"
	}
	return fmt.Sprintf(
		"%s://%s",
		protocol,
		url,
	)
}

func (c *Config) IsTest() bool {
	return flag.Lookup("test.v") != nil || strings.HasSuffix(os.Args[0], ".test") ||
		strings.Contains(os.Args[0], "/_test/")
}

// Load the configuration file from the specified filesystem.
// You can specify additional .env files to load, by default this only checks for ".env" in the
// current working directory.
func Load(configFS fs.FS, dotenvFiles ...string) (*Config, error) {
	file, err := configFS.Open("config.toml")
	if err != nil {
		return nil, fmt.Errorf("could not find config.toml in the configFS: %w", err)
	}

	reader := viper.NewWithOptions(viper.KeyDelimiter("_"))
	reader.SetConfigType("toml")
	setDefaults(reader)

	if err = reader.ReadConfig(file); err != nil {
		return nil, fmt.Errorf("could not load the app configuration: %w", err)
	}

	// Environment override
	err = godotenv.Load(dotenvFiles...)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("No .env file found, continuing...")
	} else if err != nil {
		return nil, fmt.Errorf(".env file found, but could not load it: %w", err)
	}
	reader.AutomaticEnv()

	var config Config
	if err := reader.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.App.Debug && !config.IsTest() {
		slog.Warn("APP_DEBUG is turned on, do not run this mode in production!")
	}

	return &config, nil
}
