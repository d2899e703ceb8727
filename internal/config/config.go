// Package config loads storefront settings with Viper from defaults, an
// optional storefront.yaml, STOREFRONT_* environment variables and bound
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the storefront.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Data   DataConfig   `mapstructure:"data"`
	Site   SiteConfig   `mapstructure:"site"`
	Log    LogConfig    `mapstructure:"log"`
	Dev    DevConfig    `mapstructure:"dev"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	PublicDir       string        `mapstructure:"public_dir"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// DataConfig selects where catalog, pages and fragments are read from. A
// non-empty BaseURL wins over Dir.
type DataConfig struct {
	Dir        string        `mapstructure:"dir"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Catalog    string        `mapstructure:"catalog"`
	Pages      string        `mapstructure:"pages"`
	ContentDir string        `mapstructure:"content_dir"`
	Header     string        `mapstructure:"header"`
	Footer     string        `mapstructure:"footer"`
	PagesTTL   time.Duration `mapstructure:"pages_ttl"`
}

// SiteConfig holds presentation settings.
type SiteConfig struct {
	Name     string `mapstructure:"name"`
	BaseURL  string `mapstructure:"base_url"`
	Currency string `mapstructure:"currency"`
	Lang     string `mapstructure:"lang"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// DevConfig holds development-only switches.
type DevConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Watch     bool   `mapstructure:"watch"`
	Templates string `mapstructure:"templates"`
}

// New returns a Viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Cloud Run and most PaaS hosts publish the port as PORT
	_ = v.BindEnv("server.port", "STOREFRONT_SERVER_PORT", "PORT")
	SetDefaults(v)
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_dir", "public")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("data.dir", "data")
	v.SetDefault("data.base_url", "")
	v.SetDefault("data.timeout", 10*time.Second)
	v.SetDefault("data.catalog", "products.json")
	v.SetDefault("data.pages", "pages.json")
	v.SetDefault("data.content_dir", "content/pages")
	v.SetDefault("data.header", "includes/header.html")
	v.SetDefault("data.footer", "includes/footer.html")
	v.SetDefault("data.pages_ttl", 5*time.Minute)

	v.SetDefault("site.name", "Storefront")
	v.SetDefault("site.base_url", "")
	v.SetDefault("site.currency", "USD")
	v.SetDefault("site.lang", "en")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("dev.enabled", false)
	v.SetDefault("dev.watch", false)
	v.SetDefault("dev.templates", "")
}

// ReadFile reads path, or storefront.yaml from the working directory when
// path is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Site.Currency = strings.ToUpper(strings.TrimSpace(cfg.Site.Currency))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Data.BaseURL = strings.TrimSpace(cfg.Data.BaseURL)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Data.Dir == "" && cfg.Data.BaseURL == "" {
		return errors.New("one of data.dir or data.base_url is required")
	}
	if cfg.Data.BaseURL != "" && !strings.HasPrefix(cfg.Data.BaseURL, "http://") && !strings.HasPrefix(cfg.Data.BaseURL, "https://") {
		return fmt.Errorf("data.base_url %q must be an http(s) URL", cfg.Data.BaseURL)
	}
	if cfg.Data.Timeout <= 0 {
		return fmt.Errorf("data.timeout must be positive, got %s", cfg.Data.Timeout)
	}
	if cfg.Data.Catalog == "" {
		return errors.New("data.catalog is required")
	}
	if len(cfg.Site.Currency) != 3 {
		return fmt.Errorf("site.currency %q is not an ISO 4217 code", cfg.Site.Currency)
	}
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q must be json or text", cfg.Log.Format)
	}
	return nil
}

// NewLogger builds the process logger described by cfg.
func NewLogger(cfg LogConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetLevel(level)
	if cfg.Format == "text" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap:        logrus.FieldMap{logrus.FieldKeyTime: "ts", logrus.FieldKeyMsg: "msg"},
		})
	}
	return l, nil
}
