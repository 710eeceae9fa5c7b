// Package config holds the settings shared by every fundwl command.
// Values come from flags, FUNDWL_* environment variables and an optional
// fundwl.yaml, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/komsit37/fundwl/pkg/fundwl/eastmoney"
)

const (
	EnvPrefix = "FUNDWL"
	FileName  = "fundwl"
)

// Keys shared between flags and the config file.
const (
	KeyFunds       = "funds"
	KeyFilter      = "filter"
	KeyColumns     = "columns"
	KeySets        = "sets"
	KeyFormat      = "format"
	KeyPretty      = "pretty"
	KeyColor       = "color"
	KeyTimeout     = "timeout"
	KeyConcurrency = "concurrency"
	KeyRefresh     = "refresh"
	KeyListen      = "listen"
	KeyLogLevel    = "log_level"
	KeyMaxColWidth = "max_col_width"
	KeyPush2       = "endpoints.push2"
	KeyFundmob     = "endpoints.fundmob"
	KeyFundgz      = "endpoints.fundgz"
)

type Endpoints struct {
	Push2   string `mapstructure:"push2"`
	Fundmob string `mapstructure:"fundmob"`
	Fundgz  string `mapstructure:"fundgz"`
}

type Config struct {
	Funds       string        `mapstructure:"funds"`
	Filter      string        `mapstructure:"filter"`
	Columns     []string      `mapstructure:"columns"`
	Sets        []string      `mapstructure:"sets"`
	Format      string        `mapstructure:"format"`
	Pretty      bool          `mapstructure:"pretty"`
	Color       bool          `mapstructure:"color"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
	Refresh     time.Duration `mapstructure:"refresh"`
	Listen      string        `mapstructure:"listen"`
	LogLevel    string        `mapstructure:"log_level"`
	MaxColWidth int           `mapstructure:"max_col_width"`
	Endpoints   Endpoints     `mapstructure:"endpoints"`
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyFunds, "funds.yaml")
	v.SetDefault(KeyFormat, "table")
	v.SetDefault(KeyColor, true)
	v.SetDefault(KeyTimeout, 10*time.Second)
	v.SetDefault(KeyConcurrency, 4)
	v.SetDefault(KeyRefresh, 30*time.Second)
	v.SetDefault(KeyListen, ":8080")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyMaxColWidth, 40)
	v.SetDefault(KeyPush2, eastmoney.DefaultPush2Base)
	v.SetDefault(KeyFundmob, eastmoney.DefaultFundmobURL)
	v.SetDefault(KeyFundgz, eastmoney.DefaultFundgzBase)
}

// New returns a viper instance with defaults, environment binding and the
// config file search path set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", FileName))
	}
	return v
}

// ReadFile reads the config file if there is one.
func ReadFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalid, c.Timeout)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative, got %d", ErrInvalid, c.Concurrency)
	}
	if c.Refresh < time.Second {
		return fmt.Errorf("%w: refresh must be at least 1s, got %s", ErrInvalid, c.Refresh)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalid, err)
	}
	for key, raw := range map[string]string{
		KeyPush2: c.Endpoints.Push2, KeyFundmob: c.Endpoints.Fundmob, KeyFundgz: c.Endpoints.Fundgz,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %s must be an http(s) URL, got %q", ErrInvalid, key, raw)
		}
	}
	return nil
}

// Level is the parsed log level; invalid values fall back to warn.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.WarnLevel
	}
	return lvl
}

// Client returns the eastmoney client settings for c.
func (c Config) Client(log zerolog.Logger) eastmoney.Config {
	return eastmoney.Config{
		Push2Base:  c.Endpoints.Push2,
		FundmobURL: strings.TrimRight(c.Endpoints.Fundmob, "/"),
		FundgzBase: c.Endpoints.Fundgz,
		Timeout:    c.Timeout,
		Logger:     log,
	}
}
