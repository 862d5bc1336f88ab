// Package config loads the transmission-cli configuration from defaults,
// an optional TOML file, TRANSMISSION_* environment variables and command
// line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	transmission "github.com/jfxdev/go-transmission"
)

// EnvPrefix is prepended to every environment variable, e.g. TRANSMISSION_RPC_URL.
const EnvPrefix = "TRANSMISSION"

type Config struct {
	RPC    RPC    `mapstructure:"rpc"`
	Log    Log    `mapstructure:"log"`
	Output string `mapstructure:"output"`
	Color  bool   `mapstructure:"color"`
}

type RPC struct {
	URL             string        `mapstructure:"url"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RetryOnConflict bool          `mapstructure:"retry_on_conflict"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	RPCVersion      int           `mapstructure:"rpc_version"`
}

type Log struct {
	JSON  bool   `mapstructure:"json_format"`
	Level string `mapstructure:"level"`
	// Output is stdout, stderr or a directory for rotated log files.
	Output string `mapstructure:"output"`
}

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"url":               "rpc.url",
	"username":          "rpc.username",
	"password":          "rpc.password",
	"timeout":           "rpc.timeout",
	"retry-on-conflict": "rpc.retry_on_conflict",
	"rate-limit":        "rpc.rate_limit",
	"rate-burst":        "rpc.rate_burst",
	"rpc-version":       "rpc.rpc_version",
	"log-json":          "log.json_format",
	"log-level":         "log.level",
	"log-output":        "log.output",
	"output":            "output",
	"color":             "color",
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()

	// defaults
	v.SetDefault("rpc.url", transmission.DefaultURL)
	v.SetDefault("rpc.username", "")
	v.SetDefault("rpc.password", "")
	v.SetDefault("rpc.timeout", transmission.DefaultRequestTimeout)
	v.SetDefault("rpc.retry_on_conflict", true)
	v.SetDefault("rpc.rate_limit", 0)
	v.SetDefault("rpc.rate_burst", transmission.DefaultRateBurst)
	v.SetDefault("rpc.rpc_version", 0)
	v.SetDefault("log.json_format", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("output", OutputText)
	v.SetDefault("color", true)

	// TRANSMISSION_*
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// BindFlags binds every known flag present in flags to its configuration key.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional TOML file at path and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unsupported output format %q", c.Output)
	}
	switch c.Log.Level {
	case "debug", "info":
	default:
		return fmt.Errorf("unsupported log level %q", c.Log.Level)
	}
	if c.RPC.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

// ClientConfig converts the RPC section into a client configuration.
func (c *Config) ClientConfig() transmission.Config {
	return transmission.Config{
		URL:             c.RPC.URL,
		Username:        c.RPC.Username,
		Password:        c.RPC.Password,
		RequestTimeout:  c.RPC.Timeout,
		RetryOnConflict: c.RPC.RetryOnConflict,
		RateLimit:       c.RPC.RateLimit,
		RateBurst:       c.RPC.RateBurst,
		RPCVersion:      c.RPC.RPCVersion,
	}
}

// printable mirrors Config with the layout of the TOML file.
type printable struct {
	RPC struct {
		URL             string  `toml:"url"`
		Username        string  `toml:"username"`
		Password        string  `toml:"password"`
		Timeout         string  `toml:"timeout"`
		RetryOnConflict bool    `toml:"retry_on_conflict"`
		RateLimit       float64 `toml:"rate_limit"`
		RateBurst       int     `toml:"rate_burst"`
		RPCVersion      int     `toml:"rpc_version"`
	} `toml:"rpc"`
	Log struct {
		JSON   bool   `toml:"json_format"`
		Level  string `toml:"level"`
		Output string `toml:"output"`
	} `toml:"log"`
	Output string `toml:"output"`
	Color  bool   `toml:"color"`
}

// Print writes the effective configuration as TOML. The password is masked.
func (c *Config) Print(w io.Writer) error {
	var p printable
	p.RPC.URL = c.RPC.URL
	p.RPC.Username = c.RPC.Username
	if c.RPC.Password != "" {
		p.RPC.Password = "********"
	}
	p.RPC.Timeout = c.RPC.Timeout.String()
	p.RPC.RetryOnConflict = c.RPC.RetryOnConflict
	p.RPC.RateLimit = c.RPC.RateLimit
	p.RPC.RateBurst = c.RPC.RateBurst
	p.RPC.RPCVersion = c.RPC.RPCVersion
	p.Log.JSON = c.Log.JSON
	p.Log.Level = c.Log.Level
	p.Log.Output = c.Log.Output
	p.Output = c.Output
	p.Color = c.Color

	return toml.NewEncoder(w).Encode(p)
}
