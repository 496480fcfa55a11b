// Package config resolves schoolctl configuration from defaults, an optional
// YAML file, .env files and SCHOOLCTL_* environment variables, in increasing
// order of precedence. Command-line flags override the result in cmd.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/felixgeelhaar/schoolctl/internal/errors"
	"github.com/felixgeelhaar/schoolctl/internal/log"
)

const (
	// EnvPrefix prefixes every environment override, e.g. SCHOOLCTL_API_URL
	EnvPrefix = "SCHOOLCTL"
	// HomeEnv overrides the configuration directory
	HomeEnv = "SCHOOLCTL_HOME"

	DefaultAPIURL  = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second
)

// Credential backends
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the resolved configuration
type Config struct {
	APIURL      string            `mapstructure:"api_url" yaml:"api_url" json:"api_url"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials" json:"credentials"`
	Redis       RedisConfig       `mapstructure:"redis" yaml:"redis" json:"redis"`
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http" json:"http"`
	Log         LogConfig         `mapstructure:"log" yaml:"log" json:"log"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry" yaml:"telemetry" json:"telemetry"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output" json:"output"`

	// Path is the config file that was read, or would be written by Set
	Path string `mapstructure:"-" yaml:"-" json:"-"`

	v *viper.Viper
}

// CredentialsConfig selects and configures the credential store
type CredentialsConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend" json:"backend"`
	Path       string `mapstructure:"path" yaml:"path" json:"path"`
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase" json:"-"`
}

// RedisConfig configures the redis credential backend
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr" json:"addr"`
	Password string        `mapstructure:"password" yaml:"password" json:"-"`
	DB       int           `mapstructure:"db" yaml:"db" json:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
}

// HTTPConfig configures the API client
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// TelemetryConfig configures OTLP tracing. An empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure" json:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" yaml:"sample_ratio" json:"sample_ratio"`
}

// OutputConfig holds output defaults
type OutputConfig struct {
	Format  string `mapstructure:"format" yaml:"format" json:"format"`
	NoColor bool   `mapstructure:"no_color" yaml:"no_color" json:"no_color"`
}

// Home returns the configuration directory: $SCHOOLCTL_HOME or ~/.schoolctl
func Home() string {
	if h := os.Getenv(HomeEnv); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".schoolctl"
	}
	return filepath.Join(home, ".schoolctl")
}

// DefaultPath returns the default config file path
func DefaultPath() string {
	return filepath.Join(Home(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("credentials.backend", BackendFile)
	v.SetDefault("credentials.path", filepath.Join(Home(), "credentials.json"))
	v.SetDefault("credentials.passphrase", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "schoolctl")
	v.SetDefault("redis.ttl", time.Duration(0))
	v.SetDefault("http.timeout", DefaultTimeout)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("output.format", "text")
	v.SetDefault("output.no_color", false)
}

// Keys lists every known configuration key in sorted order
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// IsKnown reports whether key is a configuration key
func IsKnown(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// loadDotEnv loads ./.env and <home>/.env when present. Existing environment
// variables win over both.
func loadDotEnv() error {
	for _, p := range []string{".env", filepath.Join(Home(), ".env")} {
		if _, err := os.Stat(p); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the configuration. An empty path means DefaultPath; a missing
// file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	if err := loadDotEnv(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, "failed to load .env", err)
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewFileUnmarshalError(path, "YAML", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to decode configuration", err)
	}
	cfg.Path = path
	cfg.v = v

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with only defaults applied
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.Path = DefaultPath()
	cfg.v = v
	return &cfg
}

// Validate checks values that would otherwise fail later and less clearly
func (c *Config) Validate() error {
	var problems []string

	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("api_url %q must be an absolute http(s) URL", c.APIURL))
	}
	switch c.Credentials.Backend {
	case BackendFile, BackendMemory, BackendRedis:
	default:
		problems = append(problems, fmt.Sprintf("credentials.backend %q must be one of file, memory, redis", c.Credentials.Backend))
	}
	if c.Credentials.Backend == BackendRedis && c.Redis.Addr == "" {
		problems = append(problems, "redis.addr is required for the redis backend")
	}
	if c.HTTP.Timeout <= 0 {
		problems = append(problems, "http.timeout must be positive")
	}
	if _, err := log.ParseLevelStrict(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		problems = append(problems, fmt.Sprintf("output.format %q must be one of text, json, yaml", c.Output.Format))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		problems = append(problems, "telemetry.sample_ratio must be between 0 and 1")
	}

	if len(problems) > 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "invalid configuration").WithSuggestions(problems...)
	}
	return nil
}

// Get returns the resolved value of a key as text
func (c *Config) Get(key string) (string, error) {
	if !IsKnown(key) {
		return "", unknownKeyError(key)
	}
	if c.v == nil {
		return "", fmt.Errorf("configuration was not loaded")
	}
	return fmt.Sprint(c.v.Get(key)), nil
}

// Settings returns all resolved key/value pairs
func (c *Config) Settings() map[string]any {
	out := make(map[string]any)
	for _, k := range Keys() {
		if c.v != nil {
			out[k] = c.v.Get(k)
		}
	}
	return out
}

// LoggerConfig converts the logging section into a logger configuration
func (c *Config) LoggerConfig() log.Config {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(c.Log.Level)
	lc.Format = log.ParseFormat(c.Log.Format)
	return lc
}

func unknownKeyError(key string) error {
	return errors.New(errors.ErrCodeConfigUnknown, fmt.Sprintf("unknown configuration key: %s", key)).
		WithSuggestion("Valid keys: " + strings.Join(Keys(), ", "))
}
