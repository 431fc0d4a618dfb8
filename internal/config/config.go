package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/storefront/internal/errors"
)

const (
	// JSONFileName and YAMLFileName are the accepted configuration files,
	// tried in that order.
	JSONFileName = "storefront.json"
	YAMLFileName = "storefront.yaml"

	// EnvFileName is the optional dotenv file next to the configuration.
	EnvFileName = ".env"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "STOREFRONT_"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultPageSize is the default shop listing page size.
	DefaultPageSize = 12

	// MaxPageSize caps the listing page size.
	MaxPageSize = 100

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "storefront"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverS3     = "s3"
	DriverRedis  = "redis"
)

var drivers = []string{DriverMemory, DriverFile, DriverS3, DriverRedis}

// Config represents the complete storefront configuration.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `json:"server" yaml:"server"`

	// Catalog locates the product catalog.
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// Store selects the key-value backend for session state.
	Store StoreConfig `json:"store" yaml:"store"`

	// Shop contains listing settings.
	Shop ShopConfig `json:"shop" yaml:"shop"`

	// Metrics contains observability settings.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Log contains logging settings.
	Log LogConfig `json:"log" yaml:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// dir is the directory relative paths resolve against.
	dir string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	ReadTimeout     Duration `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	WriteTimeout    Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	ShutdownTimeout Duration `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`

	// AllowedOrigins lists the origins allowed to open a websocket.
	// Empty allows same-origin requests only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// CatalogConfig locates the product catalog: a JSON file, or a key in the
// configured store when StoreKey is set.
type CatalogConfig struct {
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	StoreKey string `json:"storeKey,omitempty" yaml:"storeKey,omitempty"`
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	// Driver is one of memory, file, s3, redis (default memory).
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`

	// Path is the state file for the file driver.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Bucket, Region and Endpoint configure the s3 driver.
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Prefix namespaces keys for the s3 and redis drivers.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// RedisURL is a redis:// URL for the redis driver.
	RedisURL string `json:"redisUrl,omitempty" yaml:"redisUrl,omitempty"`

	// TTL expires redis keys; zero keeps them forever.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// ShopConfig contains listing settings.
type ShopConfig struct {
	PageSize int `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
}

// MetricsConfig contains observability settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Tracing   bool   `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error (default info).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json (default text).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	c.applyDefaults()
	return c
}

// Load reads configuration from dir. It looks for storefront.json, then
// storefront.yaml; when neither exists the defaults are used. Values from
// the process environment and dir/.env override file values, in that
// order of precedence.
func Load(dir string) (*Config, error) {
	cfg := New()
	cfg.dir = dir
	for _, name := range []string{JSONFileName, YAMLFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadFile(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
			break
		}
	}

	env, err := readDotenv(filepath.Join(dir, EnvFileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from a .json, .yaml or .yml file.
// It does not apply environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithField(path).
			Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithField(path).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.dir = filepath.Dir(path)
	cfg.applyDefaults()
	return cfg, nil
}

func readDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithField(path).
			Wrap(err)
	}
	return env, nil
}

// ApplyEnv overrides fields from STOREFRONT_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("ADDR", &c.Server.Addr)
	str("CATALOG_PATH", &c.Catalog.Path)
	str("CATALOG_KEY", &c.Catalog.StoreKey)
	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_PATH", &c.Store.Path)
	str("STORE_PREFIX", &c.Store.Prefix)
	str("S3_BUCKET", &c.Store.Bucket)
	str("S3_REGION", &c.Store.Region)
	str("S3_ENDPOINT", &c.Store.Endpoint)
	str("REDIS_URL", &c.Store.RedisURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("METRICS_NAMESPACE", &c.Metrics.Namespace)

	if v, ok := lookup(EnvPrefix + "PAGE_SIZE"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.New(errors.CodeConfigValue).WithField(EnvPrefix + "PAGE_SIZE").Wrap(err)
		}
		c.Shop.PageSize = n
	}
	for name, dst := range map[string]*bool{
		"METRICS_ENABLED": &c.Metrics.Enabled,
		"TRACING":         &c.Metrics.Tracing,
	} {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return errors.New(errors.CodeConfigValue).WithField(EnvPrefix + name).Wrap(err)
			}
			*dst = b
		}
	}
	return nil
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(10 * time.Second)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(15 * time.Second)
	}

	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	c.Store.Driver = strings.ToLower(c.Store.Driver)
	if c.Store.Driver == DriverFile && c.Store.Path == "" {
		c.Store.Path = "storefront-state.json"
	}

	if c.Shop.PageSize == 0 {
		c.Shop.PageSize = DefaultPageSize
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(drivers, c.Store.Driver) {
		return errors.New(errors.CodeUnknownStoreDriver).
			WithField("store.driver").
			WithDetail("Got " + strconv.Quote(c.Store.Driver) + ".")
	}
	switch c.Store.Driver {
	case DriverS3:
		if c.Store.Bucket == "" {
			return errors.New(errors.CodeConfigValue).
				WithField("store.bucket").
				WithDetail("The s3 driver needs a bucket.")
		}
	case DriverRedis:
		if c.Store.RedisURL == "" {
			return errors.New(errors.CodeConfigValue).
				WithField("store.redisUrl").
				WithDetail("The redis driver needs a redis:// URL.")
		}
	}
	if c.Catalog.StoreKey != "" && c.Store.Driver == DriverMemory {
		return errors.New(errors.CodeConfigValue).
			WithField("catalog.storeKey").
			WithDetail("A catalog kept in the store needs a persistent store driver.")
	}

	if c.Shop.PageSize < 1 || c.Shop.PageSize > MaxPageSize {
		return errors.New(errors.CodeConfigValue).
			WithField("shop.pageSize").
			WithSuggestion("Use a value between 1 and " + strconv.Itoa(MaxPageSize))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return errors.New(errors.CodeConfigValue).
			WithField("server").
			WithDetail("Timeouts must not be negative.")
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return errors.New(errors.CodeConfigValue).
			WithField("log.level").
			WithSuggestion("Use debug, info, warn or error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New(errors.CodeConfigValue).
			WithField("log.format").
			WithSuggestion("Use text or json")
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}

// SaveTo writes the configuration to path, as YAML or JSON by extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.CodeConfigInvalid).WithField(path).Wrap(err)
	}
	c.configPath = path
	c.dir = filepath.Dir(path)
	return nil
}

// Path returns the path where the config was loaded from, or "".
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory the config was loaded from.
func (c *Config) Dir() string {
	return c.dir
}

// CatalogPath resolves Catalog.Path relative to the config directory.
func (c *Config) CatalogPath() string {
	return c.resolve(c.Catalog.Path)
}

// StorePath resolves Store.Path relative to the config directory.
func (c *Config) StorePath() string {
	return c.resolve(c.Store.Path)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Exists reports whether dir holds a configuration file.
func Exists(dir string) bool {
	for _, name := range []string{JSONFileName, YAMLFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
