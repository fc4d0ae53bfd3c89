package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/eventdrain"
	"github.com/zero-day-ai/eventdrain/store"
)

// Defaults.
const (
	DefaultQueue           = "events_queue"
	DefaultWorkers         = 8
	DefaultIdleTimeout     = 5 * time.Second
	DefaultChannelCapacity = 256
	DefaultConnectTimeout  = 5 * time.Second
	DefaultLogLevel        = "info"
	DefaultOutputDir       = "../output"
	DefaultPrefix          = "eventdrain"
)

// Environment variables read by ApplyEnv.
const (
	EnvRedisHost = "REDIS_HOST"
	EnvQueue     = "EVENTDRAIN_QUEUE"
	EnvWorkers   = "EVENTDRAIN_WORKERS"
	EnvStore     = "EVENTDRAIN_STORE"
	EnvLogLevel  = "EVENTDRAIN_LOG_LEVEL"
)

// FileNames are the names Load looks for inside a directory.
var FileNames = []string{"eventdrain.yaml", "eventdrain.yml"}

// ErrNoConfigFile is returned by Load and LoadFromDir when a directory holds
// none of FileNames.
var ErrNoConfigFile = errors.New("no config file found")

// Config is the complete run configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error. Default: info
	LogLevel string `yaml:"log_level,omitempty"`

	Redis    RedisConfig    `yaml:"redis,omitempty"`
	Pipeline PipelineConfig `yaml:"pipeline,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
}

// RedisConfig locates the queue transport.
type RedisConfig struct {
	// Host is host[:port] or a redis:// URL. Normally set from REDIS_HOST.
	Host string `yaml:"host,omitempty"`

	// ConnectTimeout bounds each worker's connection attempt.
	// Format: Go duration string (e.g., "5s"). Default: 5s
	ConnectTimeout string `yaml:"connect_timeout,omitempty"`
}

// PipelineConfig sizes the worker pool and aggregator.
type PipelineConfig struct {
	// Queue is the Redis list to drain. Default: events_queue
	Queue string `yaml:"queue,omitempty"`

	// Workers is the number of concurrent workers. Default: 8
	Workers int `yaml:"workers,omitempty"`

	// IdleTimeout is how long a worker waits on an empty queue before it
	// terminates. Format: Go duration string. Default: 5s
	IdleTimeout string `yaml:"idle_timeout,omitempty"`

	// ChannelCapacity bounds the items in flight between workers and sink.
	// Default: 256
	ChannelCapacity int `yaml:"channel_capacity,omitempty"`
}

// StoreConfig selects the record backend.
type StoreConfig struct {
	// Driver is csv, sqlite, postgres or kafka. Default: csv
	Driver string `yaml:"driver,omitempty"`

	// Dir and Prefix name the CSV output file. Defaults: ../output, eventdrain
	Dir    string `yaml:"dir,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`

	// Header writes a column header row to CSV output.
	Header bool `yaml:"header,omitempty"`

	// DSN is the SQLite path or PostgreSQL connection string.
	DSN string `yaml:"dsn,omitempty"`

	// Table receives SQL records. Default: records
	Table string `yaml:"table,omitempty"`

	// Brokers and Topic configure the Kafka backend.
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty"`
}

// GetQueue returns the configured queue name or the default.
func (p PipelineConfig) GetQueue() string {
	if p.Queue == "" {
		return DefaultQueue
	}
	return p.Queue
}

// GetWorkers returns the configured worker count or the default.
func (p PipelineConfig) GetWorkers() int {
	if p.Workers <= 0 {
		return DefaultWorkers
	}
	return p.Workers
}

// GetIdleTimeout parses the idle timeout, returning the default if unset or invalid.
func (p PipelineConfig) GetIdleTimeout() time.Duration {
	return parseDuration(p.IdleTimeout, DefaultIdleTimeout)
}

// GetChannelCapacity returns the configured capacity or the default.
func (p PipelineConfig) GetChannelCapacity() int {
	if p.ChannelCapacity <= 0 {
		return DefaultChannelCapacity
	}
	return p.ChannelCapacity
}

// GetConnectTimeout parses the connect timeout, returning the default if unset or invalid.
func (r RedisConfig) GetConnectTimeout() time.Duration {
	return parseDuration(r.ConnectTimeout, DefaultConnectTimeout)
}

// GetLogLevel returns the configured log level or the default.
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return DefaultLogLevel
	}
	return strings.ToLower(c.LogLevel)
}

// StoreOptions converts the store section into store.Options.
func (c *Config) StoreOptions() store.Options {
	s := c.Store
	opts := store.Options{
		Driver:  s.Driver,
		Dir:     s.Dir,
		Prefix:  s.Prefix,
		Header:  s.Header,
		DSN:     s.DSN,
		Table:   s.Table,
		Brokers: s.Brokers,
		Topic:   s.Topic,
	}
	if opts.Driver == "" {
		opts.Driver = store.DriverCSV
	}
	if opts.Dir == "" {
		opts.Dir = DefaultOutputDir
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	return opts
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ApplyEnv overrides fields from environment variables found by lookup
// (normally os.LookupEnv). Unset variables leave fields unchanged.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRedisHost); ok && v != "" {
		c.Redis.Host = v
	}
	if v, ok := lookup(EnvQueue); ok && v != "" {
		c.Pipeline.Queue = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, v, err)
		}
		c.Pipeline.Workers = n
	}
	if v, ok := lookup(EnvStore); ok && v != "" {
		c.Store.Driver = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate reports every problem with the configuration. A missing Redis
// host wraps eventdrain.ErrMissingRedisHost.
func (c *Config) Validate() error {
	var errs []error

	if c.Redis.Host == "" {
		errs = append(errs, eventdrain.ErrMissingRedisHost)
	}
	if err := checkDuration("redis.connect_timeout", c.Redis.ConnectTimeout); err != nil {
		errs = append(errs, err)
	}
	if err := checkDuration("pipeline.idle_timeout", c.Pipeline.IdleTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.Pipeline.Workers < 0 {
		errs = append(errs, fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers))
	}
	if c.Pipeline.ChannelCapacity < 0 {
		errs = append(errs, fmt.Errorf("pipeline.channel_capacity must be positive, got %d", c.Pipeline.ChannelCapacity))
	}

	switch c.GetLogLevel() {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}

	switch c.Store.Driver {
	case "", store.DriverCSV:
	case store.DriverSQLite, store.DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver))
		}
	case store.DriverKafka:
		if len(c.Store.Brokers) == 0 {
			errs = append(errs, fmt.Errorf("store.brokers is required for driver kafka"))
		}
		if c.Store.Topic == "" {
			errs = append(errs, fmt.Errorf("store.topic is required for driver kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	if len(errs) == 0 {
		return nil
	}
	return eventdrain.NewConfigurationError("config.Validate", errors.Join(errs...))
}

func checkDuration(name, s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, s)
	}
	return nil
}

// Load reads and parses a config file. If path is a directory, it looks for
// eventdrain.yaml or eventdrain.yml inside it.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range FileNames {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("%w: no %s in %s", ErrNoConfigFile, strings.Join(FileNames, " or "), path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadFromDir searches for a config file starting from dir and walking up to
// parent directories until one is found or the root is reached. The walk
// stops at the first config file: one that cannot be read or parsed is an
// error, not a reason to keep looking.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		cfg, err := Load(absDir)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, ErrNoConfigFile) {
			return nil, err
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("%w in %s or parent directories", ErrNoConfigFile, dir)
		}
		absDir = parent
	}
}

// Resolve builds the effective configuration: the file at path (or, when
// path is empty, the nearest config file above the working directory if
// any), overlaid with the environment. Errors are configuration errors; a
// config file that exists but does not parse is never skipped.
func Resolve(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg, err := resolveFile(path)
	if err != nil {
		return nil, eventdrain.NewConfigurationError("config.Resolve", err)
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, eventdrain.NewConfigurationError("config.Resolve", err)
	}
	return cfg, nil
}

func resolveFile(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	cfg, err := LoadFromDir(cwd)
	if errors.Is(err, ErrNoConfigFile) {
		// the config file is optional
		return &Config{}, nil
	}
	return cfg, err
}
