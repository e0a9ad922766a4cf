// Package config loads memobench settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/IvanBrykalov/memolru/cache"
)

// EnvPrefix prefixes every environment override, e.g. MEMOLRU_CAPACITY.
const EnvPrefix = "MEMOLRU"

// PreloadAuto asks Load to preload half the capacity.
const PreloadAuto = -1

// Config is the fully resolved configuration.
type Config struct {
	// Capacity is parsed loosely, see ParseCapacity.
	Capacity int    `mapstructure:"-"`
	Policy   string `mapstructure:"policy"`

	Workers      int           `mapstructure:"workers"`
	Duration     time.Duration `mapstructure:"duration"`
	ReadPct      int           `mapstructure:"reads"`
	Keys         int           `mapstructure:"keys"`
	ZipfS        float64       `mapstructure:"zipf_s"`
	ZipfV        float64       `mapstructure:"zipf_v"`
	Seed         int64         `mapstructure:"seed"` // memobench seeds its --seed flag from the clock
	Preload      int           `mapstructure:"preload"`
	FactoryDelay time.Duration `mapstructure:"factory_delay"`

	MetricsAddr string `mapstructure:"metrics_addr"`
	PprofAddr   string `mapstructure:"pprof_addr"`

	Log Logging `mapstructure:"log"`
}

// Logging selects the log level and output format.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Policies lists the accepted Policy values.
var Policies = []string{"lru", "scored"}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("capacity", 100_000)
	v.SetDefault("policy", "lru")
	v.SetDefault("workers", 4)
	v.SetDefault("duration", 10*time.Second)
	v.SetDefault("reads", 80)
	v.SetDefault("keys", 1_000_000)
	v.SetDefault("zipf_s", 1.1)
	v.SetDefault("zipf_v", 1.0)
	v.SetDefault("preload", PreloadAuto)
	v.SetDefault("factory_delay", time.Duration(0))
	v.SetDefault("metrics_addr", ":8080")
	v.SetDefault("pprof_addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load resolves configuration from v. Defaults are applied, MEMOLRU_*
// environment variables override them, and file (when non-empty) is read
// as the config file.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	capacity, err := ParseCapacity(v.Get("capacity"))
	if err != nil {
		return Config{}, err
	}
	cfg.Capacity = capacity
	if cfg.Preload == PreloadAuto {
		cfg.Preload = cfg.Capacity / 2
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseCapacity converts a loosely typed capacity (int, float, numeric
// string) into an entry count. Fractions are truncated; nil yields
// cache.DefaultCapacity.
func ParseCapacity(raw any) (int, error) {
	if raw == nil {
		return cache.DefaultCapacity, nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: capacity %v: %v", ErrInvalid, raw, err)
	}
	if math.IsNaN(f) || f < 1 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%w: capacity %v out of range [1, %d]", ErrInvalid, raw, math.MaxInt32)
	}
	return int(f), nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(Policies, c.Policy) {
		errs = append(errs, fmt.Errorf("%w: policy %q (want one of %v)", ErrInvalid, c.Policy, Policies))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalid, c.Workers))
	}
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("%w: duration must be > 0, got %s", ErrInvalid, c.Duration))
	}
	if c.ReadPct < 0 || c.ReadPct > 100 {
		errs = append(errs, fmt.Errorf("%w: reads must be in [0, 100], got %d", ErrInvalid, c.ReadPct))
	}
	if c.Keys < 1 {
		errs = append(errs, fmt.Errorf("%w: keys must be >= 1, got %d", ErrInvalid, c.Keys))
	}
	if c.ZipfS <= 1 || c.ZipfV < 1 {
		errs = append(errs, fmt.Errorf("%w: zipf needs s > 1 and v >= 1, got s=%v v=%v", ErrInvalid, c.ZipfS, c.ZipfV))
	}
	if c.Preload < 0 {
		errs = append(errs, fmt.Errorf("%w: preload must be >= 0, got %d", ErrInvalid, c.Preload))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log format %q (want console or json)", ErrInvalid, c.Log.Format))
	}
	return errors.Join(errs...)
}
