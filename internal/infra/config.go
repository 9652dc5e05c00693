package infra

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Decimal is a yaml-aware decimal.Decimal. yaml.v3 cannot decode into
// decimal.Decimal directly, so config fields use this wrapper.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("decimal value must be a scalar, got %v", value.Kind)
	}
	parsed, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", value.Value, err)
	}
	d.Decimal = parsed
	return nil
}

// FeePair holds a maker/taker fee schedule. Nil pointers mean the fee
// is genuinely unconfigured; callers must not substitute zero.
type FeePair struct {
	Maker *Decimal `yaml:"maker"`
	Taker *Decimal `yaml:"taker"`
}

// ExchangeConfig describes one exchange: endpoints, default funding
// interval and optional per-symbol overrides.
type ExchangeConfig struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	RestURL string `yaml:"rest_url"`
	WSURL   string `yaml:"ws_url"`

	// FundingIntervalHours is the exchange-wide default cadence.
	FundingIntervalHours int `yaml:"funding_interval_hours"`

	// Intervals overrides the cadence for specific normalized symbols
	// (e.g. Aster pays 4h on some listings, 8h on the rest).
	Intervals map[string]int `yaml:"intervals"`

	// DefaultFees applies exchange-wide; Fees overrides per symbol.
	DefaultFees *FeePair           `yaml:"default_fees"`
	Fees        map[string]FeePair `yaml:"fees"`
}

// Config holds the full application configuration. It is loaded once
// and passed by reference into adapters at construction time; there is
// no process-wide config singleton.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Exchanges map[string]*ExchangeConfig `yaml:"exchanges"`

	// Symbols is the tracked normalized symbol universe.
	Symbols []string `yaml:"symbols"`

	Analyzer struct {
		// MinRateDifference is the hourly-rate threshold below which
		// opportunities are dropped. Zero emits everything.
		MinRateDifference Decimal `yaml:"min_rate_difference"`
		TopN              int     `yaml:"top_n"`
	} `yaml:"analyzer"`

	Spread struct {
		UpdateIntervalMS int `yaml:"update_interval_ms"`
		// DefaultPrecision applies when metadata is unavailable on both sides.
		DefaultPrecision int `yaml:"default_precision"`
	} `yaml:"spread"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Export struct {
		Dir string `yaml:"dir"`
	} `yaml:"export"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies .env and
// environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// .env is optional; real environment always wins.
	_ = godotenv.Load()
	overrideWithEnv(&cfg)

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Analyzer.TopN <= 0 {
		c.Analyzer.TopN = 5
	}
	if c.Spread.UpdateIntervalMS <= 0 {
		c.Spread.UpdateIntervalMS = 100
	}
	if c.Spread.DefaultPrecision <= 0 {
		c.Spread.DefaultPrecision = 2
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "exports"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("at least one exchange must be configured")
	}

	enabled := 0
	for key, ex := range c.Exchanges {
		if ex == nil {
			return fmt.Errorf("exchange %q: empty configuration", key)
		}
		if !ex.Enabled {
			continue
		}
		enabled++
		if ex.RestURL == "" || !strings.HasPrefix(ex.RestURL, "http") {
			return fmt.Errorf("exchange %q: invalid rest_url %q", key, ex.RestURL)
		}
		if ex.WSURL != "" && !strings.HasPrefix(ex.WSURL, "ws") {
			return fmt.Errorf("exchange %q: invalid ws_url %q", key, ex.WSURL)
		}
		if ex.FundingIntervalHours <= 0 {
			return fmt.Errorf("exchange %q: funding_interval_hours must be positive", key)
		}
		for sym, hours := range ex.Intervals {
			if hours <= 0 {
				return fmt.Errorf("exchange %q: interval override for %s must be positive", key, sym)
			}
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no exchange is enabled")
	}

	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one tracked symbol is required")
	}

	return nil
}

// Exchange returns the configuration for an exchange key, nil if absent.
func (c *Config) Exchange(name string) *ExchangeConfig {
	return c.Exchanges[name]
}

/// FundingInterval resolves the funding interval in hours for a symbol:
// the symbol-specific override if present, otherwise the exchange
// default. Unknown exchanges fall back to 8h, the industry norm.
func (c *Config) FundingInterval(exchange, symbol string) int {
	ex := c.Exchanges[exchange]
	if ex == nil {
		return 8
	}
	if hours, ok := ex.Intervals[symbol]; ok {
		return hours
	}
	if ex.FundingIntervalHours > 0 {
		return ex.FundingIntervalHours
	}
	return 8
}

// Fees resolves maker/taker fees for a symbol: symbol override first,
// then the exchange-wide default. Both are nil when nothing is
// configured; absence is not a zero fee.
func (c *Config) Fees(exchange, symbol string) (maker, taker *decimal.Decimal) {
	ex := c.Exchanges[exchange]
	if ex == nil {
		return nil, nil
	}
	if pair, ok := ex.Fees[symbol]; ok {
		return pair.unwrap()
	}
	if ex.DefaultFees != nil {
		return ex.DefaultFees.unwrap()
	}
	return nil, nil
}

func (p FeePair) unwrap() (maker, taker *decimal.Decimal) {
	if p.Maker != nil {
		maker = &p.Maker.Decimal
	}
	if p.Taker != nil {
		taker = &p.Taker.Decimal
	}
	return maker, taker
}

// overrideWithEnv applies environment overrides for deploy-time knobs.
func overrideWithEnv(cfg *Config) {
	if level := os.Getenv("FUNDING_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if path := os.Getenv("FUNDING_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if dir := os.Getenv("FUNDING_EXPORT_DIR"); dir != "" {
		cfg.Export.Dir = dir
	}
}
