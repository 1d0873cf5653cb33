package rebalance

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the rebalance configuration, usually read from rebalance.yaml.
type Config struct {
	CostRatePct          float64            `yaml:"cost_rate_pct"`
	MinGainThresholdPct  float64            `yaml:"min_gain_threshold_pct"`
	AdditionalInvestment float64            `yaml:"additional_investment_amount"`
	Currency             string             `yaml:"currency"`
	Aliases              map[string]string  `yaml:"aliases"`
	ShareClassSuffixes   []string           `yaml:"share_class_suffixes"`
	LivePrices           map[string]float64 `yaml:"live_prices"`
	// NoDefaultAliases drops the built-in alias table instead of extending it.
	NoDefaultAliases bool   `yaml:"no_default_aliases"`
	LogLevel         string `yaml:"log_level"`
	LogPretty        bool   `yaml:"log_pretty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	p := DefaultParams()
	return &Config{
		CostRatePct:          p.CostRatePct,
		MinGainThresholdPct:  p.MinGainThresholdPct,
		AdditionalInvestment: p.AdditionalInvestment,
		Currency:             DefaultCurrency,
		LogLevel:             "info",
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig. A
// missing file is not an error. Then, a .env file is loaded if present and
// REBALANCE_* environment variables override the file values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %q: %w", path, err)
			}
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides configuration values with REBALANCE_* variables.
func (c *Config) applyEnv() error {
	var errs []error
	floatEnv := func(key string, dst *float64) {
		if v, ok, err := getEnvAsFloat(key); err != nil {
			errs = append(errs, err)
		} else if ok {
			*dst = v
		}
	}
	floatEnv("REBALANCE_COST_RATE_PCT", &c.CostRatePct)
	floatEnv("REBALANCE_MIN_GAIN_THRESHOLD_PCT", &c.MinGainThresholdPct)
	floatEnv("REBALANCE_ADDITIONAL_INVESTMENT", &c.AdditionalInvestment)
	c.Currency = getEnv("REBALANCE_CURRENCY", c.Currency)
	c.LogLevel = getEnv("REBALANCE_LOG_LEVEL", c.LogLevel)
	if v := getEnv("REBALANCE_LOG_PRETTY", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid REBALANCE_LOG_PRETTY %q: %w", v, err))
		}
		c.LogPretty = b
	}
	return errors.Join(errs...)
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Params().Validate(); err != nil {
		errs = append(errs, err)
	}
	for id, p := range c.LivePrices {
		if !(p > 0) {
			errs = append(errs, fmt.Errorf("live price of %q must be positive, got %v", id, p))
		}
	}
	if _, err := NewResolver(c.aliases()); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Params returns the decision parameters.
func (c *Config) Params() Params {
	return Params{
		CostRatePct:          c.CostRatePct,
		MinGainThresholdPct:  c.MinGainThresholdPct,
		AdditionalInvestment: c.AdditionalInvestment,
	}
}

// aliases merges the configured aliases over the built-in ones.
func (c *Config) aliases() Aliases {
	a := DefaultAliases()
	if c.NoDefaultAliases {
		a.Names = make(map[string]string)
	}
	for name, symbol := range c.Aliases {
		// configured names override built-in ones with the same normalized key.
		for existing := range a.Names {
			if Normalize(existing) == Normalize(name) {
				delete(a.Names, existing)
			}
		}
		a.Names[name] = symbol
	}
	if len(c.ShareClassSuffixes) > 0 {
		a.ShareClassSuffixes = c.ShareClassSuffixes
	}
	return a
}

// Resolver builds the identity resolver of this configuration.
func (c *Config) Resolver() (*Resolver, error) {
	return NewResolver(c.aliases())
}

// Live returns the configured live prices keyed by canonical id.
func (c *Config) Live(r *Resolver) LivePrices {
	live := make(LivePrices, len(c.LivePrices))
	for name, p := range c.LivePrices {
		live[r.Resolve(name)] = p
	}
	return live
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string) (float64, bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, true, nil
}
