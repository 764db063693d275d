// Package config loads the marketetl YAML configuration and applies
// environment variable overrides. The resulting Config is built once in main
// and passed to constructors; nothing in this package holds global state.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Duration wraps time.Duration so YAML values like "30s" or "250ms" parse
// directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level configuration for the marketetl tools.
type Config struct {
	Storage  Storage       `yaml:"storage"`
	Quotes   Quotes        `yaml:"quotes"`
	Alpaca   Alpaca        `yaml:"alpaca"`
	Treasury Treasury      `yaml:"treasury"`
	Universe Universe      `yaml:"universe"`
	Collect  CollectConfig `yaml:"collect"`
	Logging  Logging       `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Quotes configures the quote/options provider HTTP client.
type Quotes struct {
	BaseURL       string   `yaml:"base_url"`
	Timeout       Duration `yaml:"timeout"`
	MaxRetries    int      `yaml:"max_retries"`
	RatePerSecond float64  `yaml:"rate_per_second"`
	RateBurst     int      `yaml:"rate_burst"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API,
// used for daily price bars.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Treasury configures the treasury.gov daily-rates CSV feed.
type Treasury struct {
	BaseURL string   `yaml:"base_url"`
	Delay   Duration `yaml:"delay"`
}

// Universe configures symbol-list sources.
type Universe struct {
	SP500CSV     string `yaml:"sp500_csv"`
	ETFCSV       string `yaml:"etf_csv"`
	IndexCSV     string `yaml:"index_csv"`
	WikipediaURL string `yaml:"wikipedia_url"`
}

// CollectConfig holds the batch-fetch tuning parameters forwarded into the
// dispatcher.
type CollectConfig struct {
	BatchSize      int    `yaml:"batch_size"`
	MaxConcurrent  int    `yaml:"max_concurrent"`
	MaxExpirations int    `yaml:"max_expirations"`
	FanOut         int    `yaml:"fan_out"`
	PricePeriod    string `yaml:"price_period"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Defaults and loading
// ---------------------------------------------------------------------------

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/options/market_data.db",
		},
		Quotes: Quotes{
			BaseURL:       "https://query1.finance.yahoo.com",
			Timeout:       Duration(30 * time.Second),
			MaxRetries:    3,
			RatePerSecond: 10,
			RateBurst:     5,
		},
		Treasury: Treasury{
			BaseURL: "https://home.treasury.gov/resource-center/data-chart-center/interest-rates/daily-treasury-rates.csv",
			Delay:   Duration(100 * time.Millisecond),
		},
		Universe: Universe{
			SP500CSV:     "data/sp500_companies.csv",
			ETFCSV:       "data/index_etfs.csv",
			IndexCSV:     "data/indices.csv",
			WikipediaURL: "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
		},
		Collect: CollectConfig{
			BatchSize:      100,
			MaxConcurrent:  15,
			MaxExpirations: 30,
			FanOut:         8,
			PricePeriod:    "ytd",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML configuration file at path into the defaults, then
// applies environment variable overrides. A missing file is not an error:
// defaults plus environment are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if uerr := yaml.Unmarshal(data, cfg); uerr != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, uerr)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARKETETL_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("MARKETETL_DB_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("MARKETETL_QUOTES_URL"); v != "" {
		cfg.Quotes.BaseURL = v
	}
	if v := os.Getenv("MARKETETL_TREASURY_URL"); v != "" {
		cfg.Treasury.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Canonical Alpaca env vars used by the SDK take priority over the file.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("APCA_API_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
}
