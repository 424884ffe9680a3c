package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`

	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Data struct {
		RawCommoditiesDir string      `yaml:"raw_commodities_dir" default:"data/raw/commodities"`
		RawConflictFile   string      `yaml:"raw_conflict_file" default:"data/raw/conflicts/GEDEvent_v25_1.csv"`
		ProcessedDir      string      `yaml:"processed_dir" default:"data/processed"`
		Commodities       []Commodity `yaml:"commodities"`
	} `yaml:"data"`

	Features struct {
		RVWeeklyWindow      int       `yaml:"rv_weekly_window" default:"5"`
		RVMonthlyWindow     int       `yaml:"rv_monthly_window" default:"22"`
		EWMALambdas         []float64 `yaml:"ewma_lambdas"`
		ShockPercentile     float64   `yaml:"shock_percentile" default:"0.95"`
		ShockMinHistoryDays int       `yaml:"shock_min_history_days" default:"365"`
		KeepRegions         []string  `yaml:"keep_regions"`
		OilFocusCountries   []string  `yaml:"oil_focus_countries"`
		GasFocusCountries   []string  `yaml:"gas_focus_countries"`
		ConflictLags        []int     `yaml:"conflict_lags"`
		StartDate           string    `yaml:"start_date" default:"1990-01-01"`
		EndDate             string    `yaml:"end_date" default:"2024-12-31"`
	} `yaml:"features"`

	Evaluation struct {
		TrainingWindow int       `yaml:"training_window" default:"750"`
		Horizon        int       `yaml:"horizon" default:"1"`
		Expanding      bool      `yaml:"expanding"`
		StartDate      string    `yaml:"start_date" default:"2015-01-01"`
		EndDate        string    `yaml:"end_date" default:"2024-12-31"`
		Seed           int64     `yaml:"seed" default:"42"`
		EpsilonFloor   float64   `yaml:"epsilon_floor" default:"0.001"`
		NWLags         int       `yaml:"nw_lags"` // 0 means horizon-1
		DMMinObs       int       `yaml:"dm_min_obs" default:"30"`
		Models         []ModelCfg `yaml:"models"`
		RandomForest   struct {
			Trees    int `yaml:"trees" default:"150"`
			MaxDepth int `yaml:"max_depth" default:"10"`
			MinLeaf  int `yaml:"min_leaf" default:"5"`
		} `yaml:"random_forest"`
	} `yaml:"evaluation"`

	Sinks struct {
		OutDir     string `yaml:"out_dir" default:"results"`
		ClickHouse struct {
			Enabled     bool          `yaml:"enabled"`
			Host        string        `yaml:"host" default:"localhost"`
			Port        int           `yaml:"port" default:"9000"`
			Database    string        `yaml:"database" default:"conflictvol"`
			User        string        `yaml:"user" default:"default"`
			Password    string        `yaml:"password"`
			DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"clickhouse"`
		Kafka struct {
			Enabled     bool     `yaml:"enabled"`
			Brokers     []string `yaml:"brokers"`
			Topic       string   `yaml:"topic" default:"conflictvol.forecasts"`
			Compression string   `yaml:"compression" default:"gzip"`
			BatchSize   int      `yaml:"batch_size" default:"500"`
		} `yaml:"kafka"`
	} `yaml:"sinks"`

	Cache struct {
		Backend string        `yaml:"backend" default:"memory"` // memory or redis
		Addr    string        `yaml:"addr" default:"localhost:6379"`
		DB      int           `yaml:"db"`
		TTL     time.Duration `yaml:"ttl" default:"5m"`
	} `yaml:"cache"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
}

// Commodity pins a commodity folder to its conflict proxy index, mirroring the
// research design: oil to Middle East, gas to Europe, gold to the global index.
type Commodity struct {
	Name         string `yaml:"name"`
	PartsDir     string `yaml:"parts_dir"`
	ConflictProxy string `yaml:"conflict_proxy"` // global, middle_east, europe, africa, oil_focus, gas_focus
}

// ModelCfg declares one model entering the evaluation.
type ModelCfg struct {
	Name             string   `yaml:"name"`
	Kind             string   `yaml:"kind"` // har, har-x, garch, random_forest
	Features         []string `yaml:"features"`
	RefitCadenceDays int      `yaml:"refit_cadence_days" default:"1"`
}

// Load reads and parses a YAML configuration file, applying defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.applySliceDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CONFLICTVOL_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Evaluation.Seed = seed
		}
	}
	if v := os.Getenv("CONFLICTVOL_OUT_DIR"); v != "" {
		c.Sinks.OutDir = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Sinks.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.Sinks.ClickHouse.Password = v
	}
	return c, nil
}

// applySliceDefaults fills slice fields the defaults tag cannot express.
func (c *Config) applySliceDefaults() {
	if len(c.Features.EWMALambdas) == 0 {
		c.Features.EWMALambdas = []float64{0.94, 0.97}
	}
	if len(c.Features.KeepRegions) == 0 {
		c.Features.KeepRegions = []string{"Middle East", "Europe", "Africa"}
	}
	if len(c.Features.ConflictLags) == 0 {
		c.Features.ConflictLags = []int{1}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Data.Commodities) == 0 {
		return fmt.Errorf("data.commodities cannot be empty")
	}
	for _, cm := range c.Data.Commodities {
		if cm.Name == "" || cm.PartsDir == "" {
			return fmt.Errorf("each commodity needs name and parts_dir")
		}
	}
	if c.Evaluation.TrainingWindow <= 0 {
		return fmt.Errorf("evaluation.training_window must be positive")
	}
	if c.Evaluation.Horizon <= 0 {
		return fmt.Errorf("evaluation.horizon must be positive")
	}
	if c.Evaluation.EpsilonFloor <= 0 {
		return fmt.Errorf("evaluation.epsilon_floor must be positive")
	}
	if len(c.Evaluation.Models) == 0 {
		return fmt.Errorf("evaluation.models cannot be empty")
	}
	for _, m := range c.Evaluation.Models {
		switch m.Kind {
		case "har", "har-x", "garch", "random_forest":
		default:
			return fmt.Errorf("model %q: kind must be har, har-x, garch or random_forest, got %q", m.Name, m.Kind)
		}
		if m.RefitCadenceDays <= 0 {
			return fmt.Errorf("model %q: refit_cadence_days must be positive", m.Name)
		}
	}
	if c.Sinks.Kafka.Enabled && len(c.Sinks.Kafka.Brokers) == 0 {
		return fmt.Errorf("sinks.kafka.brokers required when kafka sink enabled")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got %q", c.Cache.Backend)
	}
	return nil
}
