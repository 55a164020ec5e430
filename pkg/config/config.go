package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IDXLENS_"

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
		// Collector aggregates repeated errors and ships them to Kafka.
		Collector struct {
			Enabled     bool          `yaml:"enabled"`
			Topic       string        `yaml:"topic" default:"idxlens.logs"`
			Interval    time.Duration `yaml:"interval" default:"30s"`
			Threshold   int           `yaml:"threshold" default:"100"`
			IncludeWarn bool          `yaml:"include_warn"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	Data struct {
		// Source is csv or clickhouse.
		Source  string `yaml:"source" default:"csv"`
		CSVPath string `yaml:"csv_path" default:"data/nifty50.csv"`
		Symbol  string `yaml:"symbol" default:"NIFTY 50"`
	} `yaml:"data"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"idxlens"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert" default:"true"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
		ReportTopic  string   `yaml:"report_topic" default:"idxlens.reports"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Ingest struct {
			Enabled     bool          `yaml:"enabled"`
			Topic       string        `yaml:"topic" default:"idxlens.records"`
			GroupID     string        `yaml:"group_id" default:"idxlens-ingest"`
			StartOffset string        `yaml:"start_offset" default:"earliest"`
			Workers     int           `yaml:"workers" default:"2"`
			BufferSize  int           `yaml:"buffer_size" default:"256"`
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic    string        `yaml:"dlq_topic" default:"idxlens.records.dlq"`
			MinBytes    int           `yaml:"min_bytes" default:"1"`
			MaxBytes    int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"ingest"`
	} `yaml:"kafka"`
	Cache struct {
		// Backend is memory, redis or none.
		Backend    string        `yaml:"backend" default:"memory"`
		TTL        time.Duration `yaml:"ttl" default:"5m"`
		MaxEntries int           `yaml:"max_entries" default:"1024"`
		Redis      struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	RateLimit struct {
		// RPS is the refill rate per client and endpoint; 0 disables limiting.
		RPS   float64 `yaml:"rps" default:"5"`
		Burst int     `yaml:"burst" default:"10"`
	} `yaml:"rate_limit"`
	Analytics struct {
		MovingAverageWindows []int         `yaml:"moving_average_windows" default:"[20,50,200]"`
		Workers              int           `yaml:"workers" default:"4"`
		Timeout              time.Duration `yaml:"timeout" default:"45s"`
		Forecast             Forecast      `yaml:"forecast"`
	} `yaml:"analytics"`
	Scheduler struct {
		Enabled      bool          `yaml:"enabled"`
		Spec         string        `yaml:"spec" default:"0 30 18 * * 1-5"`
		Timezone     string        `yaml:"timezone" default:"Asia/Kolkata"`
		Symbols      []string      `yaml:"symbols"`
		LookbackDays int           `yaml:"lookback_days" default:"730"`
		Timeout      time.Duration `yaml:"timeout" default:"2m"`
		LockTTL      time.Duration `yaml:"lock_ttl" default:"6h"`
	} `yaml:"scheduler"`
}

// Forecast holds the engine defaults; requests may override the horizon,
// interval, samples and seed.
type Forecast struct {
	HorizonDays           int           `yaml:"horizon_days" default:"30"`
	MaxHorizonDays        int           `yaml:"max_horizon_days" default:"365"`
	IntervalWidth         float64       `yaml:"interval_width" default:"0.8"`
	Samples               int           `yaml:"samples" default:"500"`
	Seed                  int64         `yaml:"seed" default:"42"`
	ChangepointPriorScale float64       `yaml:"changepoint_prior_scale" default:"0.05"`
	SeasonalityPriorScale float64       `yaml:"seasonality_prior_scale" default:"10"`
	NChangepoints         int           `yaml:"n_changepoints" default:"25"`
	ChangepointRange      float64       `yaml:"changepoint_range" default:"0.8"`
	Changepoints          []string      `yaml:"changepoints"`
	Weekly                string        `yaml:"weekly_seasonality" default:"auto"`
	Yearly                string        `yaml:"yearly_seasonality" default:"auto"`
	MinHistory            int           `yaml:"min_history" default:"10"`
	MaxConditionNumber    float64       `yaml:"max_condition_number" default:"1e12"`
	FitTimeout            time.Duration `yaml:"fit_timeout" default:"20s"`
}

// Default returns the configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with IDXLENS_* environment
// variables. An empty path means defaults plus environment only.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"ENV":                 &c.Environment,
		"LOG_LEVEL":           &c.Log.Level,
		"LOG_FORMAT":          &c.Log.Format,
		"DATA_SOURCE":         &c.Data.Source,
		"CSV_PATH":            &c.Data.CSVPath,
		"SYMBOL":              &c.Data.Symbol,
		"CLICKHOUSE_HOST":     &c.ClickHouse.Host,
		"CLICKHOUSE_DATABASE": &c.ClickHouse.Database,
		"CLICKHOUSE_USER":     &c.ClickHouse.User,
		"CLICKHOUSE_PASSWORD": &c.ClickHouse.Password,
		"CACHE_BACKEND":       &c.Cache.Backend,
		"REDIS_ADDR":          &c.Cache.Redis.Addr,
		"REDIS_PASSWORD":      &c.Cache.Redis.Password,
		"SCHEDULER_SPEC":      &c.Scheduler.Spec,
	}
	for k, dst := range str {
		if v, ok := lookup(EnvPrefix + k); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"HTTP_PORT":       &c.Server.Port,
		"CLICKHOUSE_PORT": &c.ClickHouse.Port,
	}
	for k, dst := range ints {
		if v, ok := lookup(EnvPrefix + k); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("env %s%s: %w", EnvPrefix, k, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"KAFKA_ENABLED":     &c.Kafka.Enabled,
		"INGEST_ENABLED":    &c.Kafka.Ingest.Enabled,
		"SCHEDULER_ENABLED": &c.Scheduler.Enabled,
	}
	for k, dst := range bools {
		if v, ok := lookup(EnvPrefix + k); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("env %s%s: %w", EnvPrefix, k, err)
			}
			*dst = b
		}
	}

	if v, ok := lookup(EnvPrefix + "KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "SCHEDULER_SYMBOLS"); ok && v != "" {
		c.Scheduler.Symbols = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid. All problems are reported
// at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, a ...interface{}) { errs = append(errs, fmt.Errorf(format, a...)) }

	if c.Environment == "" {
		fail("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		fail("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Data.Source {
	case "csv":
		if c.Data.CSVPath == "" {
			fail("data.csv_path is required for the csv source")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			fail("clickhouse.host is required for the clickhouse source")
		}
	default:
		fail("data.source must be 'csv' or 'clickhouse', got '%s'", c.Data.Source)
	}
	if strings.TrimSpace(c.Data.Symbol) == "" {
		fail("data.symbol is required")
	}
	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			fail("cache.redis.addr is required for the redis backend")
		}
	default:
		fail("cache.backend must be 'memory', 'redis' or 'none', got '%s'", c.Cache.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		fail("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Ingest.Enabled && !c.Kafka.Enabled {
		fail("kafka.ingest requires kafka.enabled")
	}
	if c.Log.Collector.Enabled && !c.Kafka.Enabled {
		fail("log.collector requires kafka.enabled")
	}
	for _, w := range c.Analytics.MovingAverageWindows {
		if w <= 0 {
			fail("analytics.moving_average_windows must be positive, got %d", w)
		}
	}
	if c.Analytics.Workers <= 0 {
		fail("analytics.workers must be positive")
	}
	for name, mode := range map[string]string{"weekly": c.Analytics.Forecast.Weekly, "yearly": c.Analytics.Forecast.Yearly} {
		switch mode {
		case "auto", "on", "off":
		default:
			fail("analytics.forecast.%s_seasonality must be auto, on or off, got '%s'", name, mode)
		}
	}
	if c.Scheduler.Enabled {
		if !c.Kafka.Enabled {
			fail("scheduler requires kafka.enabled to publish reports")
		}
		if c.Scheduler.Spec == "" {
			fail("scheduler.spec is required")
		}
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			fail("scheduler.timezone: %v", err)
		}
		if c.Scheduler.LookbackDays <= 0 {
			fail("scheduler.lookback_days must be positive")
		}
	}
	return errors.Join(errs...)
}

// SchedulerSymbols returns the scheduled symbols, defaulting to the data symbol.
func (c *Config) SchedulerSymbols() []string {
	if len(c.Scheduler.Symbols) > 0 {
		return c.Scheduler.Symbols
	}
	return []string{c.Data.Symbol}
}
