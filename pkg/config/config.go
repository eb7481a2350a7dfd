package config

import (
	"fmt"
	"os"
	"time"

	"RegimeEdge/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const startDateLayout = "2006-01-02"

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Server      ServerConfig     `yaml:"server"`
	Logging     LoggingConfig    `yaml:"logging"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Pair        PairConfig       `yaml:"pair"`
	Regime      RegimeConfig     `yaml:"regime"`
	Signal      SignalConfig     `yaml:"signal"`
	Provider    ProviderConfig   `yaml:"provider"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Redis       RedisConfig      `yaml:"redis"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"5000" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowRequest     time.Duration `yaml:"slow_request" default:"5s"`
}

type LoggingConfig struct {
	Level          string        `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format         string        `yaml:"format" default:"console" validate:"oneof=json console"`
	Output         string        `yaml:"output" default:"stdout" validate:"required"`
	CollectorTopic string        `yaml:"collector_topic"`
	FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
	FlushCount     int           `yaml:"flush_count" default:"100" validate:"gte=1"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// PairConfig names the two instruments. Leading drives the signal, Target receives it.
type PairConfig struct {
	Leading string `yaml:"leading" default:"TSLA" validate:"required"`
	Target  string `yaml:"target" default:"BTC-USD" validate:"required,nefield=Leading"`
}

type RegimeConfig struct {
	StartDate string        `yaml:"start_date" default:"2024-01-01" validate:"datetime=2006-01-02"`
	Window    int           `yaml:"window" default:"90" validate:"gte=10"`
	MaxLag    int           `yaml:"max_lag" default:"2" validate:"gte=1,lte=10"`
	Threshold float64       `yaml:"threshold" default:"0.10" validate:"gt=0,lt=1"`
	CacheTTL  time.Duration `yaml:"cache_ttl" default:"24h"`
}

type SignalConfig struct {
	ChangeThreshold  float64       `yaml:"change_threshold" default:"0.0015" validate:"gt=0"`
	IntradayLookback time.Duration `yaml:"intraday_lookback" default:"120h"`
	BarInterval      time.Duration `yaml:"bar_interval" default:"5m"`
	FallbackDays     int           `yaml:"fallback_days" default:"2" validate:"gte=1,lte=30"`
	RefreshInterval  time.Duration `yaml:"refresh_interval" default:"60s"`
}

type ProviderConfig struct {
	Type      string        `yaml:"type" default:"yahoo" validate:"oneof=yahoo clickhouse"`
	BaseURL   string        `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
	UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; RegimeEdge/1.0)"`
	Timeout   time.Duration `yaml:"timeout" default:"10s"`
	Breaker   BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" default:"1"`
	Interval         time.Duration `yaml:"interval" default:"60s"`
	Timeout          time.Duration `yaml:"timeout" default:"30s"`
	ConsecutiveFails uint32        `yaml:"consecutive_fails" default:"5" validate:"gte=1"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"regimeedge"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	DailyTable       string        `yaml:"daily_table" default:"daily_closes"`
	IntradayTable    string        `yaml:"intraday_table" default:"intraday_closes"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers" validate:"required_if=Enabled true"`
	Topic        string        `yaml:"topic" default:"regimeedge.signals"`
	RequiredAcks int           `yaml:"required_acks" default:"-1"`
	Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"regimeedge"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns a configuration made only of defaults.
func Default() *Config {
	c, err := Parse(nil)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error: defaults plus environment are used.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		c, err = Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		c = Default()
	}

	if v := os.Getenv("LEADING_SYMBOL"); v != "" {
		c.Pair.Leading = v
	}
	if v := os.Getenv("TARGET_SYMBOL"); v != "" {
		c.Pair.Target = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider.Type = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitNonEmpty(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Signal.BarInterval <= 0 || c.Signal.IntradayLookback < 2*c.Signal.BarInterval {
		return fmt.Errorf("signal.intraday_lookback must cover at least two bars")
	}
	return nil
}

// StartTime returns the first day of the daily history used by the regime classifier.
func (r RegimeConfig) StartTime() time.Time {
	t, err := time.ParseInLocation(startDateLayout, r.StartDate, time.UTC)
	if err != nil {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// Symbols returns leading and target in that order.
func (p PairConfig) Symbols() []string { return []string{p.Leading, p.Target} }
