package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/zeu5/pricing-rl/buybox"
	"gopkg.in/yaml.v3"
)

// Market kinds understood by the factory
const (
	KindLogit      = "logit"
	KindBuyBox     = "logit-buybox"
	KindBertrand   = "bertrand"
	KindSequential = "sequential"
)

// Config is the on-disk configuration shape (YAML)
type Config struct {
	Market     MarketConfig     `yaml:"market"`
	BuyBox     BuyBoxConfig     `yaml:"buybox"`
	Experiment ExperimentConfig `yaml:"experiment"`
	Solver     SolverConfig     `yaml:"solver"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
}

type MarketConfig struct {
	Kind         string  `yaml:"kind" json:"kind"`
	PriceMin     float64 `yaml:"price_min" json:"price_min"`
	PriceMax     float64 `yaml:"price_max" json:"price_max"`
	GridSize     int     `yaml:"grid_size" json:"grid_size"`
	MarginalCost float64 `yaml:"marginal_cost" json:"marginal_cost"`
	A0           float64 `yaml:"a_0" json:"a_0"`
	A12          float64 `yaml:"a_12" json:"a_12"`
	Mu           float64 `yaml:"mu" json:"mu"`
	Discount     float64 `yaml:"discount" json:"discount"`
	Seed         uint64  `yaml:"seed" json:"seed"`

	// sequential market only
	NumFirms  int `yaml:"n_firms" json:"n_firms"`
	NumPrices int `yaml:"n_prices" json:"n_prices"`
}

type BuyBoxConfig struct {
	Utility float64 `yaml:"utility"`
	// a logistic model in YAML, the built-in model is used when empty
	ModelFile string `yaml:"model_file"`
	// model server, takes precedence over ModelFile
	RemoteURL     string        `yaml:"remote_url"`
	RemoteTimeout time.Duration `yaml:"remote_timeout"`
	// pre-computed predictions loaded into the cache
	TableFile     string                 `yaml:"table_file"`
	Cache         string                 `yaml:"cache"` // none, memory, redis
	Redis         RedisConfig            `yaml:"redis"`
	OracleTimeout time.Duration          `yaml:"oracle_timeout"`
	Sellers       []buybox.SellerProfile `yaml:"sellers"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type ExperimentConfig struct {
	Episodes     int     `yaml:"episodes"`
	Horizon      int     `yaml:"horizon"`
	Runs         int     `yaml:"runs"`
	Parallelism  int     `yaml:"parallelism"`
	SavePath     string  `yaml:"save_path"`
	RecordTraces bool    `yaml:"record_traces"`
	Temperature  float64 `yaml:"temperature"`
	Seed         uint64  `yaml:"seed"`
}

type SolverConfig struct {
	MaxIterations int           `yaml:"max_iterations"`
	Tolerance     float64       `yaml:"tolerance"`
	Timeout       time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// gin mode: debug, release or test
	Mode           string   `yaml:"mode"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	// storage is disabled when empty
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// DefaultMarket returns the defaults of a market kind
func DefaultMarket(kind string) MarketConfig {
	c := MarketConfig{
		Kind:         kind,
		PriceMin:     0.01,
		PriceMax:     10.0,
		GridSize:     100,
		MarginalCost: 2.0,
		A0:           0,
		A12:          10,
		Mu:           0.25,
		Discount:     0.95,
		NumFirms:     2,
		NumPrices:    6,
	}
	return c
}

func Default() *Config {
	return &Config{
		Market: DefaultMarket(KindLogit),
		BuyBox: BuyBoxConfig{
			Utility:       1.5,
			RemoteTimeout: 10 * time.Second,
			Cache:         "memory",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "buybox:",
			},
			OracleTimeout: 5 * time.Second,
			Sellers: []buybox.SellerProfile{
				{IsAmazon: false, IsFBA: true},
				{IsAmazon: false, IsFBA: false},
			},
		},
		Experiment: ExperimentConfig{
			Episodes:    10000,
			Horizon:     100,
			Runs:        1,
			Parallelism: 1,
			SavePath:    "results",
			Temperature: 0.5,
		},
		Solver: SolverConfig{
			MaxIterations: 200,
			Tolerance:     1e-10,
			Timeout:       10 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":8080",
			Mode: "release",
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleTime:  5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file on top of the defaults, applies the PRICING_*
// environment overrides and validates the result. An empty path only applies
// the overrides.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDotEnv loads the first readable .env file into the environment.
// Variables that are already set are kept.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			return
		}
	}
}

func (c *Config) applyEnv() {
	c.Market.Kind = getEnv("PRICING_MARKET_KIND", c.Market.Kind)
	c.Market.Seed = getEnvUint("PRICING_SEED", c.Market.Seed)
	c.BuyBox.RemoteURL = getEnv("PRICING_BUYBOX_REMOTE_URL", c.BuyBox.RemoteURL)
	c.BuyBox.Cache = getEnv("PRICING_BUYBOX_CACHE", c.BuyBox.Cache)
	c.BuyBox.Redis.Addr = getEnv("PRICING_REDIS_ADDR", c.BuyBox.Redis.Addr)
	c.BuyBox.Redis.Password = getEnv("PRICING_REDIS_PASSWORD", c.BuyBox.Redis.Password)
	c.BuyBox.Redis.DB = getEnvInt("PRICING_REDIS_DB", c.BuyBox.Redis.DB)
	c.Experiment.Episodes = getEnvInt("PRICING_EPISODES", c.Experiment.Episodes)
	c.Experiment.Horizon = getEnvInt("PRICING_HORIZON", c.Experiment.Horizon)
	c.Experiment.Runs = getEnvInt("PRICING_RUNS", c.Experiment.Runs)
	c.Experiment.Temperature = getEnvFloat("PRICING_TEMPERATURE", c.Experiment.Temperature)
	c.Server.Addr = getEnv("PRICING_SERVER_ADDR", c.Server.Addr)
	c.Database.DSN = getEnv("PRICING_DATABASE_DSN", c.Database.DSN)
	c.Log.Level = getEnv("PRICING_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("PRICING_LOG_FORMAT", c.Log.Format)
}

// Validate checks the fields that are not checked by the market constructors
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch c.Market.Kind {
	case KindLogit, KindBuyBox, KindBertrand, KindSequential:
	default:
		return fmt.Errorf("invalid market.kind: %q (valid values: logit, logit-buybox, bertrand, sequential)", c.Market.Kind)
	}
	switch c.BuyBox.Cache {
	case "", "none", "memory":
	case "redis":
		if c.BuyBox.Redis.Addr == "" {
			return errors.New("buybox.redis.addr is required when buybox.cache is redis")
		}
	default:
		return fmt.Errorf("invalid buybox.cache: %q (valid values: none, memory, redis)", c.BuyBox.Cache)
	}
	if c.Experiment.Episodes <= 0 {
		return fmt.Errorf("experiment.episodes must be positive, got %d", c.Experiment.Episodes)
	}
	if c.Experiment.Horizon <= 0 {
		return fmt.Errorf("experiment.horizon must be positive, got %d", c.Experiment.Horizon)
	}
	if c.Experiment.Runs <= 0 {
		return fmt.Errorf("experiment.runs must be positive, got %d", c.Experiment.Runs)
	}
	if c.Experiment.Temperature <= 0 {
		return fmt.Errorf("experiment.temperature must be positive, got %v", c.Experiment.Temperature)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format: %q (valid values: text, json)", c.Log.Format)
	}
	return nil
}

// NewLogger builds the logger described by the log section
func (c LogConfig) NewLogger() *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(c.Level); err == nil {
		log.SetLevel(level)
	}
	if c.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintVal, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
