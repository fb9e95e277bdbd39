package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/utils"
)

type Config struct {
	Env      string   `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel string   `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Postgres PG       `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Mutation Mutation `yaml:"mutation"`
	Catalog  Catalog  `yaml:"catalog"`
	Auth     Auth     `yaml:"auth"`
	Tracing  Tracing  `yaml:"tracing"`
	Metrics  Metrics  `yaml:"metrics"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":3005"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type GRPC struct {
	Port string `yaml:"port" env:"GRPC_PORT" env-default:":50055"`
}

type PG struct {
	URL             string        `yaml:"url" env:"DB_URL" env-required:"true"`
	MaxConns        int32         `yaml:"max_conns" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env-default:"1h"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env-default:"5s"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	CacheTTL time.Duration `yaml:"cache_ttl" env-default:"10m"`
}

type Kafka struct {
	Brokers       []string      `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	GroupID       string        `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"inventory-service-group"`
	CommandsTopic string        `yaml:"commands_topic" env-default:"inventory_commands"`
	CatalogTopic  string        `yaml:"catalog_topic" env-default:"catalog_events"`
	EventsTopic   string        `yaml:"events_topic" env-default:"inventory_events"`
	Retries       int           `yaml:"retries" env-default:"3"`
	RetryInterval time.Duration `yaml:"retry_interval" env-default:"5s"`
}

// Mutation bounds the optimistic concurrency loop around inventory writes.
type Mutation struct {
	MaxAttempts    int           `yaml:"max_attempts" env-default:"5"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env-default:"10ms"`
	MaxBackoff     time.Duration `yaml:"max_backoff" env-default:"200ms"`
}

type Catalog struct {
	BreakerMaxRequests uint32        `yaml:"breaker_max_requests" env-default:"3"`
	BreakerInterval    time.Duration `yaml:"breaker_interval" env-default:"5s"`
	BreakerTimeout     time.Duration `yaml:"breaker_timeout" env-default:"15s"`
}

type Tracing struct {
	Endpoint    string  `yaml:"endpoint" env:"JAEGER_ENDPOINT" env-default:"localhost:4318"`
	SampleRatio float64 `yaml:"sample_ratio" env:"TRACE_SAMPLE_RATIO" env-default:"1"`
}

type Metrics struct {
	Port string `yaml:"port" env:"METRICS_PORT" env-default:":9095"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret" env:"ACCESS_SECRET"`
}

func Load() (*Config, error) {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}

	return cfg
}
