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
	Server      struct {
		Port            int           `yaml:"port" default:"8501"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            struct {
			Enabled      bool     `yaml:"enabled" default:"true"`
			AllowOrigins []string `yaml:"allow_origins" default:"[\"*\"]"`
			MaxAge       int      `yaml:"max_age" default:"600"`
		} `yaml:"cors"`
	} `yaml:"server"`
	Logging struct {
		Level        string `yaml:"level" default:"info"`
		Format       string `yaml:"format" default:"json"`
		Output       string `yaml:"output" default:"stdout"`
		CollectTopic string `yaml:"collect_topic"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Path          string        `yaml:"path" default:"/metrics"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"1s"`
	} `yaml:"metrics"`
	Model struct {
		Backend      string        `yaml:"backend" default:"forest"`
		ArtifactPath string        `yaml:"artifact_path" default:"models/german_credit_forest.json"`
		RemoteURL    string        `yaml:"remote_url"`
		Timeout      time.Duration `yaml:"timeout" default:"3s"`
		Serialize    bool          `yaml:"serialize"`
	} `yaml:"model"`
	Catalog struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`
	RateLimit struct {
		Enabled      bool    `yaml:"enabled" default:"true"`
		Capacity     int     `yaml:"capacity" default:"20"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"2"`
	} `yaml:"ratelimit"`
	Cache struct {
		Backend       string        `yaml:"backend" default:"memory"`
		TTL           time.Duration `yaml:"ttl" default:"10m"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"10000"`
		MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"5m"`
		Redis         struct {
			Host         string        `yaml:"host" default:"localhost"`
			Port         int           `yaml:"port" default:"6379"`
			Password     string        `yaml:"password"`
			DB           int           `yaml:"db"`
			Prefix       string        `yaml:"prefix" default:"creditrisk"`
			PoolSize     int           `yaml:"pool_size" default:"10"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"5"`
			PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Audit struct {
		Backend string `yaml:"backend" default:"none"`
		// Async moves delivery onto a Redis-backed work queue (uses cache.redis for the connection).
		Async bool `yaml:"async"`
		Queue struct {
			Workers    int           `yaml:"workers" default:"2"`
			RetryLimit int           `yaml:"retry_limit" default:"3"`
			RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
			Prefix     string        `yaml:"prefix" default:"creditrisk:queue"`
		} `yaml:"queue"`
		// Ingest consumes kafka.topic and stores the events in ClickHouse.
		Ingest bool `yaml:"ingest"`
	} `yaml:"audit"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"credit-assessments"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"creditrisk-audit-ingest"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"100"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"creditrisk"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error: defaults and environment are enough to run.
func LoadWithEnv(path string) (*Config, error) {
	var c *Config
	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		c, err = Load(path)
	} else {
		c, err = Default()
	}
	if err != nil {
		return nil, err
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("CREDITRISK_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("MODEL_BACKEND"); v != "" {
		c.Model.Backend = v
	}
	if v := getenv("MODEL_ARTIFACT"); v != "" {
		c.Model.ArtifactPath = v
	}
	if v := getenv("MODEL_REMOTE_URL"); v != "" {
		c.Model.RemoteURL = v
	}
	if v := getenv("AUDIT_BACKEND"); v != "" {
		c.Audit.Backend = v
	}
	if v := getenv("AUDIT_INGEST"); v != "" {
		ingest, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUDIT_INGEST: %w", err)
		}
		c.Audit.Ingest = ingest
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, found := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if found {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("REDIS_ADDR: %w", err)
			}
			c.Cache.Redis.Port = p
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Model.Backend {
	case "forest":
		if c.Model.ArtifactPath == "" {
			return fmt.Errorf("model.artifact_path is required for the forest backend")
		}
	case "remote":
		if c.Model.RemoteURL == "" {
			return fmt.Errorf("model.remote_url is required for the remote backend")
		}
	default:
		return fmt.Errorf("model.backend must be 'forest' or 'remote', got '%s'", c.Model.Backend)
	}
	switch c.Cache.Backend {
	case "none", "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be 'none', 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	if c.Cache.MemoryCleanup <= 0 {
		return fmt.Errorf("cache.memory_cleanup must be positive")
	}
	if c.Cache.Redis.PoolSize <= 0 || c.Cache.Redis.MinIdleConns < 0 || c.Cache.Redis.MinIdleConns > c.Cache.Redis.PoolSize {
		return fmt.Errorf("cache.redis.pool_size must be positive and not below min_idle_conns")
	}
	switch c.Audit.Backend {
	case "none", "clickhouse":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when audit.backend is kafka")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when audit.backend is kafka")
		}
	default:
		return fmt.Errorf("audit.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Audit.Backend)
	}
	if c.Audit.Async && c.Audit.Queue.Workers <= 0 {
		return fmt.Errorf("audit.queue.workers must be positive when audit.async is set")
	}
	if c.Audit.Ingest {
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("audit.ingest needs kafka.brokers and kafka.topic")
		}
		if c.Kafka.Consumer.Workers <= 0 {
			return fmt.Errorf("kafka.consumer.workers must be positive when audit.ingest is set")
		}
	}
	if c.Logging.CollectTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("logging.collect_topic needs kafka.brokers")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity <= 0 || c.RateLimit.RefillPerSec <= 0) {
		return fmt.Errorf("ratelimit.capacity and ratelimit.refill_per_sec must be positive")
	}
	return nil
}
