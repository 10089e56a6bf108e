package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Session   SessionConfig   `yaml:"session"`
	Tickets   TicketsConfig   `yaml:"tickets"`
	Notify    NotifyConfig    `yaml:"notify"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	GinMode string `yaml:"gin_mode"`
}

// KnowledgeConfig points at two hosts: Endpoint is the runtime that answers
// questions, AuthoringEndpoint is the management API that reports publish status.
type KnowledgeConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	AuthoringEndpoint string        `yaml:"authoring_endpoint"`
	KnowledgeBaseID   string        `yaml:"knowledge_base_id"`
	EndpointKey       string        `yaml:"endpoint_key"`
	SubscriptionKey   string        `yaml:"subscription_key"`
	Timeout           time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SessionConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

type TicketsConfig struct {
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// NotifyConfig enables ticket events when at least one broker is set.
type NotifyConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			GinMode: "release",
		},
		Knowledge: KnowledgeConfig{
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			Backend: BackendRedis,
			TTL:     24 * time.Hour,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Tickets: TicketsConfig{
			Backend:    BackendRedis,
			SQLitePath: "tickets.db",
		},
		Notify: NotifyConfig{
			Topic: "faq-tickets",
		},
	}
}

// Load applies, in order: defaults, the YAML file at path (skipped when path
// is empty), then FAQ_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("FAQ_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FAQ_KB_ENDPOINT"); v != "" {
		cfg.Knowledge.Endpoint = v
	}
	if v := os.Getenv("FAQ_KB_AUTHORING_ENDPOINT"); v != "" {
		cfg.Knowledge.AuthoringEndpoint = v
	}
	if v := os.Getenv("FAQ_KB_SUBSCRIPTION_KEY"); v != "" {
		cfg.Knowledge.SubscriptionKey = v
	}
	if v := os.Getenv("FAQ_KB_ID"); v != "" {
		cfg.Knowledge.KnowledgeBaseID = v
	}
	if v := os.Getenv("FAQ_KB_ENDPOINT_KEY"); v != "" {
		cfg.Knowledge.EndpointKey = v
	}
	if v := os.Getenv("FAQ_SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = v
	}
	if v := os.Getenv("FAQ_SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: FAQ_SESSION_TTL: %v", ErrInvalidConfig, err)
		}
		cfg.Session.TTL = ttl
	}
	if v := os.Getenv("FAQ_REDIS_ADDR"); v != "" {
		cfg.Session.Redis.Addr = v
	}
	if v := os.Getenv("FAQ_REDIS_PASSWORD"); v != "" {
		cfg.Session.Redis.Password = v
	}
	if v := os.Getenv("FAQ_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: FAQ_REDIS_DB: %v", ErrInvalidConfig, err)
		}
		cfg.Session.Redis.DB = db
	}
	if v := os.Getenv("FAQ_TICKET_BACKEND"); v != "" {
		cfg.Tickets.Backend = v
	}
	if v := os.Getenv("FAQ_SQLITE_PATH"); v != "" {
		cfg.Tickets.SQLitePath = v
	}
	if v := os.Getenv("FAQ_POSTGRES_DSN"); v != "" {
		cfg.Tickets.PostgresDSN = v
	}
	if v := os.Getenv("FAQ_KAFKA_BROKERS"); v != "" {
		cfg.Notify.Brokers = splitList(v)
	}
	if v := os.Getenv("FAQ_KAFKA_TOPIC"); v != "" {
		cfg.Notify.Topic = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Knowledge.Endpoint == "" {
		return fmt.Errorf("%w: knowledge.endpoint is required", ErrInvalidConfig)
	}
	if c.Knowledge.AuthoringEndpoint == "" {
		return fmt.Errorf("%w: knowledge.authoring_endpoint is required", ErrInvalidConfig)
	}
	if c.Knowledge.KnowledgeBaseID == "" {
		return fmt.Errorf("%w: knowledge.knowledge_base_id is required", ErrInvalidConfig)
	}

	switch c.Session.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown session backend %q", ErrInvalidConfig, c.Session.Backend)
	}

	switch c.Tickets.Backend {
	case BackendMemory, BackendRedis:
	case BackendSQLite:
		if c.Tickets.SQLitePath == "" {
			return fmt.Errorf("%w: tickets.sqlite_path is required", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.Tickets.PostgresDSN == "" {
			return fmt.Errorf("%w: tickets.postgres_dsn is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown ticket backend %q", ErrInvalidConfig, c.Tickets.Backend)
	}

	if len(c.Notify.Brokers) > 0 && c.Notify.Topic == "" {
		return fmt.Errorf("%w: notify.topic is required when brokers are set", ErrInvalidConfig)
	}
	return nil
}

// NeedsRedis reports whether any configured backend talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Session.Backend == BackendRedis || c.Tickets.Backend == BackendRedis
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
