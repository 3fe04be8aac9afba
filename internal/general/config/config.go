package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where services look for their config when --config is not given.
const DefaultPath = "./config/config.yaml"

type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"database"`
	} `yaml:"database"`
	RabbitMQ struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"rabbitmq"`
	Services struct {
		DriverServicePort       int `yaml:"driver_service"`
		NotificationServicePort int `yaml:"notification_service"`
	} `yaml:"services"`
	JWT struct {
		SecretKey  string        `yaml:"secret_key"`
		DriverRole string        `yaml:"driver_role"`
		Issuer     string        `yaml:"issuer"` // empty disables the iss check
		AccessTTL  time.Duration `yaml:"access_ttl"`
	} `yaml:"jwt"`
	OrderService struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"order_service"`
	WebSocket WebSocket `yaml:"websocket"`
	Worker    struct {
		// status persistence
		Workers   int `yaml:"workers"`
		QueueSize int `yaml:"queue_size"`
		// order service and bus relays
		RelayWorkers   int `yaml:"relay_workers"`
		RelayQueueSize int `yaml:"relay_queue_size"`
	} `yaml:"worker"`
	SMTP struct {
		Host                string `yaml:"host"`
		Port                int    `yaml:"port"`
		Username            string `yaml:"username"`
		Password            string `yaml:"password"`
		From                string `yaml:"from"`
		CompletionRecipient string `yaml:"completion_recipient"`
	} `yaml:"smtp"`
}

// WebSocket holds per-connection timing and size limits.
type WebSocket struct {
	IdleTimeout           time.Duration `yaml:"idle_timeout"`
	PingPeriod            time.Duration `yaml:"ping_period"`
	WriteTimeout          time.Duration `yaml:"write_timeout"`
	MaxMessageBytes       int64         `yaml:"max_message_bytes"`
	LocationRelayInterval time.Duration `yaml:"location_relay_interval"`
}

// LoadFromFile loads config from a YAML file to a Config struct, applies
// environment overrides and defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	// a missing .env is the normal case outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	return Load(file, os.Getenv)
}

// Load parses YAML from r. getenv supplies overrides; pass nil to skip them.
func Load(r io.Reader, getenv func(string) string) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if getenv != nil {
		if err := applyEnv(&cfg, getenv); err != nil {
			return nil, err
		}
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyEnv lets deployments keep secrets out of the YAML file.
func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"DB_HOST":           &cfg.Database.Host,
		"DB_USER":           &cfg.Database.User,
		"DB_PASSWORD":       &cfg.Database.Password,
		"DB_NAME":           &cfg.Database.Name,
		"RABBITMQ_HOST":     &cfg.RabbitMQ.Host,
		"RABBITMQ_USER":     &cfg.RabbitMQ.User,
		"RABBITMQ_PASSWORD": &cfg.RabbitMQ.Password,
		"JWT_SECRET_KEY":    &cfg.JWT.SecretKey,
		"JWT_ISSUER":        &cfg.JWT.Issuer,
		"ORDER_SERVICE_URL": &cfg.OrderService.BaseURL,
		"SMTP_HOST":         &cfg.SMTP.Host,
		"SMTP_USERNAME":     &cfg.SMTP.Username,
		"SMTP_PASSWORD":     &cfg.SMTP.Password,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DB_PORT":       &cfg.Database.Port,
		"RABBITMQ_PORT": &cfg.RabbitMQ.Port,
		"SMTP_PORT":     &cfg.SMTP.Port,
	}
	for key, dst := range ints {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Services
	if cfg.Services.DriverServicePort == 0 {
		cfg.Services.DriverServicePort = 8001
	}
	if cfg.Services.NotificationServicePort == 0 {
		cfg.Services.NotificationServicePort = 8002
	}

	if cfg.JWT.DriverRole == "" {
		cfg.JWT.DriverRole = "delivery_driver"
	}
	if cfg.JWT.AccessTTL == 0 {
		cfg.JWT.AccessTTL = 2 * time.Hour
	}

	// Order service
	if cfg.OrderService.BaseURL == "" {
		cfg.OrderService.BaseURL = "http://localhost:8003/api/v1"
	}
	if cfg.OrderService.Timeout == 0 {
		cfg.OrderService.Timeout = 5 * time.Second
	}

	// WebSocket
	if cfg.WebSocket.IdleTimeout == 0 {
		cfg.WebSocket.IdleTimeout = 60 * time.Second
	}
	if cfg.WebSocket.PingPeriod == 0 {
		cfg.WebSocket.PingPeriod = cfg.WebSocket.IdleTimeout / 2
	}
	if cfg.WebSocket.WriteTimeout == 0 {
		cfg.WebSocket.WriteTimeout = 5 * time.Second
	}
	if cfg.WebSocket.MaxMessageBytes == 0 {
		cfg.WebSocket.MaxMessageBytes = 1 << 20
	}

	// Worker
	if cfg.Worker.Workers == 0 {
		cfg.Worker.Workers = 8
	}
	if cfg.Worker.QueueSize == 0 {
		cfg.Worker.QueueSize = 256
	}
	if cfg.Worker.RelayWorkers == 0 {
		cfg.Worker.RelayWorkers = 8
	}
	if cfg.Worker.RelayQueueSize == 0 {
		cfg.Worker.RelayQueueSize = 256
	}

	// SMTP
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.database is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Services
	if c.Services.DriverServicePort <= 0 || c.Services.DriverServicePort > 65535 {
		problems = append(problems, "services.driver_service must be in 1..65535")
	}
	if c.Services.NotificationServicePort <= 0 || c.Services.NotificationServicePort > 65535 {
		problems = append(problems, "services.notification_service must be in 1..65535")
	}

	// JWT
	if strings.TrimSpace(c.JWT.SecretKey) == "" {
		problems = append(problems, "jwt.secret_key is required")
	}
	if c.JWT.AccessTTL < 0 {
		problems = append(problems, "jwt.access_ttl must not be negative")
	}

	// Order service
	if u, err := url.Parse(c.OrderService.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, "order_service.base_url must be an absolute URL")
	}
	if c.OrderService.Timeout < 0 {
		problems = append(problems, "order_service.timeout must not be negative")
	}

	// WebSocket
	if c.WebSocket.PingPeriod >= c.WebSocket.IdleTimeout {
		problems = append(problems, "websocket.ping_period must be shorter than websocket.idle_timeout")
	}
	if c.WebSocket.MaxMessageBytes < 0 {
		problems = append(problems, "websocket.max_message_bytes must not be negative")
	}
	if c.WebSocket.LocationRelayInterval < 0 {
		problems = append(problems, "websocket.location_relay_interval must not be negative")
	}

	// Worker
	if c.Worker.Workers < 1 {
		problems = append(problems, "worker.workers must be >= 1")
	}
	if c.Worker.QueueSize < 1 {
		problems = append(problems, "worker.queue_size must be >= 1")
	}
	if c.Worker.RelayWorkers < 1 {
		problems = append(problems, "worker.relay_workers must be >= 1")
	}
	if c.Worker.RelayQueueSize < 1 {
		problems = append(problems, "worker.relay_queue_size must be >= 1")
	}

	// SMTP is optional, but a host without a sender is a mistake
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		problems = append(problems, "smtp.from is required when smtp.host is set")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
