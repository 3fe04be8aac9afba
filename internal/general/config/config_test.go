package config_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"delivery-realtime/internal/general/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
database:
  user: delivery
  password: secret
  database: delivery
rabbitmq:
  user: guest
  password: guest
jwt:
  secret_key: dev-secret
`

func noEnv(string) string { return "" }

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(minimal), noEnv)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5672, cfg.RabbitMQ.Port)
	assert.Equal(t, 8001, cfg.Services.DriverServicePort)
	assert.Equal(t, 8002, cfg.Services.NotificationServicePort)
	assert.Equal(t, "delivery_driver", cfg.JWT.DriverRole)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingPeriod)
	assert.Equal(t, int64(1<<20), cfg.WebSocket.MaxMessageBytes)
	assert.Equal(t, 8, cfg.Worker.Workers)
	assert.Equal(t, 8, cfg.Worker.RelayWorkers)
	assert.Equal(t, 256, cfg.Worker.RelayQueueSize)
	assert.Equal(t, 5*time.Second, cfg.OrderService.Timeout)
	// every location frame is relayed unless an interval is configured
	assert.Zero(t, cfg.WebSocket.LocationRelayInterval)
}

func TestShippedConfigRelaysEveryLocation(t *testing.T) {
	f, err := os.Open("../../../config/config.yaml")
	require.NoError(t, err)
	defer f.Close()

	cfg, err := config.Load(f, noEnv)
	require.NoError(t, err)
	assert.Zero(t, cfg.WebSocket.LocationRelayInterval)
	assert.Equal(t, 8, cfg.Worker.RelayWorkers)
}

func TestLoadReadsDurationsAndSections(t *testing.T) {
	doc := minimal + `
order_service:
  base_url: http://orders:9000/api/v1
  timeout: 2s
websocket:
  idle_timeout: 20s
  ping_period: 5s
  location_relay_interval: 500ms
`
	cfg, err := config.Load(strings.NewReader(doc), noEnv)
	require.NoError(t, err)

	assert.Equal(t, "http://orders:9000/api/v1", cfg.OrderService.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.OrderService.Timeout)
	assert.Equal(t, 20*time.Second, cfg.WebSocket.IdleTimeout)
	assert.Equal(t, 5*time.Second, cfg.WebSocket.PingPeriod)
	assert.Equal(t, 500*time.Millisecond, cfg.WebSocket.LocationRelayInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	env := map[string]string{
		"DB_PASSWORD":    "from-env",
		"DB_PORT":        "6543",
		"JWT_SECRET_KEY": "env-secret",
	}
	cfg, err := config.Load(strings.NewReader(minimal), func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "env-secret", cfg.JWT.SecretKey)
}

func TestLoadRejectsBadEnvPort(t *testing.T) {
	_, err := config.Load(strings.NewReader(minimal), func(k string) string {
		if k == "RABBITMQ_PORT" {
			return "not-a-port"
		}
		return ""
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RABBITMQ_PORT")
}

func TestLoadCollectsAllProblems(t *testing.T) {
	_, err := config.Load(strings.NewReader(""), noEnv)
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"database.user is required",
		"rabbitmq.password is required",
		"jwt.secret_key is required",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := config.Load(strings.NewReader(minimal+"\nunknown_section:\n  x: 1\n"), noEnv)
	require.Error(t, err)
}

func TestLoadRejectsPingSlowerThanIdle(t *testing.T) {
	doc := minimal + `
websocket:
  idle_timeout: 10s
  ping_period: 10s
`
	_, err := config.Load(strings.NewReader(doc), noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping_period")
}
