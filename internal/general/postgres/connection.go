package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"delivery-realtime/internal/general/config"
	"delivery-realtime/internal/general/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DSN builds the connection URL for the database section of cfg.
func DSN(cfg *config.Config) string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Database.Host, strconv.Itoa(cfg.Database.Port)),
		Path:   "/" + cfg.Database.Name,
		User:   url.UserPassword(cfg.Database.User, cfg.Database.Password),
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

const (
	connectAttempts = 5
	pingTimeout     = 5 * time.Second
)

// NewPool configures pgxpool from cfg and waits for the database to answer,
// retrying with backoff so a service can start alongside its database.
func NewPool(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*pgxpool.Pool, error) {
	start := time.Now()

	logger.Info(ctx, "db_config_check", "Effective DB connection parameters", map[string]any{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"user":     cfg.Database.User,
		"database": cfg.Database.Name,
	})

	pcfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres parse dsn: %w", err)
	}
	pcfg.ConnConfig.ConnectTimeout = 5 * time.Second
	if pcfg.ConnConfig.RuntimeParams == nil {
		pcfg.ConnConfig.RuntimeParams = make(map[string]string, 2)
	}
	pcfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	pcfg.ConnConfig.RuntimeParams["application_name"] = "delivery-realtime"

	// sessions hold no connection; only background writes and HTTP handlers do
	pcfg.MaxConns = 10
	pcfg.HealthCheckPeriod = 30 * time.Second
	pcfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	backoff := time.Second
	for attempt := 1; ; attempt++ {
		err = Ping(pool)(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("postgres ping after %d attempts: %w", attempt, err)
		}
		logger.Warn(ctx, "db_connect_retry", "PostgreSQL not reachable yet; retrying", map[string]any{
			"attempt": attempt, "backoff_ms": backoff.Milliseconds(), "error": err.Error(),
		})
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	logger.Info(ctx, "db_connected", "Connected to PostgreSQL database", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return pool, nil
}

// Ping returns a health check that bounds pool.Ping by pingTimeout.
func Ping(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return pool.Ping(ctx)
	}
}
