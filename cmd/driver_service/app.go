package driverservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"delivery-realtime/internal/dispatch"
	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/domain/user"
	"delivery-realtime/internal/general/config"
	"delivery-realtime/internal/general/contracts"
	"delivery-realtime/internal/general/httpx"
	"delivery-realtime/internal/general/jwt"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/general/postgres"
	"delivery-realtime/internal/general/rabbitmq"
	"delivery-realtime/internal/general/websocket"
	"delivery-realtime/internal/general/worker"
	"delivery-realtime/internal/presence"
	"delivery-realtime/internal/relay"
	"delivery-realtime/internal/session"
	"delivery-realtime/internal/software/driver/handler"
	"delivery-realtime/internal/software/driver/service"
)

// Options are the command-line knobs of the driver service.
type Options struct {
	ConfigPath    string
	MaxConcurrent int
}

func Run(ctx context.Context, opts Options) error {
	// set up a new logger for the driver service with a static request ID for startup logs
	logger := logger.New("driver-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load configuration
	cfg, err := config.LoadFromFile(opts.ConfigPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load config", err, map[string]any{"path": opts.ConfigPath})
		return err
	}
	driverRole, err := user.ParseRole(cfg.JWT.DriverRole)
	if err != nil {
		logger.Error(ctx, "config_invalid", "Unknown driver role", err, map[string]any{"role": cfg.JWT.DriverRole})
		return err
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	events := rabbitmq.NewEventPublisher(rmq, contracts.ProducerDriverService)
	jwtManager, err := jwt.NewManager(cfg.JWT.SecretKey, cfg.JWT.AccessTTL, jwt.WithIssuer(cfg.JWT.Issuer))
	if err != nil {
		logger.Error(ctx, "config_invalid", "Failed to set up token verification", err, nil)
		return err
	}

	// background work keyed by driver or order keeps per-entity ordering
	workers := newBackground(logger, cfg)

	// set up the necessary repos
	uow := postgres.NewUnitOfWork(pool)
	driverRepo := postgres.NewDriverRepo(pool)

	// live state
	registry := presence.NewRegistry(geo.EntityTypeDriver)
	dispatcher := dispatch.New(registry, nil, logger)

	orders := relay.New(relay.NewOrderClient(cfg.OrderService.BaseURL, cfg.OrderService.Timeout), events, workers.relay)
	statuses := service.NewStatusWriter(logger, uow, driverRepo, events, workers.status)

	socket := session.NewDriverHandler(session.DriverDeps{
		Presence: registry,
		Auth:     jwtManager,
		Relay:    orders,
		Statuses: statuses,
		Logger:   logger,
		Conn: websocket.Options{
			WriteTimeout:    cfg.WebSocket.WriteTimeout,
			IdleTimeout:     cfg.WebSocket.IdleTimeout,
			PingPeriod:      cfg.WebSocket.PingPeriod,
			MaxMessageBytes: cfg.WebSocket.MaxMessageBytes,
		},
		Role:             driverRole,
		LocationInterval: cfg.WebSocket.LocationRelayInterval,
	})

	svc := service.NewDriverService(logger, statuses, registry, dispatcher)
	h := handler.NewDriverHTTPHandler(svc, logger, jwtManager, socket, map[string]handler.HealthCheck{
		"database": postgres.Ping(pool),
		"rabbitmq": func(context.Context) error {
			if !rmq.Ready() {
				return rabbitmq.ErrNotConnected
			}
			return nil
		},
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	base, closeSockets := context.WithCancel(context.WithoutCancel(ctx))
	defer closeSockets()

	srv := httpx.NewServer(
		fmt.Sprintf(":%d", cfg.Services.DriverServicePort),
		httpx.LimitConcurrency(opts.MaxConcurrent, mux, "/ws/"),
		base,
	)

	return httpx.Serve(ctx, logger, srv, closeSockets, func(ctx context.Context) error {
		// teardowns queue OFFLINE writes, so sessions finish before the pool drains
		if err := socket.Wait(ctx); err != nil {
			return err
		}
		return workers.Close(ctx)
	})
}

// background holds the two worker pools. Status writes get their own pool so
// a slow order service can only back up relays.
type background struct {
	relay  *worker.Pool
	status *worker.Pool
}

func newBackground(log *logger.Logger, cfg *config.Config) background {
	return background{
		relay:  worker.NewPool(log, cfg.Worker.RelayWorkers, cfg.Worker.RelayQueueSize, cfg.OrderService.Timeout),
		status: worker.NewPool(log, cfg.Worker.Workers, cfg.Worker.QueueSize, cfg.OrderService.Timeout),
	}
}

// Close drains status writes first so relays stuck on the order service
// cannot spend the shutdown budget they need.
func (b background) Close(ctx context.Context) error {
	statusErr := b.status.Close(ctx)
	return errors.Join(statusErr, b.relay.Close(ctx))
}
