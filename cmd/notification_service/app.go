package notificationservice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"delivery-realtime/internal/dispatch"
	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/general/config"
	"delivery-realtime/internal/general/httpx"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/general/mailer"
	"delivery-realtime/internal/general/postgres"
	"delivery-realtime/internal/general/rabbitmq"
	"delivery-realtime/internal/general/websocket"
	"delivery-realtime/internal/ports"
	"delivery-realtime/internal/presence"
	"delivery-realtime/internal/session"
	"delivery-realtime/internal/software/notification/handler"
	"delivery-realtime/internal/software/notification/service"

	"golang.org/x/sync/errgroup"
)

// Options are the command-line knobs of the notification service.
type Options struct {
	ConfigPath    string
	MaxConcurrent int
	Prefetch      int
}

func Run(ctx context.Context, opts Options) error {
	logger := logger.New("notification-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(opts.ConfigPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load config", err, map[string]any{"path": opts.ConfigPath})
		return err
	}

	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	// email stays off until an SMTP host is configured
	var mail ports.Mailer
	if cfg.SMTP.Host != "" {
		mail = mailer.New(cfg)
	} else {
		logger.Info(ctx, "mailer_disabled", "No SMTP host configured; completion emails are off", nil)
	}

	registry := presence.NewRegistry(geo.EntityTypeUser)
	rooms := presence.NewRooms()
	dispatcher := dispatch.New(registry, rooms, logger)

	svc := service.NewNotificationService(
		service.Config{CompletionRecipient: cfg.SMTP.CompletionRecipient, ConsumerRetry: time.Second},
		logger,
		postgres.NewUnitOfWork(pool),
		postgres.NewNotificationRepo(pool),
		mail,
		rmq,
		registry,
		rooms,
		dispatcher,
	)

	socket := session.NewUserHandler(session.UserDeps{
		Presence: registry,
		Rooms:    rooms,
		Logger:   logger,
		Conn: websocket.Options{
			WriteTimeout:    cfg.WebSocket.WriteTimeout,
			IdleTimeout:     cfg.WebSocket.IdleTimeout,
			PingPeriod:      cfg.WebSocket.PingPeriod,
			MaxMessageBytes: cfg.WebSocket.MaxMessageBytes,
		},
	})

	h := handler.NewNotificationHTTPHandler(svc, logger, socket, map[string]handler.HealthCheck{
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
		fmt.Sprintf(":%d", cfg.Services.NotificationServicePort),
		httpx.LimitConcurrency(opts.MaxConcurrent, mux, "/ws/"),
		base,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpx.Serve(gctx, logger, srv, closeSockets, socket.Wait)
	})
	g.Go(func() error {
		return svc.RunOrderStatusConsumer(gctx, opts.Prefetch)
	})
	return g.Wait()
}
