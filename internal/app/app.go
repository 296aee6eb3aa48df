package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xenking/hungrypanda/internal/domain/cart"
	"github.com/xenking/hungrypanda/internal/domain/catalog"
	"github.com/xenking/hungrypanda/internal/domain/order"
	"github.com/xenking/hungrypanda/internal/handler"
	"github.com/xenking/hungrypanda/internal/messaging/rabbitmq"
	"github.com/xenking/hungrypanda/internal/storage/postgres"
	"github.com/xenking/hungrypanda/internal/storage/redis"
	"github.com/xenking/hungrypanda/pkg/health"
	"github.com/xenking/hungrypanda/pkg/httpmiddleware"
)

const serviceName = "hungrypanda-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Redis cart storage.
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return errors.Wrap(err, "create redis client")
	}
	defer func() { _ = redisClient.Close() }()
	cartStore := redis.NewCartStore(redisClient, cfg.CartTTL)

	// Order events.
	var events order.Publisher = order.NopPublisher{}
	var rabbit *rabbitmq.Publisher
	if cfg.AMQPURL != "" {
		rabbit, err = rabbitmq.Dial(cfg.AMQPURL)
		if err != nil {
			return errors.Wrap(err, "connect rabbitmq")
		}
		defer func() {
			if err := rabbit.Close(); err != nil {
				lg.Warn("Close rabbitmq publisher", zap.Error(err))
			}
		}()
		events = rabbit
	} else {
		lg.Info("No AMQP URL configured, order events are not published")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool))
	healthSvc.AddReadinessCheck("redis", 2*time.Second, health.PingCheck("redis", cartStore))
	if rabbit != nil {
		healthSvc.AddReadinessCheck("rabbitmq", time.Second, rabbit.Healthy)
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(time.Second),
		health.WithThresholds(3, 1),
	)
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	catalogRepo := postgres.NewCatalogRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	statsRepo := postgres.NewStatsRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	// Domain services.
	catalogService := catalog.NewService(catalogRepo)
	carts := cart.NewManager(cartStore, catalogService)
	orderService, err := order.NewService(catalogRepo, orderRepo, events, m.MeterProvider().Meter(serviceName))
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	// HTTP handlers.
	h := handler.NewHandler(
		handler.Config{PublicBaseURL: cfg.PublicBaseURL},
		catalogService,
		carts,
		orderService,
		statsRepo,
	)
	authenticator := handler.NewAuthenticator(userRepo, []byte(cfg.APIKeyPepper))

	// Router: health endpoints + API routes on one server. Health checks carry no
	// api_key, so the authenticator lets them through.
	router := mux.NewRouter()
	router.HandleFunc("/livez", healthSvc.LiveEndpoint).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthSvc.ReadyEndpoint).Methods(http.MethodGet)
	h.Register(router)
	router.Use(authenticator.Middleware)

	routeFinder := httpmiddleware.MakeRouteFinder(router)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader, httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.ClientKey(handler.APIKeyHeader),
			}),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
