package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/api"
	"github.com/hackgods/vet-clinic/internal/appointment"
	"github.com/hackgods/vet-clinic/internal/auth"
	"github.com/hackgods/vet-clinic/internal/clinic"
	"github.com/hackgods/vet-clinic/internal/config"
	"github.com/hackgods/vet-clinic/internal/db"
	"github.com/hackgods/vet-clinic/internal/events"
	"github.com/hackgods/vet-clinic/internal/inventory"
	"github.com/hackgods/vet-clinic/internal/invoice"
	"github.com/hackgods/vet-clinic/internal/lock"
	"github.com/hackgods/vet-clinic/internal/logging"
	"github.com/hackgods/vet-clinic/internal/medical"
	"github.com/hackgods/vet-clinic/internal/messaging"
	"github.com/hackgods/vet-clinic/internal/patient"
	redisclient "github.com/hackgods/vet-clinic/internal/redis"
	"github.com/hackgods/vet-clinic/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(logging.ConfigFor(cfg.Env, cfg.LogLevel))
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("lock_backend", cfg.LockBackend),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(rootCtx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "vet-clinic-api",
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		logger.Fatal("telemetry setup error", zap.Error(err))
	}

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	// Redis backs the schedule lock and login throttling. The local backend
	// runs without it.
	var (
		rdb          *redis.Client
		locker       lock.Locker
		loginLimiter api.RateLimiter
		redisPing    api.Pinger
	)
	if cfg.LockBackend == config.LockBackendRedis {
		rdb, err = redisclient.Connect(rootCtx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			logger.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("error closing redis", zap.Error(err))
			}
		}()
		logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait)
		loginLimiter = api.NewRedisRateLimiter(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow, "login")
		redisPing = func(ctx context.Context) error { return redisclient.Ping(ctx, rdb) }
	} else {
		logger.Warn("using in-process schedule lock; run a single api-server instance")
		locker = lock.NewLocalLocker()
		loginLimiter = api.NewLocalRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	}

	proxies, err := api.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}

	recorder := events.NewRecorder(events.NewPgStore(pgPool), logger)

	appointments := appointment.NewService(appointment.NewPgRepository(pgPool), locker, recorder, logger)
	clinics := clinic.NewService(clinic.NewPgRepository(pgPool), logger)

	router := api.NewRouter(api.RouterConfig{
		Clinics:      clinics,
		Appointments: appointments,
		Patients:     patient.NewService(patient.NewPgRepository(pgPool), appointments, logger),
		Medical:      medical.NewService(medical.NewPgRepository(pgPool), logger),
		Invoices:     invoice.NewService(invoice.NewPgRepository(pgPool), recorder, logger),
		Inventory:    inventory.NewService(inventory.NewPgRepository(pgPool), logger),
		Messaging:    messaging.NewService(messaging.NewPgRepository(pgPool), logger),
		Tokens:       auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		LoginLimiter: loginLimiter,
		Health: api.NewHealthHandler(
			func(ctx context.Context) error { return db.Ping(ctx, pgPool) },
			redisPing,
			cfg.Env,
			version,
		),
		Logger:         logger,
		Tracing:        cfg.OTelEnabled,
		TrustedProxies: proxies,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown error", zap.Error(err))
	}

	logger.Info("api-server stopped")
}
