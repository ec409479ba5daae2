package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/ContactsGo/internal/auth"
	"github.com/utafrali/ContactsGo/internal/cache"
	"github.com/utafrali/ContactsGo/internal/config"
	"github.com/utafrali/ContactsGo/internal/event"
	handler "github.com/utafrali/ContactsGo/internal/handler/http"
	"github.com/utafrali/ContactsGo/internal/mailer"
	"github.com/utafrali/ContactsGo/internal/ratelimit"
	"github.com/utafrali/ContactsGo/internal/repository/postgres"
	"github.com/utafrali/ContactsGo/internal/service"
	"github.com/utafrali/ContactsGo/internal/storage"
	"github.com/utafrali/ContactsGo/internal/storage/memory"
	"github.com/utafrali/ContactsGo/internal/storage/s3store"
	"github.com/utafrali/ContactsGo/migrations"
	"github.com/utafrali/ContactsGo/pkg/database"
	"github.com/utafrali/ContactsGo/pkg/health"
	pkgkafka "github.com/utafrali/ContactsGo/pkg/kafka"
	"github.com/utafrali/ContactsGo/pkg/middleware"
	"github.com/utafrali/ContactsGo/pkg/tracing"
)

const (
	serviceName = "contacts"

	// Per-call deadlines for outbound SMTP and object-store calls.
	mailTimeout    = 10 * time.Second
	storageTimeout = 15 * time.Second

	floodGuardTTL = 10 * time.Minute
)

// App wires together all dependencies and runs the contacts service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	memLimiter     *ratelimit.MemoryLimiter
	floodGuard     *middleware.FloodGuard
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(serviceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown
	defer func() {
		if err != nil {
			a.abort()
		}
	}()

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, logger)
	}

	// Redis backs the cache and the quota when configured; otherwise both
	// stay in process.
	var (
		userCache cache.UserCache
		limiter   ratelimit.Limiter
	)
	if redisCfg := cfg.Redis(); redisCfg.Enabled() {
		client, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		userCache = cache.NewRedisCache(client, cfg.CacheTTL)
		limiter = ratelimit.NewRedisLimiter(client, cfg.RateLimitPerMinute, ratelimit.DefaultWindow)
		logger.Info("connected to Redis", slog.String("addr", client.Options().Addr))
	} else {
		userCache = cache.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
		a.memLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute, ratelimit.DefaultWindow)
		limiter = a.memLimiter
		logger.Info("redis not configured, using in-process cache and rate limiter")
	}

	store, avatars, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	sender, err := newSender(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Kafka is optional; a nil producer turns event publishing off.
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTAlgorithm, auth.TTLs{
		Access:  cfg.JWTAccessExpiry,
		Refresh: cfg.JWTRefreshExpiry,
		Verify:  cfg.JWTVerifyExpiry,
		Reset:   cfg.JWTResetExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	// Build the dependency graph.
	userRepo := postgres.NewUserRepository(pool)
	contactRepo := postgres.NewContactRepository(pool)
	eventProducer := event.NewProducer(a.producer, logger)
	notifier := mailer.New(sender, cfg.PublicBaseURL)

	authService := service.NewAuthService(userRepo, tokens, notifier, userCache, eventProducer, cfg.BcryptCost, logger)
	userService := service.NewUserService(userRepo, userCache, store, eventProducer, logger)
	contactService := service.NewContactService(contactRepo, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return database.Ping(ctx, pool)
	})
	if a.redis != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return a.producer.Ping(ctx)
		})
	}

	a.floodGuard = middleware.NewFloodGuard(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, floodGuardTTL)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(handler.Deps{
		Auth:           authService,
		Users:          userService,
		Contacts:       contactService,
		Limiter:        limiter,
		FloodGuard:     a.floodGuard,
		Health:         healthHandler,
		CORS:           corsCfg,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		TrustedProxies: cfg.TrustedProxyCIDRs,
		Avatars:        avatars,
		Logger:         logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newStorage picks the avatar store. The in-memory fallback also returns the
// handler that serves its URLs; S3 objects are served by the bucket.
func newStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, http.Handler, error) {
	if cfg.S3Bucket == "" {
		logger.Info("S3_BUCKET not set, keeping avatars in memory")
		mem := memory.New(strings.TrimRight(cfg.PublicBaseURL, "/") + handler.AvatarsPath)
		return storage.NewGuarded(mem, storageTimeout, logger), mem, nil
	}

	s3, err := s3store.New(ctx, s3store.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init object store: %w", err)
	}
	logger.Info("object store initialized", slog.String("bucket", cfg.S3Bucket))
	return storage.NewGuarded(s3, storageTimeout, logger), nil, nil
}

func newSender(cfg *config.Config, logger *slog.Logger) (mailer.Sender, error) {
	if cfg.SMTPHost == "" {
		logger.Info("SMTP_HOST not set, account emails will be logged")
		return mailer.NewLogSender(logger), nil
	}

	smtp, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		TLS:      cfg.SMTPTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("init smtp sender: %w", err)
	}
	return mailer.NewGuarded(smtp, mailTimeout, logger), nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, then the Redis client and PostgreSQL pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.floodGuard.Stop()

	// Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// abort releases whatever NewApp acquired before it failed.
func (a *App) abort() {
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.pool != nil {
		_ = a.closeStores()
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown after failed start", slog.String("error", err.Error()))
		}
	}
}

func (a *App) closeStores() error {
	var err error
	if a.memLimiter != nil {
		a.memLimiter.Close()
	}
	if a.redis != nil {
		if cerr := a.redis.Close(); cerr != nil {
			a.logger.Error("redis close error", slog.String("error", cerr.Error()))
			err = cerr
		}
	}
	a.pool.Close()
	return err
}
