package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	sqlassets "github.com/trimly-app/trimly-saas/database"
	appointmentshandler "github.com/trimly-app/trimly-saas/domains/appointments/be/handler"
	appointmentsrepo "github.com/trimly-app/trimly-saas/domains/appointments/be/repo"
	appointmentsservice "github.com/trimly-app/trimly-saas/domains/appointments/be/service"
	barbershandler "github.com/trimly-app/trimly-saas/domains/barbers/be/handler"
	barbersrepo "github.com/trimly-app/trimly-saas/domains/barbers/be/repo"
	barbersservice "github.com/trimly-app/trimly-saas/domains/barbers/be/service"
	planshandler "github.com/trimly-app/trimly-saas/domains/plans/be/handler"
	plansservice "github.com/trimly-app/trimly-saas/domains/plans/be/service"
	serviceshandler "github.com/trimly-app/trimly-saas/domains/services/be/handler"
	servicesrepo "github.com/trimly-app/trimly-saas/domains/services/be/repo"
	servicesservice "github.com/trimly-app/trimly-saas/domains/services/be/service"
	tenantshandler "github.com/trimly-app/trimly-saas/domains/tenants/be/handler"
	tenantsrepo "github.com/trimly-app/trimly-saas/domains/tenants/be/repo"
	tenantsservice "github.com/trimly-app/trimly-saas/domains/tenants/be/service"
	usershandler "github.com/trimly-app/trimly-saas/domains/users/be/handler"
	usersrepo "github.com/trimly-app/trimly-saas/domains/users/be/repo"
	usersservice "github.com/trimly-app/trimly-saas/domains/users/be/service"
	platformauth "github.com/trimly-app/trimly-saas/platform/go/auth"
	"github.com/trimly-app/trimly-saas/platform/go/cache"
	platformlogging "github.com/trimly-app/trimly-saas/platform/go/logging"
	"github.com/trimly-app/trimly-saas/platform/go/metrics"
	platformmiddleware "github.com/trimly-app/trimly-saas/platform/go/middleware"
	"github.com/trimly-app/trimly-saas/platform/go/persistence"
	"github.com/trimly-app/trimly-saas/platform/go/plan"
	tenantmiddleware "github.com/trimly-app/trimly-saas/platform/go/tenant/middleware"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	BootstrapSchema bool          `env:"BOOTSTRAP_SCHEMA" envDefault:"false"`
	JWTSecret       string        `env:"JWT_SECRET,required"`
	AllowedOrigin   string        `env:"CORS_ALLOWED_ORIGIN" envDefault:"*"`
	BillingURL      string        `env:"BILLING_API_URL,required"`
	CacheBackend    string        `env:"CACHE_BACKEND" envDefault:"memory"` // memory | redis
	RedisAddr       string        `env:"REDIS_ADDR"`                        // required when CACHE_BACKEND=redis
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	CacheMaxBytes   int64         `env:"CACHE_MAX_BYTES" envDefault:"67108864"`
	TenantSpaceTTL  time.Duration `env:"TENANT_SPACE_TTL" envDefault:"1m"`
}

func main() {
	ctx := context.Background()

	// Local development convenience; missing file is fine.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if cfg.BootstrapSchema {
		if err := persistence.Bootstrap(ctx, pool, sqlassets.All()...); err != nil {
			logger.Fatal("bootstrap schema", zap.Error(err))
		}
		logger.Info("schema bootstrap completed")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	cacheMetrics := metrics.NewCacheMetrics(registry)
	quotaMetrics := metrics.NewQuotaMetrics(registry)

	var store cache.Store
	switch cfg.CacheBackend {
	case "redis":
		if cfg.RedisAddr == "" {
			logger.Fatal("redis addr required when CACHE_BACKEND=redis")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer client.Close()
		redisStore, err := cache.NewRedisStore(client, "trimly")
		if err != nil {
			logger.Fatal("init redis store", zap.Error(err))
		}
		store = redisStore
	case "memory":
		store = cache.NewMemoryStore()
	default:
		logger.Fatal("invalid CACHE_BACKEND (use memory or redis)", zap.String("backend", cfg.CacheBackend))
	}

	sharedCache := cache.New(store, cache.Options{
		DefaultTTL: 5 * time.Minute,
		MaxBytes:   cfg.CacheMaxBytes,
		Stats:      cacheMetrics,
	})

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	sharedCache.StartJanitor(janitorCtx, time.Minute, func(err error) {
		logger.Warn("cache sweep", zap.Error(err))
	})

	tenantRepo := tenantsrepo.NewPostgresRepository(pool)
	tenantService := tenantsservice.New(tenantRepo)
	tenantHTTPHandler := tenantshandler.New(tenantService, logger)

	billingSource, err := plan.NewHTTPSource(cfg.BillingURL, nil)
	if err != nil {
		logger.Fatal("init billing source", zap.Error(err))
	}
	// The tenant registry backs up the billing API for plan lookups so quota
	// degradation can still resolve the plan type during billing outages.
	usageSource := plansservice.NewRegistrySource(billingSource, tenantService)

	usageService := plan.NewUsageService(plan.UsageServiceConfig{
		Source: usageSource,
		Cache:  sharedCache,
		Logger: logger,
	})
	guard := plan.NewGuard(usageService, logger, quotaMetrics)

	barberRepo := barbersrepo.NewPostgresRepository(pool)
	barberService := barbersservice.New(barbersservice.Config{
		Repo:   barberRepo,
		Guard:  guard,
		Usage:  usageService,
		Cache:  sharedCache,
		Logger: logger,
	})
	barberHTTPHandler := barbershandler.New(barberService, logger)

	offeringRepo := servicesrepo.NewPostgresRepository(pool)
	offeringService := servicesservice.New(servicesservice.Config{
		Repo:   offeringRepo,
		Cache:  sharedCache,
		Logger: logger,
	})
	offeringHTTPHandler := serviceshandler.New(offeringService, logger)

	appointmentRepo := appointmentsrepo.NewPostgresRepository(pool)
	appointmentService := appointmentsservice.New(appointmentsservice.Config{
		Repo:   appointmentRepo,
		Guard:  guard,
		Usage:  usageService,
		Range:  appointmentRepo,
		Cache:  sharedCache,
		Logger: logger,
	})
	appointmentHTTPHandler := appointmentshandler.New(appointmentService, logger)

	// Counts-backed fallback: once the domain services exist, the usage
	// service can synthesize snapshots from real per-tenant counts.
	usageService.SetCounters(plansservice.NewCounters(barberService, appointmentService))

	userRepo := usersrepo.NewPostgresRepository(pool)
	userService := usersservice.New(userRepo)
	userHTTPHandler := usershandler.New(userService, logger)

	planHTTPHandler := planshandler.New(usageService, guard, logger)

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.CORS(cfg.AllowedOrigin),
	)
	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	authMiddleware := platformauth.JWT(platformauth.HMACTokenVerifier([]byte(cfg.JWTSecret)), nil)

	apiRouter := chi.NewRouter()
	apiRouter.Use(authMiddleware)
	apiRouter.Use(platformmiddleware.RequestTrace)

	// Platform administration operates across tenants and must not require a
	// tenant claim, so it mounts before the tenant middleware.
	apiRouter.Group(func(r chi.Router) {
		r.Use(platformauth.RequireAdmin)
		r.Mount("/admin/tenants", tenantHTTPHandler.Routes())
	})

	apiRouter.Group(func(r chi.Router) {
		r.Use(tenantmiddleware.WithTenantSpace(tenantService, tenantmiddleware.Config{
			CacheTTL: cfg.TenantSpaceTTL,
		}))
		r.Mount("/barbers", barberHTTPHandler.Routes())
		r.Mount("/services", offeringHTTPHandler.Routes())
		r.Mount("/appointments", appointmentHTTPHandler.Routes())
		r.Mount("/users", userHTTPHandler.Routes())
		r.Mount("/plans", planHTTPHandler.Routes())
	})

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
