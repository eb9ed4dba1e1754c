package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"farmstand/internal/config"
	"farmstand/internal/database"
	custommiddleware "farmstand/internal/middleware"
	"farmstand/internal/repository"
	"farmstand/internal/service"
	"farmstand/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	db      *sql.DB
	redis   *redis.Client
	catalog service.CatalogService
}

// NewServer wires the catalog, cart sessions and HTTP routes. db is required
// for the postgres cart backend and redisClient for the redis backend; either
// may be nil otherwise.
func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) (*Server, error) {
	backend, err := newCartBackend(cfg, db, redisClient)
	if err != nil {
		return nil, err
	}

	// Create router
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))

	var metrics *custommiddleware.Metrics
	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = custommiddleware.NewMetrics(registry)
		router.Use(metrics.Middleware)
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(repository.SeedProducts())
	categoryRepo := repository.NewCategoryRepository(repository.SeedCategories())

	// Initialize services
	catalog := service.NewCatalogService(productRepo, categoryRepo, logger)
	sessions := service.NewCartSessions(backend, catalog, logger, service.SessionLimits{
		MaxOpen: cfg.Cart.MaxOpen,
		IdleTTL: cfg.Cart.IdleTTL,
	})
	catalog.AddDeletionListener(sessions)

	s := &Server{
		config:  cfg,
		logger:  logger,
		db:      db,
		redis:   redisClient,
		catalog: catalog,
	}

	router.Get("/health", s.handleHealth)

	if registry != nil {
		handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		if cfg.Metrics.Token != "" {
			handler = custommiddleware.MetricsAuth(cfg.Metrics.Token)(handler)
		}
		router.Handle("/metrics", handler)
	}

	// Initialize handlers
	productHandler := transport.NewProductHandler(catalog, logger)
	cartHandler := transport.NewCartHandler(sessions, catalog, metrics, logger, !cfg.IsDevelopment())
	adminHandler := transport.NewAdminHandler(catalog, logger)

	var cartLimiter func(http.Handler) http.Handler
	if redisClient != nil && cfg.Redis.RateLimit > 0 {
		cartLimiter = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.Redis.RateLimit,
			Window:            cfg.Redis.RateLimitWindow,
			KeyPrefix:         "farmstand_rate_limit",
			ClientKey:         transport.CartClientKey,
		}, logger)
	}

	// Register routes
	productHandler.RegisterRoutes(router)
	cartHandler.RegisterRoutes(router, cartLimiter)
	if cfg.JWT.Secret != "" {
		adminHandler.RegisterRoutes(router,
			custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger),
			custommiddleware.RequireAdmin(logger),
		)
	} else {
		logger.Warn("JWT_SECRET is empty, admin routes are disabled")
	}

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Info("Server configured",
		zap.String("cart_backend", cfg.Cart.Backend),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Bool("rate_limit", cartLimiter != nil),
		zap.Bool("admin", cfg.JWT.Secret != ""),
	)

	return s, nil
}

func newCartBackend(cfg *config.Config, db *sql.DB, redisClient *redis.Client) (repository.CartBackend, error) {
	switch cfg.Cart.Backend {
	case config.CartBackendMemory:
		return repository.NewMemoryCartBackend(), nil
	case config.CartBackendRedis:
		if redisClient == nil {
			return nil, errors.New("redis cart backend requires a redis client")
		}
		return repository.NewRedisCartBackend(redisClient, cfg.Cart.KeyPrefix, cfg.Cart.TTL), nil
	case config.CartBackendPostgres:
		if db == nil {
			return nil, errors.New("postgres cart backend requires a database")
		}
		return repository.NewPostgresCartBackend(db), nil
	default:
		return nil, fmt.Errorf("unknown cart backend %q", cfg.Cart.Backend)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{
		"status":       "ok",
		"cart_backend": s.config.Cart.Backend,
		"products":     len(s.catalog.ListProducts()),
	}

	if s.db != nil {
		dbHealth := database.Health(r.Context(), s.db)
		body["database"] = dbHealth
		if dbHealth["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
	}

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			body["redis"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			body["redis"] = "up"
		}
	}

	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	custommiddleware.RespondWithJSON(w, status, body)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	var errs []error

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
			errs = append(errs, err)
		}
	}

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
