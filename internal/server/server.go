package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/farmsight/apiserver/config"
	"github.com/farmsight/apiserver/internal/cache"
	"github.com/farmsight/apiserver/internal/db"
	"github.com/farmsight/apiserver/internal/handlers"
	"github.com/farmsight/apiserver/internal/services"
	"github.com/farmsight/apiserver/internal/storage"
	"github.com/farmsight/apiserver/internal/store"
	"github.com/farmsight/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	statsCache *cache.StatsCache
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	fieldRepo := store.NewFieldRepository(dbConn)
	deviceRepo := store.NewDeviceRepository(dbConn)
	fieldDataRepo := store.NewFieldDataRepository(dbConn)
	readingRepo := store.NewReadingRepository(dbConn)

	// The stats cache is best-effort: an unreachable Redis degrades to
	// store-backed statistics instead of failing boot.
	statsCache, err := cache.NewStatsCache(cfg.Redis.URL, cfg.Redis.StatsTTL)
	if err != nil {
		log.Printf("stats cache disabled: %v", err)
		statsCache = nil
	}

	userService := services.NewUserService(userRepo)
	fieldService := services.NewFieldService(fieldRepo, deviceRepo)
	deviceService := services.NewDeviceService(deviceRepo, fieldRepo, readingRepo)
	var cacheLayer services.StatsCache
	if statsCache != nil {
		cacheLayer = statsCache
	}
	fieldDataService := services.NewFieldDataService(fieldDataRepo, fieldRepo, cacheLayer)

	firmwareStorage, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		log.Printf("firmware storage disabled: %v", err)
		firmwareStorage = nil
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	authHandler := handlers.NewAuthHandler(userService, jwtSecret)
	requireFarmer := handlers.RequireRole(types.RoleFarmer)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		handlers.Metrics,
		middleware.Timeout(60*time.Second),
	)
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		r.Get("/test", handlers.Test)
		handlers.AuthRouter(r, authHandler)

		r.Group(func(r chi.Router) {
			r.Use(authHandler.RequireAuth)
			r.Get("/user/profile", authHandler.Profile)
			handlers.FieldRouter(r, fieldService, requireFarmer)
			handlers.DeviceRouter(r, deviceService, firmwareStorage, requireFarmer)
			handlers.FieldDataRouter(r, fieldDataService)
			handlers.MetaRouter(r, fieldService)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		statsCache: statsCache,
	}, nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		wrapped := storage.NewStorage(client)
		if err := wrapped.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return wrapped, nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		wrapped := storage.NewStorage(client)
		if err := wrapped.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return wrapped, nil
	case "", "none":
		return nil, errors.New("no storage provider configured")
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.statsCache != nil {
		_ = s.statsCache.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
