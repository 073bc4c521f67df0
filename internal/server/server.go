package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"shoplist/internal/config"
	custommiddleware "shoplist/internal/middleware"
	"shoplist/internal/repository"
	"shoplist/internal/service"
	"shoplist/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env != "production"))

	// Rate limit per client through Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 120,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit",
	}, logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	brandRepo := repository.NewBrandRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	listRepo := repository.NewListRepository(db)
	itemRepo := repository.NewListItemRepository(db)
	costRepo := repository.NewCostRepository(db)

	// Initialize services
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT.Secret)
	catalogService := service.NewCatalogService(articleRepo, priceRepo, storeRepo, categoryRepo, brandRepo)
	storeService := service.NewReferenceService(storeRepo, "store")
	categoryService := service.NewReferenceService(categoryRepo, "category")
	brandService := service.NewReferenceService(brandRepo, "brand")
	listService := service.NewListService(listRepo, itemRepo, articleRepo, priceRepo, categoryRepo)
	costCache := service.NewCostCacheService(listRepo, itemRepo, priceRepo, categoryRepo, costRepo)

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, logger)
	articleHandler := transport.NewArticleHandler(catalogService, logger)
	storeHandler := transport.NewReferenceHandler(storeService, "stores", logger)
	categoryHandler := transport.NewReferenceHandler(categoryService, "categories", logger)
	brandHandler := transport.NewReferenceHandler(brandService, "brands", logger)
	listHandler := transport.NewListHandler(listService, costCache, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	// Register routes
	userHandler.RegisterRoutes(router, authMiddleware)
	articleHandler.RegisterRoutes(router, authMiddleware)
	storeHandler.RegisterRoutes(router, authMiddleware)
	categoryHandler.RegisterRoutes(router, authMiddleware)
	brandHandler.RegisterRoutes(router, authMiddleware)
	listHandler.RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
