package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	c "github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/catalog"
	h "github.com/fjod/go_shop/internal/http"
	m "github.com/fjod/go_shop/internal/metrics"
	"github.com/fjod/go_shop/internal/publisher"
	"github.com/fjod/go_shop/internal/repository"
	s "github.com/fjod/go_shop/internal/service"
	"github.com/fjod/go_shop/pkg/logger"
)

type Config struct {
	HTTPPort        string
	MongoURI        string
	MongoDBName     string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	KafkaTopic      string
	CatalogDBPath   string
	MigrationsPath  string
	DefaultAddress  string
	StartingBalance float64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AppEnv          string
	LogLevel        string
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "shopdb"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "checkout-events"),
		CatalogDBPath:   getEnv("CATALOG_DB_PATH", "./internal/catalog/products.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./internal/catalog/migrations"),
		DefaultAddress:  getEnv("DEFAULT_ADDRESS", "ADDRESS_NOT_SET"),
		StartingBalance: getEnvFloat("STARTING_BALANCE", 500),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AppEnv:          getEnv("APP_ENV", "dev"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func main() {
	cfg := loadConfig()
	log := logger.New(logger.Options{
		Service: "go_shop",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	ctx := context.Background()

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	log.Info("connected to MongoDB", "uri", cfg.MongoURI)

	cartRepo := repository.NewMongoCartRepository(mongoDB)
	userRepo := repository.NewMongoUserRepository(mongoDB)
	outboxRepo := repository.NewMongoOutboxRepository(mongoDB)
	settlement := repository.NewMongoSettlement(mongoDB)

	if err := repository.EnsureIndexes(ctx, cartRepo, userRepo); err != nil {
		log.Error("failed to create indexes", "error", err)
		os.Exit(1)
	}

	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Error("failed to open catalog", "error", err)
		os.Exit(1)
	}
	defer catalogRepo.Close()

	if err := catalogRepo.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Error("failed to run catalog migrations", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	log.Info("redis ping succeeded")

	cartCache := c.NewRedisCache(redisClient)
	cartService := s.NewCartService(cartRepo, userRepo, catalogRepo, settlement, cartCache, log, cfg.DefaultAddress)
	userService := s.NewUserService(userRepo, log, cfg.DefaultAddress, cfg.StartingBalance)

	cartMetrics := m.NewCartMetrics("server")
	cartHandler := h.NewCartHandler(cartService, cartMetrics, cfg.RequestTimeout)
	userHandler := h.NewUserHandler(userService, cfg.RequestTimeout)
	productHandler := h.NewProductHandler(catalogRepo, cfg.RequestTimeout)

	pollerCtx, cancelPoller := context.WithCancel(ctx)
	poller := publisher.NewOutboxPoller(outboxRepo, log, cfg.KafkaTopic, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.HeaderAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", userHandler.Register)
		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", userHandler.GetMe)
			r.Put("/address", userHandler.SetAddress)
			r.Post("/wallet", userHandler.Deposit)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			r.Post("/checkout", cartHandler.Checkout)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}

	cancelPoller()
	poller.Close()
	if err := mongoDB.Client().Disconnect(ctx); err != nil {
		log.Error("mongo disconnect failed", "error", err)
	}
	log.Info("stopped")
}
