package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/go-pet-project/inventory/internal/repository"
	"github.com/sakashimaa/go-pet-project/inventory/internal/service"
	httpTransport "github.com/sakashimaa/go-pet-project/inventory/internal/transport/http"
	"github.com/sakashimaa/go-pet-project/inventory/internal/transport/http/handler"
	inventoryKafka "github.com/sakashimaa/go-pet-project/inventory/internal/transport/kafka"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/config"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/db"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/kafka"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/utils"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	googleGrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.LoggerConfig("inventory-service"))
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tp, err := utils.InitTracer(ctx, utils.TracerOptions{
		ServiceName: "inventory-service",
		Environment: cfg.Env,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Fatalf("Error init tracer: %v", err)
	}

	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	grpc_prometheus.EnableHandlingTimeHistogram()

	reg.MustRegister(grpc_prometheus.DefaultServerMetrics)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	}))
	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Metrics server is listening on %s", cfg.Metrics.Port)

		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics serving failed: %v", err)
		}
	}()

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres.URL, db.PoolOptions{
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		ConnectTimeout:  cfg.Postgres.ConnectTimeout,
	})
	if err != nil {
		log.Fatalf("Error creating new postgres DB: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}

	inventoryRepository := repository.NewInventoryRepository(pool, logger)
	catalogRepository := repository.NewBreakerCatalogRepository(
		repository.NewCatalogRepository(pool, logger),
		utils.BreakerSettings{
			Name:        "CatalogRepository",
			MaxRequests: cfg.Catalog.BreakerMaxRequests,
			Interval:    cfg.Catalog.BreakerInterval,
			Timeout:     cfg.Catalog.BreakerTimeout,
		},
		logger,
	)

	publisher := inventoryKafka.NewPublisher(producer, cfg.Kafka.EventsTopic)

	inventoryService := service.NewInventoryService(
		inventoryRepository,
		catalogRepository,
		publisher,
		service.MutationPolicy{
			MaxAttempts:    cfg.Mutation.MaxAttempts,
			InitialBackoff: cfg.Mutation.InitialBackoff,
			MaxBackoff:     cfg.Mutation.MaxBackoff,
		},
		logger,
		service.WithMetrics(service.NewMetrics(reg)),
	)
	cachedInventoryService := service.NewCachedInventoryService(inventoryService, rdb, cfg.Redis.CacheTTL, logger)
	catalogService := service.NewCatalogService(catalogRepository, logger)

	logger.Info("inventory service started!", zap.String("env", cfg.Env))

	consumer := inventoryKafka.NewConsumer(cachedInventoryService, catalogService, logger)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)

		err := consumer.Start(ctx, inventoryKafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			GroupID:       cfg.Kafka.GroupID,
			CommandsTopic: cfg.Kafka.CommandsTopic,
			CatalogTopic:  cfg.Kafka.CatalogTopic,
			Retry: kafka.RetryPolicy{
				Retries:  cfg.Kafka.Retries,
				Interval: cfg.Kafka.RetryInterval,
			},
		})
		if err != nil {
			logger.Error("consumer stopped with error", zap.Error(err))
			stop()
		}
	}()

	lis, err := net.Listen("tcp", cfg.GRPC.Port)
	if err != nil {
		log.Fatalf("Error listening on %s %v", cfg.GRPC.Port, err)
	}

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	s := googleGrpc.NewServer(
		googleGrpc.StatsHandler(otelgrpc.NewServerHandler()),
		googleGrpc.StreamInterceptor(grpc_prometheus.StreamServerInterceptor),
		googleGrpc.UnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
	)
	healthpb.RegisterHealthServer(s, healthServer)

	grpc_prometheus.Register(s)

	go func() {
		logger.Info("gRPC health server listening", zap.String("port", cfg.GRPC.Port))
		if err := s.Serve(lis); err != nil {
			log.Fatalf("Error serving gRPC: %v", err)
		}
	}()

	app := fiber.New()
	app.Use(otelfiber.Middleware())
	app.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 5 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	httpTransport.RegisterRoutes(app, &httpTransport.Handlers{
		Inventory: handler.NewInventoryHandler(cachedInventoryService, cfg.HTTP.Timeout, logger),
	}, cfg.Auth.JWTSecret)

	go func() {
		logger.Info("HTTP inventory service listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error listening HTTP on port %v: %v", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	healthServer.Shutdown()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", zap.Error(err))
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Consumer did not stop in time")
	}

	s.GracefulStop()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down metrics server", zap.Error(err))
	}

	if err := producer.Close(); err != nil {
		logger.Error("Error closing kafka producer", zap.Error(err))
	}

	if err := rdb.Close(); err != nil {
		logger.Error("Error closing redis client", zap.Error(err))
	}

	pool.Close()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping telemetry", zap.Error(err))
	}

	logger.Info("Inventory service stopped")
}
