package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-service/config"
	"restaurant-service/internal/api"
	"restaurant-service/internal/broker"
	"restaurant-service/internal/redisclient"
	"restaurant-service/internal/service"
	"restaurant-service/internal/store"
	"restaurant-service/internal/store/memstore"
	"restaurant-service/internal/util"
	"restaurant-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const serviceName = "restaurant-service"

func main() {

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, serviceName, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting restaurant service", zap.String("backend", cfg.Store.Backend))

	decimal.MarshalJSONWithoutQuotes = true

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(serviceName, cfg.Observ.JaegerEndpoint, cfg.Observ.SampleRatio)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	ctx := context.Background()
	var checks []api.ReadinessCheck

	var stores service.Stores
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		log.Println("Database connected")

		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				log.Fatalf("Failed to apply schema: %v", err)
			}
		}
		stores = service.Stores{Orders: db, Menu: db, Inventory: db, Ledger: db, Notifications: db, Events: db}
		checks = append(checks, api.ReadinessCheck{Name: "database", Check: db.Ping})
	default:
		mem := memstore.New()
		if cfg.Store.SeedMockData {
			if err := memstore.Seed(ctx, mem); err != nil {
				log.Fatalf("Failed to seed mock data: %v", err)
			}
			log.Println("Mock data seeded")
		}
		stores = service.Stores{Orders: mem, Menu: mem, Inventory: mem, Ledger: mem, Notifications: mem, Events: mem}
	}

	var locker service.OrderLocker = service.NewLocalLocker()
	var mirror service.StockMirror
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")

		locker = redisClient
		mirror = redisClient
		checks = append(checks, api.ReadinessCheck{Name: "redis", Check: redisClient.Ping})
	}

	var events service.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		events = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	var fanout service.NotificationPublisher
	if cfg.RabbitMQ.Enabled {
		publisher, err := broker.DialNotificationPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.NotificationExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
		fanout = publisher
		log.Println("RabbitMQ notification publisher initialized")
	}

	notificationService := service.NewNotificationService(stores.Notifications, fanout, events)
	confirmationService := service.NewConfirmationService(stores, notificationService, locker, mirror, events, cfg.Business.LockTTL, cfg.Business.LockWait)
	orderService := service.NewOrderService(stores, confirmationService, events, cfg.Business.TaxRate, cfg.Business.DeliveryFee)
	inventoryService := service.NewInventoryService(stores, notificationService, mirror)
	menuService := service.NewMenuService(stores)

	if err := inventoryService.SyncMirror(ctx); err != nil {
		log.Printf("Failed to sync stock mirror: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var confirmationWorker *worker.ConfirmationWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		confirmationWorker = worker.NewConfirmationWorker(consumer, service.NewConfirmRequestHandler(stores.Events, confirmationService))
		go func() {
			if err := confirmationWorker.Start(workerCtx); err != nil {
				log.Printf("Confirmation worker error: %v", err)
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Services{
		Orders:        orderService,
		Inventory:     inventoryService,
		Menu:          menuService,
		Notifications: notificationService,
	}, cfg.Auth.Enabled, checks...)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if confirmationWorker != nil {
		confirmationWorker.Stop()
	}

	log.Println("Server exited")
}
