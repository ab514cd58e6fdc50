package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
	"github.com/YelzhanWeb/kitchen/internal/adapter/memory"
	"github.com/YelzhanWeb/kitchen/internal/adapter/postgres"
	"github.com/YelzhanWeb/kitchen/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/kitchen/internal/adapter/sqlite"
	"github.com/YelzhanWeb/kitchen/internal/app/kitchen"
	"github.com/YelzhanWeb/kitchen/internal/app/tracking"
	"github.com/YelzhanWeb/kitchen/internal/config"
	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
	"github.com/YelzhanWeb/kitchen/internal/metrics"

	amqpAdapter "github.com/YelzhanWeb/kitchen/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/kitchen/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "kitchen-service", "Service mode: kitchen-service, notification-subscriber")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.HTTP.Port = *port
	}

	lgr := logger.New(*mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "kitchen-service":
		if err := runKitchenService(ctx, cfg, lgr); err != nil {
			lgr.Error("service_failed", "Kitchen service stopped with error", "runtime", nil, err)
			os.Exit(1)
		}

	case "notification-subscriber":
		if err := runNotificationSubscriber(ctx, cfg, lgr); err != nil {
			lgr.Error("service_failed", "Notification subscriber stopped with error", "runtime", nil, err)
			os.Exit(1)
		}

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

type storage struct {
	orders  interfaces.OrderRepository
	catalog interfaces.Catalog
	close   func()
}

func openStorage(ctx context.Context, cfg *config.Config, lgr logger.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
			"host": cfg.Database.Host,
			"db":   cfg.Database.Database,
		})
		return &storage{
			orders:  postgres.NewOrderRepository(db),
			catalog: postgres.NewMenuRepository(db),
			close:   db.Close,
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		lgr.Info("db_connected", "Opened SQLite database", "startup", map[string]interface{}{
			"path": cfg.Storage.SQLitePath,
		})
		return &storage{
			orders:  store,
			catalog: store,
			close:   func() { store.Close() },
		}, nil

	case config.DriverMemory:
		store := memory.New(domain.DefaultMenu)
		lgr.Info("db_connected", "Using in-memory storage", "startup", nil)
		return &storage{orders: store, catalog: store, close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func connectPublisher(cfg *config.Config, lgr logger.Logger) (interfaces.EventPublisher, func()) {
	if !cfg.RabbitMQ.Enabled {
		return rabbitmq.NewDiscardPublisher(), func() {}
	}

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		// Кухня работает и без брокера, события просто не уходят
		lgr.Error("rabbitmq_connect_failed", "Failed to connect to RabbitMQ, events are disabled", "startup", nil, err)
		return rabbitmq.NewDiscardPublisher(), func() {}
	}

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})
	return rabbitmq.NewPublisher(mqConn), func() { mqConn.Close() }
}

func runKitchenService(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	store, err := openStorage(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer store.close()

	publisher, closePublisher := connectPublisher(cfg, lgr)
	defer closePublisher()

	m := metrics.New()

	kitchenService := kitchen.NewService(store.orders, store.catalog, publisher, lgr, m, kitchen.Options{
		MaxCapacity:         cfg.Kitchen.MaxCapacity,
		AllowDirectComplete: cfg.Kitchen.AllowDirectComplete,
		RejectUnresolved:    cfg.Kitchen.RejectUnresolvedItems,
	})
	trackingService := tracking.NewService(store.orders, lgr)

	handler := httpAdapter.NewRouter(
		httpAdapter.NewOrderHandler(kitchenService, lgr),
		httpAdapter.NewKitchenHandler(kitchenService, lgr),
		httpAdapter.NewTrackingHandler(trackingService, lgr),
		lgr,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", m.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lgr.Error("metrics_server_error", "Metrics server error", "runtime", nil, err)
		}
	}()

	lgr.Info("service_started", fmt.Sprintf("Kitchen Service started on port %d", cfg.HTTP.Port), "startup", map[string]interface{}{
		"port":         cfg.HTTP.Port,
		"metrics_port": cfg.Metrics.Port,
		"max_capacity": cfg.Kitchen.MaxCapacity,
		"storage":      cfg.Storage.Driver,
	})

	// Graceful shutdown
	go func() {
		<-ctx.Done()

		lgr.Info("shutdown_initiated", "Shutting down Kitchen Service", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during metrics shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer mqConn.Close()

	consumer := rabbitmq.NewConsumer(mqConn, lgr)
	notificationHandler := amqpAdapter.NewNotificationHandler(lgr)

	lgr.Info("service_started", "Notification Subscriber started", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	err = consumer.ConsumeStatusChanges(ctx, notificationHandler.HandleNotification)

	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
