package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurahnFakhri/audioTranscribe/internal/config"
	"github.com/BurahnFakhri/audioTranscribe/internal/download"
	"github.com/BurahnFakhri/audioTranscribe/internal/pipeline"
	"github.com/BurahnFakhri/audioTranscribe/internal/queue"
	"github.com/BurahnFakhri/audioTranscribe/internal/storage"
	"github.com/BurahnFakhri/audioTranscribe/internal/transcribe"
	"github.com/BurahnFakhri/audioTranscribe/internal/worker"
	"github.com/BurahnFakhri/audioTranscribe/shared/logger"
	"github.com/BurahnFakhri/audioTranscribe/shared/postgresql"
	"github.com/BurahnFakhri/audioTranscribe/shared/rabbitmq"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.ValidateWorker(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	recordStore := storage.NewRecordStore(dbClient)
	jobQueue := queue.NewPostgresQueue(dbClient.GetDB(), rabbitClient, queue.Options{
		JobType:      cfg.Queue.JobType,
		LockLifetime: cfg.Queue.LockLifetime,
	}, appLogger.Logger)

	downloader := download.NewValidator(download.Config{
		Dir:            cfg.Download.Dir,
		MaxBytes:       cfg.Download.MaxBytes,
		RequestTimeout: cfg.Download.RequestTimeout,
		ProbeTimeout:   cfg.Download.ProbeTimeout,
	}, appLogger.Logger)

	transcriber, err := initTranscriber(&cfg.Transcriber, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize transcriber: %w", err)
	}

	processor := pipeline.NewProcessor(recordStore, downloader, transcriber, appLogger.Logger)

	w := worker.NewWorker(&worker.Config{
		Logger:          appLogger.Logger,
		Queue:           jobQueue,
		Processor:       processor,
		Nudges:          rabbitClient,
		Concurrency:     cfg.Worker.Concurrency,
		TypeConcurrency: cfg.Worker.TypeConcurrency,
		PollInterval:    cfg.Worker.PollInterval,
		JobTimeout:      cfg.Worker.JobTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	appLogger.Info("Worker service is running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err != nil {
			appLogger.Error("Worker exited with error",
				slog.Any("error", err),
			)
		}
	}

	appLogger.Info("Shutting down worker service...")

	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Shutdown timeout exceeded, in-flight jobs will be reclaimed after lock expiry")
	}

	if dbClient != nil {
		dbClient.Close()
	}
	if rabbitClient != nil {
		rabbitClient.Close()
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initTranscriber builds the transcription backend selected in the
// config. Gemini falls back to the stub on per-request failures so a
// flaky upstream degrades output quality instead of failing jobs.
func initTranscriber(cfg *config.TranscriberConfig, logger *slog.Logger) (transcribe.Transcriber, error) {
	switch cfg.Provider {
	case "", "stub":
		return transcribe.NewStub(), nil

	case "gemini":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}

		gemini, err := transcribe.NewGemini(transcribe.GeminiConfig{
			APIKey: apiKey,
			Model:  cfg.Model,
		}, logger)
		if err != nil {
			return nil, err
		}

		return transcribe.WithFallback(gemini, transcribe.NewStub(), logger), nil

	default:
		return nil, fmt.Errorf("unknown transcriber provider: %q", cfg.Provider)
	}
}
