// Command optima is the optimization core's composition root: it loads
// configuration, connects Mongo/Redis, wires the ML advisory provider
// behind its breakers, and starts the bus consumer and feedback handler
// that drive scenarios to completion.
//
// Grounded on example/cmd/assistant/main.go's shape (load config, build
// clients, construct the service, run until signaled), trimmed of the
// teacher's HTTP/gRPC server mux and MCP transport setup — this core
// exposes no inbound transport of its own, only stream consumers.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	openaisdk "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/cutstock/optima/internal/breaker"
	"github.com/cutstock/optima/internal/bus"
	"github.com/cutstock/optima/internal/config"
	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/engine"
	"github.com/cutstock/optima/internal/feedback"
	"github.com/cutstock/optima/internal/mladvisory"
	"github.com/cutstock/optima/internal/mlmodel"
	"github.com/cutstock/optima/internal/mlmodel/anthropic"
	"github.com/cutstock/optima/internal/mlmodel/bedrock"
	"github.com/cutstock/optima/internal/mlmodel/openai"
	"github.com/cutstock/optima/internal/optimizer"
	"github.com/cutstock/optima/internal/repository"
	"github.com/cutstock/optima/internal/serviceclient"
	"github.com/cutstock/optima/internal/telemetry"
	"github.com/cutstock/optima/internal/workerpool"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewClueLogger()
	metrics := telemetry.NewClueMetrics()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer mongoClient.Disconnect(ctx)

	repo, err := repository.New(ctx, repository.Options{Client: mongoClient, Database: cfg.Mongo.Database})
	if err != nil {
		return fmt.Errorf("construct repository: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()

	streamClient, err := bus.NewClient(rdb, bus.ClientOptions{})
	if err != nil {
		return fmt.Errorf("construct bus client: %w", err)
	}

	registry := serviceclient.NewRegistry()
	jobClient := serviceclient.CuttingJobClient{Registry: registry}
	stockClient := serviceclient.StockClient{Registry: registry}

	model, err := buildMLModel(ctx, cfg.MLAdvisory)
	if err != nil {
		return fmt.Errorf("construct ml model: %w", err)
	}
	advisor := mladvisory.New(mladvisory.Options{Model: model, Logger: logger, Metrics: metrics})

	pool := workerpool.New(workerpool.Options{Size: cfg.WorkerPool.MaxConcurrency, Logger: logger})
	defer pool.Close()

	optimizerEngine := &optimizer.Engine{
		Jobs:      resilientJobClient{client: jobClient, breaker: newBreaker(cfg, "cutting-job-client", logger, metrics)},
		Stock:     resilientStockClient{client: stockClient, breaker: newBreaker(cfg, "stock-client", logger, metrics)},
		Advisor:   advisor,
		Materials: repo,
		Pool:      pool,
		Logger:    logger,
	}

	backend := engine.NewInMemory()
	if err := backend.RegisterActivity(ctx, engine.ActivityDefinition{
		Name: bus.ActivityRun,
		Handler: func(ctx context.Context, input any) (any, error) {
			in, ok := input.(optimizer.Input)
			if !ok {
				return nil, fmt.Errorf("optimization.run: unexpected input type %T", input)
			}
			return optimizerEngine.Run(ctx, in), nil
		},
	}); err != nil {
		return fmt.Errorf("register optimization run activity: %w", err)
	}

	consumer := &bus.Consumer{
		Client:    streamClient,
		Scenarios: repo,
		Plans:     repo,
		Backend:   backend,
		Dedup:     bus.NewIdempotencyStore(rdb, 0),
		Emitter:   &bus.Emitter{Stream: mustStream(streamClient, bus.StreamEvents), Local: bus.NewLocalBus(), Logger: logger},
		Logger:    logger,
	}

	feedbackHandler := &feedback.Handler{
		Client:  streamClient,
		Plans:   repo,
		Advisor: advisor,
		Logger:  logger,
	}

	errCh := make(chan error, 2)
	go func() { errCh <- consumer.Run(ctx) }()
	go func() { errCh <- feedbackHandler.Run(ctx) }()

	logger.Info(ctx, "optima core started", "mongo_db", cfg.Mongo.Database, "ml_provider", cfg.MLAdvisory.Provider)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func mustStream(client bus.Client, name string) bus.Stream {
	stream, err := client.Stream(name)
	if err != nil {
		// The events stream is only used for best-effort publishing; a
		// nil Stream makes Emitter.publish skip the Redis leg and keep
		// using the in-process LocalBus, so this is not fatal to startup.
		return nil
	}
	return stream
}

func newBreaker(cfg config.AppConfig, name string, logger telemetry.Logger, metrics telemetry.Metrics) *breaker.Breaker {
	bc := cfg.Breakers[name]
	return breaker.New(breaker.Config{
		Name:            name,
		Timeout:         time.Duration(bc.TimeoutMs) * time.Millisecond,
		ErrorThreshold:  bc.ErrorThresholdPct / 100,
		VolumeThreshold: bc.VolumeThreshold,
		ResetTimeout:    time.Duration(bc.ResetTimeoutMs) * time.Millisecond,
		Logger:          logger,
		Metrics:         metrics,
	})
}

// resilientJobClient and resilientStockClient wrap the service-client
// façades with a circuit breaker, per spec.md §4.11's requirement that
// external dependency calls — not just the ML advisory's — trip and
// fail fast rather than block the engine indefinitely. There is no
// fallback: a breaker error is returned to the optimizer, which fails the
// run.
type resilientJobClient struct {
	client  serviceclient.CuttingJobClient
	breaker *breaker.Breaker
}

func (r resilientJobClient) GetJobWithItems(ctx context.Context, jobID, tenantID string) (domain.CuttingJob, error) {
	return breaker.Do(ctx, r.breaker, func(ctx context.Context) (domain.CuttingJob, error) {
		return r.client.GetJobWithItems(ctx, jobID, tenantID)
	})
}

type resilientStockClient struct {
	client  serviceclient.StockClient
	breaker *breaker.Breaker
}

func (r resilientStockClient) GetAvailableStock(ctx context.Context, query optimizer.StockQuery) ([]domain.StockItem, error) {
	return breaker.Do(ctx, r.breaker, func(ctx context.Context) ([]domain.StockItem, error) {
		return r.client.GetAvailableStock(ctx, query)
	})
}

func buildMLModel(ctx context.Context, cfg config.MLAdvisoryConfig) (mlmodel.Client, error) {
	apiKey := os.Getenv(cfg.APIKeyEnvVar)
	switch cfg.Provider {
	case "openai":
		client := openaisdk.NewClient(openaiopt.WithAPIKey(apiKey))
		return openai.New(client.Chat.Completions, cfg.Model, cfg.MaxTokens)
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		return bedrock.New(client, cfg.Model)
	case "anthropic", "":
		client := anthropicsdk.NewClient(anthropicopt.WithAPIKey(apiKey))
		return anthropic.New(client.Messages, cfg.Model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown ml advisory provider %q", cfg.Provider)
	}
}
