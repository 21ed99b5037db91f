// Package main 部署状态轮询 worker 入口
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"ai-sitegen-api/internal/application/deploywatch"
	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/infrastructure/deployment"
	"ai-sitegen-api/internal/infrastructure/messaging"
	"ai-sitegen-api/internal/wire"
	"ai-sitegen-api/pkg/logger"
	"ai-sitegen-api/pkg/tracer"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting deploy-worker",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name + "-deploy-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	dataLayer, cleanup, err := wire.InitializeDataLayer(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize data layer", err)
	}
	defer cleanup()

	deployClient := deployment.NewClient(&cfg.Deployment)
	watcher := deploywatch.NewWatcher(
		&cfg.Deployment,
		dataLayer.ProjectRepo,
		deployClient,
		dataLayer.Producer,
		dataLayer.Cache,
	)

	hostname, _ := os.Hostname()
	consumerName := fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])

	deployConsumer := messaging.NewConsumer(dataLayer.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamDeployStatus,
		Group:        messaging.ConsumerGroupDeployWatcher,
		ConsumerName: consumerName,
		BlockTimeout: cfg.Messaging.RedisStream.BlockTimeout,
		RetryLimit:   cfg.Messaging.RedisStream.RetryLimit,
		ExpireFunc:   deploywatch.DeployCheckExpired,
	})
	deployConsumer.RegisterHandler("deploy_check", watcher.HandleDeployCheck)

	eventConsumer := messaging.NewConsumer(dataLayer.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamPreviewEvents,
		Group:        messaging.ConsumerGroupEventArchiver,
		ConsumerName: consumerName,
		BlockTimeout: cfg.Messaging.RedisStream.BlockTimeout,
		RetryLimit:   cfg.Messaging.RedisStream.RetryLimit,
	})
	eventConsumer.RegisterHandler("preview_event", watcher.HandlePreviewEvent)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := deployConsumer.Start(runCtx); err != nil {
		logger.Fatal(ctx, "failed to start deploy consumer", err)
	}
	if err := eventConsumer.Start(runCtx); err != nil {
		logger.Fatal(ctx, "failed to start event consumer", err)
	}

	go deployConsumer.MonitorDLQ(runCtx, 0)
	go eventConsumer.MonitorDLQ(runCtx, 0)

	log.Info("deploy-worker started",
		"consumer", consumerName,
		"streams", []string{string(messaging.StreamDeployStatus), string(messaging.StreamPreviewEvents)},
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down deploy-worker...")
	cancel()
	deployConsumer.Stop()
	eventConsumer.Stop()
	log.Info("deploy-worker exited")
}
