// Package wire 提供依赖注入配置
package wire

import (
	"github.com/google/wire"

	"ai-sitegen-api/internal/application/preview"
	"ai-sitegen-api/internal/application/session"
	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/domain/repository"
	"ai-sitegen-api/internal/infrastructure/deployment"
	"ai-sitegen-api/internal/infrastructure/generation"
	"ai-sitegen-api/internal/infrastructure/messaging"
	"ai-sitegen-api/internal/infrastructure/persistence/postgres"
	"ai-sitegen-api/internal/infrastructure/persistence/redis"
	"ai-sitegen-api/internal/infrastructure/previewdoc"
	"ai-sitegen-api/internal/interfaces/http/handler"
	"ai-sitegen-api/internal/interfaces/http/middleware"
	"ai-sitegen-api/internal/interfaces/http/router"
)

// DataLayer 数据层依赖容器
type DataLayer struct {
	// PostgreSQL
	PgClient    *postgres.Client
	TxManager   *postgres.TxManager
	ProjectRepo *postgres.ProjectRepository
	MessageRepo *postgres.MessageRepository
	FileRepo    *postgres.FileRepository

	// Redis
	RedisClient *redis.Client
	Cache       *redis.Cache
	RateLimiter *redis.RateLimiter

	// Messaging
	Producer *messaging.Producer
}

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient  *postgres.Client
	TxManager *postgres.TxManager
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewProjectRepository,
	postgres.NewMessageRepository,
	postgres.NewFileRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.MessageRepository), new(*postgres.MessageRepository)),
	wire.Bind(new(repository.FileRepository), new(*postgres.FileRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(session.ProjectCache), new(*redis.Cache)),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
)

// ExternalSet 外部服务客户端提供者集合
var ExternalSet = wire.NewSet(
	ProvideGenerationClient,
	ProvideDeploymentClient,
	ProvideDocumentFetcher,
	wire.Bind(new(session.Generator), new(*generation.Client)),
	wire.Bind(new(session.Deployer), new(*deployment.Client)),
	wire.Bind(new(session.EventProducer), new(*messaging.Producer)),
	wire.Bind(new(preview.DocumentFetcher), new(*previewdoc.Fetcher)),
)

// ServiceSet 应用服务提供者集合
var ServiceSet = wire.NewSet(
	session.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewProjectHandler,
	handler.NewSessionHandler,
	handler.NewPreviewHandler,
	handler.NewDeploymentHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideGenerationClient 提供生成服务客户端
func ProvideGenerationClient(cfg *config.Config) *generation.Client {
	return generation.NewClient(&cfg.Generation)
}

// ProvideDeploymentClient 提供部署服务客户端
func ProvideDeploymentClient(cfg *config.Config) *deployment.Client {
	return deployment.NewClient(&cfg.Deployment)
}

// ProvideDocumentFetcher 提供预览文档抓取器
func ProvideDocumentFetcher(cfg *config.Config) *previewdoc.Fetcher {
	return previewdoc.NewFetcher(cfg.Preview.InspectionTimeout)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(pg *postgres.Client, redisClient *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, redisClient)
}
