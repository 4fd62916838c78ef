package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docuchat/internal/ai"
	"docuchat/internal/cache"
	"docuchat/internal/chunk"
	"docuchat/internal/config"
	"docuchat/internal/ingest"
	"docuchat/internal/model"
	mysqlClient "docuchat/internal/platform/mysql"
	rabbitmqClient "docuchat/internal/platform/rabbitmq"
	redisClient "docuchat/internal/platform/redis"
	"docuchat/internal/repository"
	"docuchat/internal/vector"
	"docuchat/internal/worker"
)

// App is the composition root. Every component is constructed here with an
// explicit lifetime; nothing hangs off package-level state.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	SessionRepo  *repository.SessionRepository
	DocumentRepo *repository.DocumentRepository
	MessageRepo  *repository.MessageRepository
	HistoryCache *cache.HistoryCache

	LLMClient    *ai.Client
	Gateway      *vector.Gateway
	Pipeline     *ingest.Pipeline
	JobPublisher *rabbitmqClient.JobPublisher
	IngestWorker *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.Session{},
		&model.Document{},
		&model.Message{},
		&model.VectorEntry{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	sessionRepo := repository.NewSessionRepository(mysqlDB)
	documentRepo := repository.NewDocumentRepository(mysqlDB)
	messageRepo := repository.NewMessageRepository(mysqlDB)
	historyCache := cache.NewHistoryCache(
		redisCli,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)

	llmClient := ai.NewClient(ai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	})

	var store vector.Store
	switch cfg.RAG.Store {
	case "memory":
		store = vector.NewMemoryStore()
	case "mysql", "":
		store = repository.NewVectorRepository(mysqlDB)
	default:
		return nil, fmt.Errorf("unknown vector store %q", cfg.RAG.Store)
	}
	gateway := vector.NewGateway(llmClient, store, logger)

	chunker, err := chunk.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("build chunker failed: %w", err)
	}
	pipeline := ingest.NewPipeline(documentRepo, chunker, gateway, logger)

	jobPublisher := rabbitmqClient.NewJobPublisher(mqConn, cfg.RabbitMQ.IngestQueue)
	ingestWorker := worker.NewIngestWorker(mqConn, pipeline, cfg.RabbitMQ.IngestQueue, logger)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		MySQL:        mysqlDB,
		Redis:        redisCli,
		MQConn:       mqConn,
		SessionRepo:  sessionRepo,
		DocumentRepo: documentRepo,
		MessageRepo:  messageRepo,
		HistoryCache: historyCache,
		LLMClient:    llmClient,
		Gateway:      gateway,
		Pipeline:     pipeline,
		JobPublisher: jobPublisher,
		IngestWorker: ingestWorker,
		StartedAt:    time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
