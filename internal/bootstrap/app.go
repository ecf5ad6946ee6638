package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"devconnect/internal/config"
	mongodbClient "devconnect/internal/platform/mongodb"
	rabbitmqClient "devconnect/internal/platform/rabbitmq"
	redisClient "devconnect/internal/platform/redis"
	"devconnect/internal/repository"
	"devconnect/internal/worker"
)

type App struct {
	Config        *config.Config
	Mongo         *mongo.Database
	Redis         *redis.Client
	MQConn        *amqp.Connection
	CleanupWorker *worker.CleanupWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mongoDB, err := mongodbClient.New(ctx, cfg.Mongo.URI, cfg.Mongo.DB)
	if err != nil {
		return nil, err
	}
	if err := repository.NewUserRepository(mongoDB).EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := repository.NewProfileRepository(mongoDB).EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	postRepo := repository.NewPostRepository(mongoDB)
	cleanupWorker := worker.NewCleanupWorker(mqConn, postRepo, cfg.RabbitMQ.CleanupQueue)
	if err := cleanupWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start cleanup worker failed: %w", err)
	}

	return &App{
		Config:        cfg,
		Mongo:         mongoDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		CleanupWorker: cleanupWorker,
		StartedAt:     time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.CleanupWorker != nil {
		a.CleanupWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Mongo.Client().Disconnect(ctx); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
