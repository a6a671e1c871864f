package main

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/collabmarket/collab-services/api/internal/config"
	"github.com/collabmarket/collab-services/api/internal/infrastructure/memory"
	mongodoc "github.com/collabmarket/collab-services/api/internal/infrastructure/mongo"
	rediscache "github.com/collabmarket/collab-services/api/internal/infrastructure/redis"
	app "github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/server"
)

type backend struct {
	repos        server.Repositories
	ratingCache  app.RatingCache
	dependencies []server.Dependency
}

// openBackend は STORE_DRIVER に応じてリポジトリを組み立て、REDIS_URL があればキャッシュを接続する。
func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	b := &backend{}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		b.repos = server.Repositories{
			Deals:         store.Deals(),
			Notifications: store.Notifications(),
			Chats:         store.Chats(),
			SavedDeals:    store.SavedDeals(),
			Ratings:       store.Ratings(),
		}
		logger.Warn("in-memory store in use; data is lost on restart")
	default:
		client, err := connectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		collections := mongoCollections(cfg.Collections)
		if err := mongodoc.EnsureIndexes(ctx, db, collections); err != nil {
			logger.Warn("index creation failed", zap.Error(err))
		}
		repos := mongodoc.NewRepositories(db, collections)
		b.repos = server.Repositories{
			Deals:         repos.Deals,
			Notifications: repos.Notifications,
			Chats:         repos.Chats,
			SavedDeals:    repos.SavedDeals,
			Ratings:       repos.Ratings,
		}
		b.dependencies = append(b.dependencies, server.Dependency{
			Name:  "mongo",
			Ping:  func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
			Close: client.Disconnect,
		})
	}

	if cfg.RedisURL != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		b.ratingCache = rediscache.NewRatingCache(client, cfg.RatingCacheTTL)
		b.dependencies = append(b.dependencies, server.Dependency{
			Name:  "redis",
			Ping:  func(ctx context.Context) error { return client.Ping(ctx).Err() },
			Close: func(context.Context) error { return client.Close() },
		})
	}
	return b, nil
}

func connectMongo(ctx context.Context, cfg config.Config) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.MongoURI).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("MongoDB 接続に失敗しました: %w", err)
	}
	return client, nil
}

func mongoCollections(c config.Collections) mongodoc.Collections {
	return mongodoc.Collections{
		Deals:         c.Deals,
		Notifications: c.Notifications,
		Chats:         c.Chats,
		UserChats:     c.UserChats,
		SavedDeals:    c.SavedDeals,
		Ratings:       c.Ratings,
	}
}
