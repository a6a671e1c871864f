package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/collabmarket/collab-services/api/internal/config"
	"github.com/collabmarket/collab-services/api/internal/logger"
	"github.com/collabmarket/collab-services/api/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗しました: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	backend, err := openBackend(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("ストレージ初期化に失敗しました", zap.Error(err))
	}

	services := server.NewServices(backend.repos, backend.ratingCache, zl)
	app := server.New(cfg, zl, services, backend.dependencies...)
	if err := app.Run(); err != nil {
		zl.Fatal("サーバー起動に失敗", zap.Error(err))
	}
}
