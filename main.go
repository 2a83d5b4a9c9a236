package main

import (
	"context"
	"log"

	"github.com/kkrugley/MemePulseAI/internal/app"
	"github.com/kkrugley/MemePulseAI/internal/config"
	"github.com/kkrugley/MemePulseAI/internal/observability"
	"github.com/kkrugley/MemePulseAI/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)
	application := app.New(cfg, metrics)

	// コンテキストを作成
	ctx := context.Background()

	// ページを読み込む（カメラが使えなくてもサーバーは起動する）
	if err := application.Load(ctx); err != nil {
		log.Printf("ポーリングは開始されませんでした: %v", err)
	}

	// サーバーを起動
	srv := server.New(cfg, application, metrics)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
