// Package main はMemePulseサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/kkrugley/MemePulseAI/internal/app"
	"github.com/kkrugley/MemePulseAI/internal/config"
	"github.com/kkrugley/MemePulseAI/internal/observability"
	"github.com/kkrugley/MemePulseAI/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		configPath = flag.String("config", "", "YAML設定ファイルのパス")
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		device     = flag.String("device", "", "カメラデバイス (デフォルト: 最初に見つかったデバイス)")
		memeID     = flag.String("meme-id", "", "解析対象のミームID")
		release    = flag.Bool("release", false, "ginをリリースモードで動かす")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("MemePulse")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *release {
		gin.SetMode(gin.ReleaseMode)
	}

	// 設定を読み込む
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *device != "" {
		cfg.Camera.Device = *device
	}
	if *memeID != "" {
		cfg.Page.SubjectID = *memeID
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定が不正です: %v", err)
	}

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)
	application := app.New(cfg, metrics)

	// コンテキストを作成
	ctx := context.Background()

	// ページを読み込む
	if err := application.Load(ctx); err != nil {
		log.Printf("ポーリングは開始されませんでした: %v", err)
	}

	// サーバーを作成
	srv := server.New(cfg, application, metrics)

	// サーバーを起動
	log.Printf("MemePulse サーバーを起動します: %s", cfg.ServerAddress())
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
