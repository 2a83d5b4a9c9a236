package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Camera   CameraConfig   `yaml:"camera"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Poller   PollerConfig   `yaml:"poller"`
	Training TrainingConfig `yaml:"training"`
	Page     PageConfig     `yaml:"page"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	// 空の場合は最初に見つかったデバイスを使う
	Device string `yaml:"device"`

	FPS    int `yaml:"fps"`    // フレームレート (fps)
	Width  int `yaml:"width"`  // 画像幅
	Height int `yaml:"height"` // 画像高さ
}

// AnalysisConfig は感情解析エンドポイントの設定
type AnalysisConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// PollerConfig はポーリングループの設定
type PollerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// TrainingConfig は学習エンドポイントの設定
type TrainingConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Cooldown time.Duration `yaml:"cooldown"` // ボタンが再び有効になるまでの時間
}

// PageConfig はページの初期状態
type PageConfig struct {
	SubjectID string `yaml:"subject_id"` // 隠しフィールドのミームID
}

// MetricsConfig はPrometheusメトリクスの設定
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// Default はデフォルト値だけで構成した設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // WebSocket用にタイムアウト無効化
		},
		Camera: CameraConfig{
			FPS:    15,
			Width:  640,
			Height: 480,
		},
		Analysis: AnalysisConfig{
			Endpoint: "http://127.0.0.1:5000/analyze",
			Timeout:  10 * time.Second,
		},
		Poller: PollerConfig{
			Interval: 1500 * time.Millisecond,
		},
		Training: TrainingConfig{
			Endpoint: "http://127.0.0.1:5000/train",
			Timeout:  5 * time.Minute,
			Cooldown: 3 * time.Second,
		},
		Metrics: MetricsConfig{
			Namespace: "memepulse",
		},
	}
}

// Load は設定を読み込む
// デフォルト値に環境変数を上書きする
func Load() (*Config, error) {
	cfg := Default()

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// LoadFile はYAMLファイルから設定を読み込む
// ファイルにないキーはデフォルト値、環境変数はファイルより優先する
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// applyEnv は環境変数の値で設定を上書きする
func (c *Config) applyEnv() error {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)
	c.Server.Port = getEnvAsIntOrDefault("SERVER_PORT", c.Server.Port)

	c.Camera.Device = getEnvOrDefault("CAMERA_DEVICE", c.Camera.Device)
	c.Analysis.Endpoint = getEnvOrDefault("ANALYSIS_ENDPOINT", c.Analysis.Endpoint)
	c.Training.Endpoint = getEnvOrDefault("TRAINING_ENDPOINT", c.Training.Endpoint)
	c.Page.SubjectID = getEnvOrDefault("MEME_ID", c.Page.SubjectID)
	c.Metrics.Namespace = getEnvOrDefault("METRICS_NAMESPACE", c.Metrics.Namespace)

	interval, err := getEnvAsDurationOrDefault("POLL_INTERVAL", c.Poller.Interval)
	if err != nil {
		return err
	}
	c.Poller.Interval = interval

	return nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	// カメラ設定の検証
	if c.Camera.FPS <= 0 || c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("無効なカメラ設定: %dx%d@%dfps", c.Camera.Width, c.Camera.Height, c.Camera.FPS)
	}

	// エンドポイントの検証
	if err := validateEndpoint("analysis.endpoint", c.Analysis.Endpoint); err != nil {
		return err
	}
	if err := validateEndpoint("training.endpoint", c.Training.Endpoint); err != nil {
		return err
	}

	if c.Poller.Interval <= 0 {
		return fmt.Errorf("無効なポーリング間隔: %s", c.Poller.Interval)
	}
	if c.Training.Cooldown <= 0 {
		return fmt.Errorf("無効なクールダウン: %s", c.Training.Cooldown)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func validateEndpoint(name, raw string) error {
	if raw == "" {
		return errors.New(name + " が設定されていません")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s が不正です: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s のスキームが不正です: %s", name, raw)
	}
	return nil
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault は環境変数を時間として取得する
// 解析できない値はエラーにする
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s の解析に失敗: %w", key, err)
	}
	return d, nil
}
