// Package app はページ読み込みからカメラ取得、ポーリング開始までを組み立てる
//
// # 責務
// - ページ読み込み時のカメラ取得とポーリングループの開始
// - 学習ボタンと学習トリガーの接続
// - ページ破棄時のループ停止とカメラ解放
//
// # 仕様
// - カメラ取得に失敗した場合は結果テキストに理由を表示し、ループは開始しない
// - ページを読み込み直すと前のページのループとカメラは解放される
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/kkrugley/MemePulseAI/internal/analysis"
	"github.com/kkrugley/MemePulseAI/internal/camera"
	"github.com/kkrugley/MemePulseAI/internal/config"
	"github.com/kkrugley/MemePulseAI/internal/frame"
	"github.com/kkrugley/MemePulseAI/internal/labels"
	"github.com/kkrugley/MemePulseAI/internal/observability"
	"github.com/kkrugley/MemePulseAI/internal/page"
	"github.com/kkrugley/MemePulseAI/internal/poller"
	"github.com/kkrugley/MemePulseAI/internal/training"
)

var (
	// ErrNotLoaded はページがまだ読み込まれていないことを表す
	ErrNotLoaded = errors.New("ページが読み込まれていません")
	// ErrSurfaceNotReady は映像面からフレームを読めないことを表す
	ErrSurfaceNotReady = errors.New("映像がまだ再生されていません")
)

// カメラ状態
const (
	CameraUnbound = "unbound"
)

// ループ状態
const (
	LoopNone = "none"
)

// Acquirer はカメラを取得して映像面を返す
type Acquirer interface {
	Acquire(ctx context.Context) (*camera.Video, error)
}

// Status はページとループの状態
type Status struct {
	Page   page.State `json:"page"`
	Camera string     `json:"camera"`
	Loop   string     `json:"loop"`
}

// App はページ1回分の構成要素を管理する
type App struct {
	cfg      *config.Config
	metrics  *observability.Metrics
	acquirer Acquirer
	analyzer poller.Analyzer
	trainer  training.Trainer
	encoder  *frame.Encoder

	pollerOpts  []poller.Option
	triggerOpts []training.Option

	mu      sync.RWMutex
	page    *page.Page
	video   *camera.Video
	handle  *poller.Handle
	trigger *training.Trigger
}

// Option はAppの設定を変更する
type Option func(*App)

// WithAcquirer はカメラ取得を差し替える
func WithAcquirer(a Acquirer) Option {
	return func(app *App) { app.acquirer = a }
}

// WithAnalyzer は解析クライアントを差し替える
func WithAnalyzer(a poller.Analyzer) Option {
	return func(app *App) { app.analyzer = a }
}

// WithTrainer は学習クライアントを差し替える
func WithTrainer(t training.Trainer) Option {
	return func(app *App) { app.trainer = t }
}

// WithPollerOptions はポーリングループに渡すオプションを追加する
func WithPollerOptions(opts ...poller.Option) Option {
	return func(app *App) { app.pollerOpts = append(app.pollerOpts, opts...) }
}

// WithTriggerOptions は学習トリガーに渡すオプションを追加する
func WithTriggerOptions(opts ...training.Option) Option {
	return func(app *App) { app.triggerOpts = append(app.triggerOpts, opts...) }
}

// New は設定から新しいAppを作成する
func New(cfg *config.Config, metrics *observability.Metrics, opts ...Option) *App {
	a := &App{
		cfg:     cfg,
		metrics: metrics,
		encoder: frame.NewEncoder(frame.DefaultQuality),
		acquirer: camera.NewAcquirer(cfg.Camera.Device, camera.Settings{
			FPS:    cfg.Camera.FPS,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
		}),
		analyzer: analysis.NewClient(cfg.Analysis.Endpoint, cfg.Analysis.Timeout),
		trainer:  training.NewClient(cfg.Training.Endpoint, cfg.Training.Timeout),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load はページを読み込む
// カメラ取得に成功した場合だけポーリングループを開始する。
// 取得失敗は結果テキストに表示したうえでエラーとして返す。
func (a *App) Load(ctx context.Context) error {
	// 前のページを破棄する
	if err := a.Close(ctx); err != nil {
		log.Printf("前のページの破棄に失敗しました: %v", err)
	}

	p := page.New(a.cfg.Page.SubjectID)
	triggerOpts := append([]training.Option{
		training.WithCooldown(a.cfg.Training.Cooldown),
		training.WithObserver(a.metrics),
	}, a.triggerOpts...)
	trigger := training.NewTrigger(p.Train, a.trainer, triggerOpts...)

	a.mu.Lock()
	a.page = p
	a.trigger = trigger
	a.mu.Unlock()

	log.Printf("ページを読み込みました: %s", p.ID)

	video, err := a.acquirer.Acquire(ctx)
	if err != nil {
		a.metrics.SetCameraBound(false)
		if errors.Is(err, camera.ErrUnsupported) {
			p.Result.SetText(page.CameraUnsupported)
		} else {
			p.Result.SetText(page.CameraUnavailable)
		}
		log.Printf("カメラへのアクセスに失敗しました: %v", err)
		return fmt.Errorf("カメラの取得に失敗: %w", err)
	}
	a.metrics.SetCameraBound(true)

	loop := poller.New(poller.Config{
		Surface:   video,
		Encoder:   a.encoder,
		Analyzer:  a.analyzer,
		Subject:   p.Subject,
		Display:   p.Result,
		Translate: labels.Translate,
		Interval:  a.cfg.Poller.Interval,
		Metrics:   a.metrics,
	}, a.pollerOpts...)

	// ループはリクエストではなくページの寿命に従う
	handle, err := loop.Start(context.WithoutCancel(ctx))
	if err != nil {
		_ = video.Release(ctx)
		a.metrics.SetCameraBound(false)
		return fmt.Errorf("ポーリングの開始に失敗: %w", err)
	}

	a.mu.Lock()
	a.video = video
	a.handle = handle
	a.mu.Unlock()

	return nil
}

// Close はページを破棄する
// ループを止めてからカメラを解放する
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	handle := a.handle
	video := a.video
	a.handle = nil
	a.video = nil
	a.mu.Unlock()

	if handle != nil {
		handle.Stop()
	}
	if video == nil {
		return nil
	}

	a.metrics.SetCameraBound(false)
	if err := video.Release(ctx); err != nil {
		return fmt.Errorf("カメラの解放に失敗: %w", err)
	}
	return nil
}

// Page は現在のページを返す
func (a *App) Page() (*page.Page, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.page == nil {
		return nil, ErrNotLoaded
	}
	return a.page, nil
}

// Train は学習ボタンを押す
// 呼び出し元のリクエストが終わっても学習呼び出しは続ける
func (a *App) Train(ctx context.Context) error {
	a.mu.RLock()
	trigger := a.trigger
	a.mu.RUnlock()

	if trigger == nil {
		return ErrNotLoaded
	}
	return trigger.Activate(context.WithoutCancel(ctx))
}

// SetSubject は隠しフィールドの値を変更する
func (a *App) SetSubject(subjectID string) error {
	p, err := a.Page()
	if err != nil {
		return err
	}
	p.Subject.Set(subjectID)
	return nil
}

// Preview は映像面の現在のフレームを左右反転したJPEGで返す
func (a *App) Preview() ([]byte, error) {
	a.mu.RLock()
	video := a.video
	a.mu.RUnlock()

	if video == nil || !video.Ready() {
		return nil, ErrSurfaceNotReady
	}

	img, err := video.CurrentFrame()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSurfaceNotReady, err)
	}
	snapshot, err := a.encoder.Encode(img)
	if err != nil {
		return nil, err
	}
	return snapshot.JPEG()
}

// Status は現在の状態を返す
func (a *App) Status() (Status, error) {
	a.mu.RLock()
	p := a.page
	video := a.video
	handle := a.handle
	a.mu.RUnlock()

	if p == nil {
		return Status{}, ErrNotLoaded
	}

	status := Status{
		Page:   p.Snapshot(),
		Camera: CameraUnbound,
		Loop:   LoopNone,
	}
	if video != nil {
		status.Camera = string(video.Status())
	}
	if handle != nil {
		status.Loop = string(handle.State())
	}
	return status, nil
}

// LoopHandle は現在のポーリングハンドルを返す（未開始ならnil）
func (a *App) LoopHandle() *poller.Handle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.handle
}
