// Package poller は一定間隔でフレームを解析し、結果を表示するポーリングループを実装する
//
// # 仕様
// - 状態は Running と Stopped の2つだけ
// - ティックは1つのゴルーチン内で順に処理し、前のティックが終わるまで次を受け取らない
// - 遅れたティックは追いかけない（time.Ticker は溜まったティックを捨てる）
// - フレーム取得・エンコード・解析のいずれかが失敗したら永久に停止する
// - 同時に動くループは Poller ごとに最大1つ
package poller

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/kkrugley/MemePulseAI/internal/frame"
	"github.com/kkrugley/MemePulseAI/internal/observability"
)

// DefaultInterval はティック間隔の既定値
const DefaultInterval = 1500 * time.Millisecond

var (
	// ErrMissingSubject は対象IDが空のためティックを飛ばしたことを表す
	ErrMissingSubject = errors.New("ページに対象IDがありません")
	// ErrAlreadyRunning はループが既に動いていることを表す
	ErrAlreadyRunning = errors.New("ポーリングループは既に動作中です")
)

// State はループの状態
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Surface はフレームを読み出す映像面
type Surface interface {
	Ready() bool
	CurrentFrame() (image.Image, error)
}

// Encoder はフレームをスナップショットにする
type Encoder interface {
	Encode(img image.Image) (frame.Snapshot, error)
}

// Analyzer はスナップショットを解析してラベルを返す
type Analyzer interface {
	Analyze(ctx context.Context, snapshot frame.Snapshot, subjectID string) (string, error)
}

// SubjectSource は対象IDを読み出す
type SubjectSource interface {
	Value() string
}

// Display は結果テキストを表示する
type Display interface {
	SetText(text string)
}

// Poller はポーリングループの構成要素をまとめる
type Poller struct {
	surface   Surface
	encoder   Encoder
	analyzer  Analyzer
	subject   SubjectSource
	display   Display
	translate func(string) string
	interval  time.Duration
	ticks     func(d time.Duration) (<-chan time.Time, func())
	metrics   *observability.Metrics

	mu     sync.Mutex
	active *Handle
}

// Config はPollerの構成要素
type Config struct {
	Surface   Surface
	Encoder   Encoder
	Analyzer  Analyzer
	Subject   SubjectSource
	Display   Display
	Translate func(string) string
	Interval  time.Duration
	Metrics   *observability.Metrics
}

// Option はPollerの設定を変更する
type Option func(*Poller)

// WithTickSource はティックの発生源を差し替える（テスト用）
func WithTickSource(ticks <-chan time.Time) Option {
	return func(p *Poller) {
		p.ticks = func(time.Duration) (<-chan time.Time, func()) {
			return ticks, func() {}
		}
	}
}

// New は新しいPollerを作成する
func New(cfg Config, opts ...Option) *Poller {
	p := &Poller{
		surface:   cfg.Surface,
		encoder:   cfg.Encoder,
		analyzer:  cfg.Analyzer,
		subject:   cfg.Subject,
		display:   cfg.Display,
		translate: cfg.Translate,
		interval:  cfg.Interval,
		metrics:   cfg.Metrics,
		ticks: func(d time.Duration) (<-chan time.Time, func()) {
			ticker := time.NewTicker(d)
			return ticker.C, ticker.Stop
		},
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.translate == nil {
		p.translate = func(label string) string { return label }
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval はティック間隔を返す
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start はループを開始し、停止に使うハンドルを返す
func (p *Poller) Start(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil && p.active.State() == StateRunning {
		return nil, ErrAlreadyRunning
	}

	ticks, stopTicks := p.ticks(p.interval)
	loopCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateRunning,
	}
	p.active = h
	p.metrics.SetLoopRunning(true)

	go p.run(loopCtx, h, ticks, stopTicks)

	log.Printf("ポーリングループを開始しました (間隔: %s)", p.interval)
	return h, nil
}

// run はティックを順に処理する
func (p *Poller) run(ctx context.Context, h *Handle, ticks <-chan time.Time, stopTicks func()) {
	defer close(h.done)
	defer stopTicks()
	defer p.metrics.SetLoopRunning(false)

	for {
		select {
		case <-ctx.Done():
			h.finish(nil)
			return
		case _, ok := <-ticks:
			if !ok {
				h.finish(nil)
				return
			}
			if err := p.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					// 停止要求で中断されたティックは失敗扱いにしない
					h.finish(nil)
					return
				}
				// 壊れたバックエンドにエラーを送り続けないよう、ここで止める
				log.Printf("フレーム解析に失敗したためポーリングを停止します: %v", err)
				h.finish(err)
				return
			}
		}
	}
}

// Tick はループ本体を1回実行する
// 戻り値のエラーはループを停止すべき失敗だけを表す
func (p *Poller) Tick(ctx context.Context) error {
	if !p.surface.Ready() {
		p.metrics.ObserveTick(observability.TickIdle)
		return nil
	}

	subjectID := p.subject.Value()
	if subjectID == "" {
		log.Printf("ティックをスキップしました: %v", ErrMissingSubject)
		p.metrics.ObserveTick(observability.TickMissingSubject)
		return nil
	}

	label, err := p.analyze(ctx, subjectID)
	if err != nil {
		p.metrics.ObserveTick(observability.TickFailed)
		return err
	}

	p.display.SetText(p.translate(label))
	p.metrics.ObserveTick(observability.TickAnalyzed)
	return nil
}

// analyze はキャプチャ、エンコード、解析の順に実行する
func (p *Poller) analyze(ctx context.Context, subjectID string) (string, error) {
	img, err := p.surface.CurrentFrame()
	if err != nil {
		return "", fmt.Errorf("フレームの取得に失敗: %w", err)
	}

	snapshot, err := p.encoder.Encode(img)
	if err != nil {
		return "", fmt.Errorf("フレームのエンコードに失敗: %w", err)
	}

	started := time.Now()
	label, err := p.analyzer.Analyze(ctx, snapshot, subjectID)
	p.metrics.ObserveAnalysis(time.Since(started))
	if err != nil {
		return "", err
	}
	return label, nil
}

// Handle は動作中のループを表す
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.RWMutex
	state State
	err   error
}

// Stop はループを停止し、ゴルーチンの終了を待つ
// 何度呼んでも安全
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Done はループ終了時に閉じられるチャンネルを返す
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// State は現在の状態を返す
func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Err はループを停止させた失敗を返す（明示的な停止ではnil）
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

func (h *Handle) finish(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = StateStopped
	h.err = err
}
