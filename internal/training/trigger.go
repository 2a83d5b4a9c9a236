// Package training は学習ボタンの動作（単発の遠隔学習呼び出しとクールダウン）を実装する
package training

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrBusy はボタンが無効化されている間の再実行を表す
var ErrBusy = errors.New("学習ボタンは無効化されています")

// ボタンの文言
const (
	DefaultLabel    = "Обучить модель"
	InProgressLabel = "Обучение..."
	FailureLabel    = "Ошибка! См. консоль"
)

// DefaultCooldown は起動からボタンが再び有効になるまでの時間
const DefaultCooldown = 3 * time.Second

// Control は学習ボタンとして操作できる要素
type Control interface {
	Disable() bool
	Enable()
	SetText(label string)
}

// Trainer は学習エンドポイントを呼び出す
type Trainer interface {
	Train(ctx context.Context) (string, error)
}

// Observer は学習結果を受け取る
type Observer interface {
	ObserveTraining(outcome string)
}

// Trigger は学習ボタンの押下を処理する
type Trigger struct {
	control  Control
	trainer  Trainer
	clock    Clock
	cooldown time.Duration
	observer Observer

	wg sync.WaitGroup
}

// Option はTriggerの設定を変更する
type Option func(*Trigger)

// WithClock は遅延実行に使うClockを差し替える
func WithClock(clock Clock) Option {
	return func(t *Trigger) { t.clock = clock }
}

// WithCooldown はクールダウン時間を変更する
func WithCooldown(d time.Duration) Option {
	return func(t *Trigger) {
		if d > 0 {
			t.cooldown = d
		}
	}
}

// WithObserver は結果の記録先を設定する
func WithObserver(o Observer) Option {
	return func(t *Trigger) { t.observer = o }
}

// NewTrigger は新しいTriggerを作成する
func NewTrigger(control Control, trainer Trainer, opts ...Option) *Trigger {
	t := &Trigger{
		control:  control,
		trainer:  trainer,
		clock:    realClock{},
		cooldown: DefaultCooldown,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Activate はボタンを無効化して学習を依頼する
// 呼び出しはバックグラウンドで行い、結果はボタンの文言に反映する。
// 起動からcooldown後に結果に関係なくボタンを元に戻す（呼び出しが未完了でも戻す）。
func (t *Trigger) Activate(ctx context.Context) error {
	if !t.control.Disable() {
		return ErrBusy
	}
	t.control.SetText(InProgressLabel)

	t.clock.AfterFunc(t.cooldown, func() {
		t.control.Enable()
		t.control.SetText(DefaultLabel)
	})

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(ctx)
	}()

	return nil
}

// Wait は実行中の学習呼び出しの完了を待つ
func (t *Trigger) Wait() {
	t.wg.Wait()
}

func (t *Trigger) run(ctx context.Context) {
	message, err := t.trainer.Train(ctx)
	if err != nil {
		log.Printf("学習の開始に失敗しました: %v", err)
		t.control.SetText(FailureLabel)
		t.observe("failure")
		return
	}

	log.Printf("学習結果: %s", message)
	t.control.SetText(message)
	t.observe("success")
}

func (t *Trigger) observe(outcome string) {
	if t.observer != nil {
		t.observer.ObserveTraining(outcome)
	}
}
