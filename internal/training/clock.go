package training

import (
	"sync"
	"time"
)

// Clock は遅延実行を提供する
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer はAfterFuncで予約した処理
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualClock はテスト用に手動で時間を進めるClock実装
type ManualClock struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*manualTimer
}

type manualTimer struct {
	clock   *ManualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

// NewManualClock は新しいManualClockを作成する
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc は現在の仮想時刻からdだけ後にfを実行するよう予約する
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.pending = append(c.pending, t)
	return t
}

// Advance は仮想時刻を進め、期限を迎えた処理を実行する
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	now := c.now

	var due []*manualTimer
	remaining := c.pending[:0]
	for _, t := range c.pending {
		if !t.stopped && t.at <= now {
			t.fired = true
			due = append(due, t)
			continue
		}
		if !t.stopped {
			remaining = append(remaining, t)
		}
	}
	c.pending = remaining
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// Pending は未実行の予約数を返す
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
