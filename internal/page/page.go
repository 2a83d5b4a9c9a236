// Package page はページ1回分の表示状態（結果テキスト、学習ボタン、隠しフィールド）を保持する
//
// # 責務
// - ページセッションの識別子と対象ID（隠しフィールド）の保持
// - 解析結果テキストと学習ボタンの状態管理
// - 状態変化の購読者への通知（WebSocket配信用）
//
// # 仕様
// - 各要素はそれぞれを所有するコンポーネントだけが書き換える
// - 読み取りはHTTPハンドラから並行に行われるためロックで保護する
package page

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// 表示文言
const (
	DefaultResultText  = "Анализ..."
	CameraUnavailable  = "Нет доступа к камере!"
	CameraUnsupported  = "Камера не поддерживается"
	DefaultButtonLabel = "Обучить модель"
)

// State はページ状態のスナップショット
type State struct {
	ID             string    `json:"id"`
	SubjectID      string    `json:"meme_id"`
	Result         string    `json:"result"`
	ButtonLabel    string    `json:"button_label"`
	ButtonDisabled bool      `json:"button_disabled"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Page は1回のページ表示に対応するセッションコンテキスト
type Page struct {
	ID      string
	Subject *SubjectField
	Result  *ResultText
	Train   *Button

	mu          sync.Mutex
	subscribers map[int]chan State
	nextSubID   int
	updatedAt   time.Time
}

// New は新しいPageを作成する
func New(subjectID string) *Page {
	p := &Page{
		ID:          uuid.New().String(),
		subscribers: make(map[int]chan State),
		updatedAt:   time.Now(),
	}
	p.Subject = &SubjectField{value: subjectID, notify: p.notify}
	p.Result = &ResultText{text: DefaultResultText, notify: p.notify}
	p.Train = &Button{label: DefaultButtonLabel, notify: p.notify}
	return p
}

// Snapshot は現在のページ状態を返す
func (p *Page) Snapshot() State {
	p.mu.Lock()
	updatedAt := p.updatedAt
	p.mu.Unlock()

	label, disabled := p.Train.State()
	return State{
		ID:             p.ID,
		SubjectID:      p.Subject.Value(),
		Result:         p.Result.Text(),
		ButtonLabel:    label,
		ButtonDisabled: disabled,
		UpdatedAt:      updatedAt,
	}
}

// Subscribe は状態変化の通知チャンネルを登録する
// 返される関数で購読を解除する
func (p *Page) Subscribe() (<-chan State, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSubID
	p.nextSubID++
	ch := make(chan State, 8)
	p.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}

// notify は購読者へ最新状態を配信する
func (p *Page) notify() {
	p.mu.Lock()
	p.updatedAt = time.Now()
	p.mu.Unlock()

	state := p.Snapshot()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subscribers {
		select {
		case ch <- state:
		default:
			// 遅い購読者は古い状態を捨てて最新だけ受け取る
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

// SubjectField は対象ID（ミームID）を保持する隠しフィールド
type SubjectField struct {
	mu     sync.RWMutex
	value  string
	notify func()
}

// Value は現在の値を返す
func (f *SubjectField) Value() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Set は値を書き換える
func (f *SubjectField) Set(value string) {
	f.mu.Lock()
	f.value = value
	f.mu.Unlock()
	f.notify()
}

// ResultText は解析結果を表示するテキスト要素
type ResultText struct {
	mu     sync.RWMutex
	text   string
	notify func()
}

// Text は表示中のテキストを返す
func (r *ResultText) Text() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.text
}

// SetText は表示テキストを書き換える
func (r *ResultText) SetText(text string) {
	r.mu.Lock()
	r.text = text
	r.mu.Unlock()
	r.notify()
}

// Button は学習を開始するボタン要素
type Button struct {
	mu       sync.RWMutex
	label    string
	disabled bool
	notify   func()
}

// State はラベルと無効状態を返す
func (b *Button) State() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.label, b.disabled
}

// Label はボタンのラベルを返す
func (b *Button) Label() string {
	label, _ := b.State()
	return label
}

// Disabled はボタンが無効かどうかを返す
func (b *Button) Disabled() bool {
	_, disabled := b.State()
	return disabled
}

// SetText はラベルを書き換える
func (b *Button) SetText(label string) {
	b.mu.Lock()
	b.label = label
	b.mu.Unlock()
	b.notify()
}

// Disable はボタンを無効にする
// 既に無効だった場合はfalseを返す
func (b *Button) Disable() bool {
	b.mu.Lock()
	if b.disabled {
		b.mu.Unlock()
		return false
	}
	b.disabled = true
	b.mu.Unlock()
	b.notify()
	return true
}

// Enable はボタンを有効に戻す
func (b *Button) Enable() {
	b.mu.Lock()
	b.disabled = false
	b.mu.Unlock()
	b.notify()
}
