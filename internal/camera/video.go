package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
)

// Video はストリームを表示する映像面
// ストリームのバインドと解放はAcquirerだけが行い、ポーリングループは読み取りのみ行う
type Video struct {
	mu     sync.RWMutex
	stream Stream
	paused bool
}

// NewVideo はストリーム未バインドの映像面を作成する
func NewVideo() *Video {
	return &Video{paused: true}
}

// Bind はストリームを映像面にバインドする（再生は始めない）
func (v *Video) Bind(stream Stream) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stream = stream
	v.paused = true
}

// Play は再生を開始する
func (v *Video) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.stream == nil {
		return fmt.Errorf("ストリームがバインドされていません")
	}
	v.paused = false
	return nil
}

// Pause は再生を一時停止する
func (v *Video) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = true
}

// Paused は一時停止中かどうかを返す
func (v *Video) Paused() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.paused
}

// Bound はストリームがバインドされているかを返す
func (v *Video) Bound() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.stream != nil
}

// Ended はバインドされたストリームが終了したかを返す
func (v *Video) Ended() bool {
	v.mu.RLock()
	stream := v.stream
	v.mu.RUnlock()

	if stream == nil {
		return false
	}
	select {
	case <-stream.Done():
		return true
	default:
		return false
	}
}

// Ready はフレームを読み出せる状態か（バインド済み・再生中・未終了）を返す
func (v *Video) Ready() bool {
	v.mu.RLock()
	bound, paused := v.stream != nil, v.paused
	v.mu.RUnlock()

	return bound && !paused && !v.Ended()
}

// Status は映像面の状態を返す
func (v *Video) Status() Status {
	v.mu.RLock()
	stream := v.stream
	v.mu.RUnlock()

	if stream == nil {
		return StatusInactive
	}
	return stream.Status()
}

// CurrentFrame は現在のフレームを画像として返す
func (v *Video) CurrentFrame() (image.Image, error) {
	v.mu.RLock()
	stream := v.stream
	v.mu.RUnlock()

	if stream == nil {
		return nil, fmt.Errorf("ストリームがバインドされていません")
	}

	data, err := stream.LatestFrame()
	if err != nil {
		return nil, err
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("JPEG画像のデコードに失敗: %w", err)
	}
	return img, nil
}

// Dimensions は現在のフレームの幅と高さを返す
func (v *Video) Dimensions() (int, int, error) {
	v.mu.RLock()
	stream := v.stream
	v.mu.RUnlock()

	if stream == nil {
		return 0, 0, fmt.Errorf("ストリームがバインドされていません")
	}

	data, err := stream.LatestFrame()
	if err != nil {
		return 0, 0, err
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("JPEGヘッダーの読み込みに失敗: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Release はストリームを停止して映像面から外す（ページを閉じたときの動作）
func (v *Video) Release(ctx context.Context) error {
	v.mu.Lock()
	stream := v.stream
	v.stream = nil
	v.paused = true
	v.mu.Unlock()

	if stream == nil {
		return nil
	}
	return stream.Stop(ctx)
}
