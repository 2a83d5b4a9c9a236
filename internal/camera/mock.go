package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/google/uuid"
)

// MockDiscovery はテスト用のモックDiscovery実装
type MockDiscovery struct {
	mu      sync.RWMutex
	devices []string
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(devices []string) *MockDiscovery {
	return &MockDiscovery{devices: append([]string(nil), devices...)}
}

// ScanDevices はモックデバイス一覧を返す
func (m *MockDiscovery) ScanDevices(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.devices...), nil
}

// IsDeviceAvailable はモックデバイスが利用可能かチェックする
func (m *MockDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.devices {
		if d == device {
			return true
		}
	}
	return false
}

// GetDeviceInfo はモックデバイス情報を取得する
func (m *MockDiscovery) GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error) {
	if !m.IsDeviceAvailable(ctx, device) {
		return nil, fmt.Errorf("デバイスが見つかりません: %s", device)
	}
	return &DeviceInfo{Device: device, Name: "テストカメラ", Driver: "mock"}, nil
}

// RemoveDevice はテスト用にデバイスを削除する
func (m *MockDiscovery) RemoveDevice(device string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.devices {
		if d == device {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			return
		}
	}
}

// MockStream は固定画像を返すテスト用のStream実装
type MockStream struct {
	id    string
	frame []byte

	mu        sync.Mutex
	status    Status
	done      chan struct{}
	endOnce   sync.Once
	startErr  error
	startedAt int
}

// NewMockStream は画像をJPEGにして保持するMockStreamを作成する
func NewMockStream(img image.Image) *MockStream {
	var buf bytes.Buffer
	if img != nil {
		_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95})
	}
	return &MockStream{
		id:     uuid.New().String(),
		frame:  buf.Bytes(),
		status: StatusInactive,
		done:   make(chan struct{}),
	}
}

// SetStartError はテスト用にStart失敗を設定する
func (m *MockStream) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// ID はストリームの識別子を返す
func (m *MockStream) ID() string {
	return m.id
}

// Start はモックストリームを開始する
func (m *MockStream) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startedAt++
	if m.startErr != nil {
		m.status = StatusError
		return m.startErr
	}
	m.status = StatusActive
	return nil
}

// Stop はモックストリームを停止する
func (m *MockStream) Stop(_ context.Context) error {
	m.End()
	return nil
}

// End はストリームの終了を模擬する
func (m *MockStream) End() {
	m.endOnce.Do(func() {
		m.mu.Lock()
		m.status = StatusEnded
		m.mu.Unlock()
		close(m.done)
	})
}

// StartCount はStartが呼ばれた回数を返す
func (m *MockStream) StartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startedAt
}

// LatestFrame は保持しているJPEGのコピーを返す
func (m *MockStream) LatestFrame() ([]byte, error) {
	if len(m.frame) == 0 {
		return nil, fmt.Errorf("フレームがまだ取得されていません")
	}
	return append([]byte(nil), m.frame...), nil
}

// Done はストリーム終了時に閉じられるチャンネルを返す
func (m *MockStream) Done() <-chan struct{} {
	return m.done
}

// Status は現在の状態を返す
func (m *MockStream) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}
