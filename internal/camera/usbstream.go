package camera

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// USBStream はUSBカメラの Stream 実装
type USBStream struct {
	id       string
	device   string
	settings Settings
	capturer *V4L2Capturer

	mu     sync.RWMutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	// 最新フレーム保持用
	latestFrame []byte
	latestMutex sync.RWMutex
}

// NewUSBStream は新しいUSBStreamを作成する
func NewUSBStream(ffmpegPath, device string, settings Settings) *USBStream {
	return &USBStream{
		id:       uuid.New().String(),
		device:   device,
		settings: settings,
		capturer: NewV4L2Capturer(ffmpegPath, device, settings),
		status:   StatusInactive,
		done:     make(chan struct{}),
	}
}

// USBStreamFactory はffmpegのパスを固定したStreamFactoryを返す
func USBStreamFactory(ffmpegPath string) StreamFactory {
	return func(device string, settings Settings) Stream {
		return NewUSBStream(ffmpegPath, device, settings)
	}
}

// ID はストリームの識別子を返す
func (s *USBStream) ID() string {
	return s.id
}

// Start はテストキャプチャの後にストリーミングを開始する
func (s *USBStream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusActive {
		return nil // 既に開始済み
	}
	if s.status == StatusEnded || s.status == StatusError {
		return fmt.Errorf("終了したストリームは再開できません: %s", s.device)
	}

	first, err := s.capturer.TestCapture(ctx)
	if err != nil {
		s.status = StatusError
		return fmt.Errorf("カメラのテストキャプチャに失敗: %w", err)
	}

	// 再生直後から映像面がフレームを返せるようにする
	s.latestMutex.Lock()
	s.latestFrame = first
	s.latestMutex.Unlock()

	// ストリームの寿命は呼び出し元のリクエストではなくStopで決まる
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	frameChan := make(chan []byte, 10)
	errorChan := make(chan error, 1)

	if err := s.capturer.StartStream(streamCtx, frameChan, errorChan); err != nil {
		cancel()
		s.status = StatusError
		return err
	}

	s.cancel = cancel
	s.status = StatusActive

	s.wg.Add(1)
	go s.receiveFrames(frameChan, errorChan)

	return nil
}

// Stop はストリーミングを停止する
func (s *USBStream) Stop(_ context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil // 既に停止済み
	}

	cancel()
	s.wg.Wait()
	return nil
}

// receiveFrames はキャプチャからのフレームを最新フレームとして保持する
func (s *USBStream) receiveFrames(frameChan <-chan []byte, errorChan <-chan error) {
	defer s.wg.Done()

	for frame := range frameChan {
		s.latestMutex.Lock()
		s.latestFrame = frame
		s.latestMutex.Unlock()
	}

	// フレームチャンネルが閉じられた = ストリーム終了
	s.mu.Lock()
	select {
	case err := <-errorChan:
		log.Printf("カメラストリームがエラーで終了しました (%s): %v", s.device, err)
		s.status = StatusError
	default:
		s.status = StatusEnded
	}
	s.mu.Unlock()

	close(s.done)
}

// LatestFrame は最新フレームのコピーを返す
func (s *USBStream) LatestFrame() ([]byte, error) {
	s.latestMutex.RLock()
	defer s.latestMutex.RUnlock()

	if s.latestFrame == nil {
		return nil, fmt.Errorf("フレームがまだ取得されていません")
	}

	frame := make([]byte, len(s.latestFrame))
	copy(frame, s.latestFrame)
	return frame, nil
}

// Done はストリーム終了時に閉じられるチャンネルを返す
func (s *USBStream) Done() <-chan struct{} {
	return s.done
}

// Status は現在の状態を返す
func (s *USBStream) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
