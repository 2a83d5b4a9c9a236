package camera

import (
	"context"
	"fmt"
	"log"
	"os/exec"
)

// Acquirer はページ初期化時に一度だけカメラを取得して映像面にバインドする
type Acquirer struct {
	discovery Discovery
	device    string
	settings  Settings
	newStream StreamFactory
	lookPath  func(file string) (string, error)
}

// AcquirerOption はAcquirerの設定を変更する
type AcquirerOption func(*Acquirer)

// WithDiscovery はデバイス検出を差し替える
func WithDiscovery(d Discovery) AcquirerOption {
	return func(a *Acquirer) { a.discovery = d }
}

// WithStreamFactory はストリームの作成方法を差し替える
func WithStreamFactory(f StreamFactory) AcquirerOption {
	return func(a *Acquirer) { a.newStream = f }
}

// WithLookPath は実行ファイルの探索を差し替える
func WithLookPath(f func(file string) (string, error)) AcquirerOption {
	return func(a *Acquirer) { a.lookPath = f }
}

// NewAcquirer は新しいAcquirerを作成する
// deviceが空の場合は検出された最初のデバイスを使う
func NewAcquirer(device string, settings Settings, opts ...AcquirerOption) *Acquirer {
	a := &Acquirer{
		discovery: NewLinuxDiscovery(),
		device:    device,
		settings:  settings,
		lookPath:  exec.LookPath,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire は音声なしの映像ストリームを要求し、映像面にバインドして再生を始める
// 失敗は全て ErrMediaAccess を含むエラーとして返し、再試行はしない
func (a *Acquirer) Acquire(ctx context.Context) (*Video, error) {
	ffmpegPath, err := a.lookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	if err := a.settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: 設定が無効: %v", ErrMediaAccess, err)
	}

	device, err := a.selectDevice(ctx)
	if err != nil {
		return nil, err
	}

	newStream := a.newStream
	if newStream == nil {
		newStream = USBStreamFactory(ffmpegPath)
	}

	stream := newStream(device, a.settings)
	if err := stream.Start(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}

	video := NewVideo()
	video.Bind(stream)
	if err := video.Play(); err != nil {
		_ = stream.Stop(ctx)
		return nil, fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}

	log.Printf("Webカメラを接続しました: %s (%dx%d @%dfps)", device, a.settings.Width, a.settings.Height, a.settings.FPS)
	return video, nil
}

// selectDevice は使用するデバイスを決める
func (a *Acquirer) selectDevice(ctx context.Context) (string, error) {
	if a.device != "" {
		if !a.discovery.IsDeviceAvailable(ctx, a.device) {
			return "", fmt.Errorf("%w: デバイスが利用できません: %s", ErrMediaAccess, a.device)
		}
		return a.device, nil
	}

	devices, err := a.discovery.ScanDevices(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}
	if len(devices) == 0 {
		return "", ErrNoDevice
	}

	if info, err := a.discovery.GetDeviceInfo(ctx, devices[0]); err == nil {
		log.Printf("カメラを検出しました: %s (%s)", info.Name, info.Device)
	}
	return devices[0], nil
}
