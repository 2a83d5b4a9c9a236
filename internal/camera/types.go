package camera

import (
	"context"
	"errors"
	"fmt"
)

// ErrMediaAccess はカメラにアクセスできないことを表す
// 権限不足・デバイスなし・環境非対応のいずれもこれに含まれる
var ErrMediaAccess = errors.New("カメラにアクセスできません")

var (
	// ErrUnsupported はキャプチャ環境（ffmpeg）がないことを表す
	ErrUnsupported = fmt.Errorf("%w: キャプチャ環境が対応していません", ErrMediaAccess)
	// ErrNoDevice は利用可能なカメラデバイスがないことを表す
	ErrNoDevice = fmt.Errorf("%w: カメラデバイスが見つかりません", ErrMediaAccess)
)

// Status はストリームの動作状態を表す
type Status string

const (
	StatusInactive Status = "inactive" // 停止中
	StatusActive   Status = "active"   // 動作中
	StatusEnded    Status = "ended"    // ストリーム終了
	StatusError    Status = "error"    // エラーが発生
)

// Settings はキャプチャの設定を表す
type Settings struct {
	FPS    int // フレームレート
	Width  int // 画像幅
	Height int // 画像高さ
}

// Validate は設定値の妥当性を検証する
func (s Settings) Validate() error {
	if s.FPS <= 0 || s.FPS > 60 {
		return fmt.Errorf("無効なFPS値: %d", s.FPS)
	}

	if s.Width <= 0 || s.Width > 4096 {
		return fmt.Errorf("無効な幅: %d", s.Width)
	}

	if s.Height <= 0 || s.Height > 4096 {
		return fmt.Errorf("無効な高さ: %d", s.Height)
	}

	return nil
}

// DeviceInfo はカメラデバイスの情報を表す
type DeviceInfo struct {
	Device string // デバイスパス
	Name   string // デバイス名
	Driver string // ドライバー名
}

// Discovery はカメラデバイスの検出機能を提供する
type Discovery interface {
	// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
	ScanDevices(ctx context.Context) ([]string, error)

	// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, device string) bool

	// GetDeviceInfo はデバイスの詳細情報を取得する
	GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error)
}

// Stream はカメラから取得した映像ストリーム
type Stream interface {
	// ID はストリームの識別子を返す
	ID() string

	// Start はストリーミングを開始する
	Start(ctx context.Context) error

	// Stop はストリーミングを停止する
	Stop(ctx context.Context) error

	// LatestFrame は最新のJPEGフレームのコピーを返す
	LatestFrame() ([]byte, error)

	// Done はストリームが終了すると閉じられる
	Done() <-chan struct{}

	// Status は現在の状態を返す
	Status() Status
}

// StreamFactory はデバイスからストリームを作成する
type StreamFactory func(device string, settings Settings) Stream
