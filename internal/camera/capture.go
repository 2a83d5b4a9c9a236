package camera

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"
)

var (
	jpegStart = []byte{0xFF, 0xD8}
	jpegEnd   = []byte{0xFF, 0xD9}
)

// V4L2Capturer はffmpegを使ってV4L2デバイスから映像を取得する
type V4L2Capturer struct {
	ffmpegPath string
	devicePath string
	settings   Settings
}

// NewV4L2Capturer は新しいV4L2Capturerを作成する
func NewV4L2Capturer(ffmpegPath, devicePath string, settings Settings) *V4L2Capturer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &V4L2Capturer{
		ffmpegPath: ffmpegPath,
		devicePath: devicePath,
		settings:   settings,
	}
}

// inputArgs は音声なしのV4L2入力引数を返す
func (c *V4L2Capturer) inputArgs() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", c.settings.Width, c.settings.Height),
		"-i", c.devicePath,
		"-an",
	}
}

// CaptureFrameAsJPEG は1フレームをキャプチャしてJPEGバイト配列として返す
func (c *V4L2Capturer) CaptureFrameAsJPEG(ctx context.Context) ([]byte, error) {
	args := append(c.inputArgs(), "-vframes", "1", "-f", "image2", "-c:v", "mjpeg", "-")
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("フレームキャプチャに失敗: %w (stderr: %s)", err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// TestCapture はデバイスにアクセスできるかを1フレームの取得で確認する
// 取得したフレームを返す
func (c *V4L2Capturer) TestCapture(ctx context.Context) ([]byte, error) {
	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	frame, err := c.CaptureFrameAsJPEG(testCtx)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(frame, jpegStart) {
		return nil, fmt.Errorf("JPEGフレームが得られませんでした")
	}
	return frame, nil
}

// StartStream は連続キャプチャを開始する
// 読み取りが終わるとframeChanを閉じる
func (c *V4L2Capturer) StartStream(ctx context.Context, frameChan chan<- []byte, errorChan chan<- error) error {
	args := append(c.inputArgs(),
		"-r", strconv.Itoa(c.settings.FPS),
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-",
	)
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
	}
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpegの起動に失敗: %w", err)
	}

	go func() {
		defer close(frameChan)
		defer func() {
			_ = cmd.Wait() // コンテキストキャンセル時のエラーは無視
		}()

		if err := readFrames(ctx, stdout, frameChan); err != nil {
			select {
			case errorChan <- err:
			default:
			}
		}
	}()

	return nil
}

// readFrames はMJPEGの連続データをフレームに分割して送る
func readFrames(ctx context.Context, r io.Reader, frameChan chan<- []byte) error {
	reader := bufio.NewReaderSize(r, 1024*1024)
	buf := make([]byte, 64*1024)
	var pending []byte

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			var frames [][]byte
			frames, pending = splitFrames(append(pending, buf[:n]...))
			for _, frame := range frames {
				select {
				case frameChan <- frame:
				case <-ctx.Done():
					return nil
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("フレーム読み取りエラー: %w", err)
		}
	}
}

// splitFrames はバッファから完全なJPEGフレームを取り出し、残りを返す
func splitFrames(data []byte) ([][]byte, []byte) {
	var frames [][]byte

	for {
		startIdx := bytes.Index(data, jpegStart)
		if startIdx == -1 {
			// 開始マーカーの片割れだけを残す
			if len(data) > 0 && data[len(data)-1] == 0xFF {
				return frames, []byte{0xFF}
			}
			return frames, nil
		}

		endIdx := bytes.Index(data[startIdx+2:], jpegEnd)
		if endIdx == -1 {
			rest := make([]byte, len(data)-startIdx)
			copy(rest, data[startIdx:])
			return frames, rest
		}

		endIdx += startIdx + 2 + len(jpegEnd)
		frame := make([]byte, endIdx-startIdx)
		copy(frame, data[startIdx:endIdx])
		frames = append(frames, frame)

		data = data[endIdx:]
	}
}
