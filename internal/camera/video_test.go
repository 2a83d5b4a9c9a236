package camera

import (
	"context"
	"image"
	"image/color"
	"testing"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func TestVideo_ReadyStates(t *testing.T) {
	video := NewVideo()

	// ストリームなし
	if video.Ready() {
		t.Error("Expected unbound video to be not ready")
	}
	if err := video.Play(); err == nil {
		t.Error("Expected Play without stream to fail")
	}

	stream := NewMockStream(testImage(32, 24))
	video.Bind(stream)

	// バインド直後は一時停止中
	if video.Ready() {
		t.Error("Expected bound but paused video to be not ready")
	}

	if err := video.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !video.Ready() {
		t.Error("Expected playing video to be ready")
	}

	video.Pause()
	if video.Ready() || !video.Paused() {
		t.Error("Expected paused video to be not ready")
	}

	_ = video.Play()
	stream.End()
	if !video.Ended() {
		t.Error("Expected video to report ended")
	}
	if video.Ready() {
		t.Error("Expected ended video to be not ready")
	}
}

func TestVideo_CurrentFrame(t *testing.T) {
	video := NewVideo()
	video.Bind(NewMockStream(testImage(40, 30)))
	_ = video.Play()

	img, err := video.CurrentFrame()
	if err != nil {
		t.Fatalf("CurrentFrame failed: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("Expected 40x30, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}

	w, h, err := video.Dimensions()
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 40 || h != 30 {
		t.Errorf("Expected dimensions 40x30, got %dx%d", w, h)
	}
}

func TestVideo_NoFrameYet(t *testing.T) {
	video := NewVideo()
	video.Bind(NewMockStream(nil))
	_ = video.Play()

	if _, err := video.CurrentFrame(); err == nil {
		t.Error("Expected error when no frame has been captured")
	}
}

func TestVideo_Release(t *testing.T) {
	ctx := context.Background()
	stream := NewMockStream(testImage(8, 8))
	video := NewVideo()
	video.Bind(stream)
	_ = video.Play()

	if err := video.Release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if video.Bound() || video.Ready() {
		t.Error("Expected released video to be unbound")
	}
	if stream.Status() != StatusEnded {
		t.Errorf("Expected stream to be stopped, got %s", stream.Status())
	}
	if video.Status() != StatusInactive {
		t.Errorf("Expected inactive status, got %s", video.Status())
	}

	// 二度目の解放は何もしない
	if err := video.Release(ctx); err != nil {
		t.Fatalf("second Release failed: %v", err)
	}
}
