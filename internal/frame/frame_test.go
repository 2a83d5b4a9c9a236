package frame

import (
	"image"
	"image/color"
	"strings"
	"testing"
)

// testPattern は左半分が赤、右半分が青、上端の帯だけ緑の画像を作る
func testPattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case y < 8:
				img.Set(x, y, color.RGBA{0, 255, 0, 255})
			case x < w/2:
				img.Set(x, y, color.RGBA{255, 0, 0, 255})
			default:
				img.Set(x, y, color.RGBA{0, 0, 255, 255})
			}
		}
	}
	return img
}

func TestMirror_SwapsLeftAndRight(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.Set(x, y, color.RGBA{uint8(x * 10), uint8(y * 10), 0, 255})
		}
	}

	dst := Mirror(src)

	if dst.Bounds().Dx() != 3 || dst.Bounds().Dy() != 2 {
		t.Fatalf("Expected 3x2, got %dx%d", dst.Bounds().Dx(), dst.Bounds().Dy())
	}

	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			want := src.RGBAAt(2-x, y)
			if got := dst.RGBAAt(x, y); got != want {
				t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestMirror_NonZeroOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 7, 6))
	src.Set(5, 5, color.RGBA{255, 0, 0, 255})
	src.Set(6, 5, color.RGBA{0, 0, 255, 255})

	dst := Mirror(src)

	if got := dst.RGBAAt(0, 0); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("Expected blue at left edge, got %v", got)
	}
	if got := dst.RGBAAt(1, 0); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("Expected red at right edge, got %v", got)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	encoder := NewEncoder(DefaultQuality)
	src := testPattern(64, 48)

	snapshot, err := encoder.Encode(src)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if !strings.HasPrefix(string(snapshot), "data:image/jpeg;base64,") {
		t.Fatalf("Unexpected snapshot prefix: %.30s", snapshot)
	}

	decoded, err := snapshot.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// 出力サイズは元画像と一致する
	if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
		t.Fatalf("Expected 64x48, got %dx%d", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}

	// 左右は入れ替わり、上下はそのまま（JPEGは非可逆なので代表点の色の優勢だけを見る）
	r, _, b, _ := decoded.At(8, 24).RGBA()
	if b <= r {
		t.Errorf("Expected left side to be blue after mirroring, got r=%d b=%d", r, b)
	}
	r, _, b, _ = decoded.At(56, 24).RGBA()
	if r <= b {
		t.Errorf("Expected right side to be red after mirroring, got r=%d b=%d", r, b)
	}
	r, g, b, _ := decoded.At(20, 3).RGBA()
	if g <= r || g <= b {
		t.Errorf("Expected top band to stay green, got r=%d g=%d b=%d", r, g, b)
	}
}

func TestEncode_InvalidInput(t *testing.T) {
	encoder := NewEncoder(0)

	if _, err := encoder.Encode(nil); err == nil {
		t.Error("Expected error for nil frame")
	}

	if _, err := encoder.Encode(image.NewRGBA(image.Rect(0, 0, 0, 10))); err == nil {
		t.Error("Expected error for empty frame")
	}
}

func TestSnapshot_JPEGRejectsOtherData(t *testing.T) {
	if _, err := Snapshot("data:image/png;base64,AAAA").JPEG(); err == nil {
		t.Error("Expected error for non-JPEG data URL")
	}
	if _, err := Snapshot("data:image/jpeg;base64,!!!").JPEG(); err == nil {
		t.Error("Expected error for broken base64")
	}
}
