// Package frame は映像面の現在フレームを鏡像反転したJPEGのデータURLに変換する
package frame

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
)

// DefaultQuality はブラウザのcanvas.toDataURLと同じJPEG品質
const DefaultQuality = 92

const dataURLPrefix = "data:image/jpeg;base64,"

// Snapshot はJPEG画像をBase64で埋め込んだデータURL
type Snapshot string

// JPEG はデータURLからJPEGバイト列を取り出す
func (s Snapshot) JPEG() ([]byte, error) {
	str := string(s)
	if !strings.HasPrefix(str, dataURLPrefix) {
		return nil, fmt.Errorf("JPEGのデータURLではありません")
	}

	data, err := base64.StdEncoding.DecodeString(str[len(dataURLPrefix):])
	if err != nil {
		return nil, fmt.Errorf("Base64のデコードに失敗: %w", err)
	}
	return data, nil
}

// Decode はスナップショットを画像に戻す
func (s Snapshot) Decode() (image.Image, error) {
	data, err := s.JPEG()
	if err != nil {
		return nil, err
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("JPEG画像のデコードに失敗: %w", err)
	}
	return img, nil
}

// Encoder はフレームをスナップショットに変換する
type Encoder struct {
	quality int
}

// NewEncoder は新しいEncoderを作成する
func NewEncoder(quality int) *Encoder {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Encoder{quality: quality}
}

// Encode は画像を左右反転してJPEGのデータURLにする
func (e *Encoder) Encode(src image.Image) (Snapshot, error) {
	if src == nil {
		return "", fmt.Errorf("フレームがありません")
	}
	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return "", fmt.Errorf("フレームのサイズが不正です: %dx%d", bounds.Dx(), bounds.Dy())
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Mirror(src), &jpeg.Options{Quality: e.quality}); err != nil {
		return "", fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}

	return Snapshot(dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// Mirror は元画像と同じ幅・高さのラスタを確保し、水平方向に反転してコピーする
func Mirror(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(w-1-x, y, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}

	return dst
}
