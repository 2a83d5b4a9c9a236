package camera

import (
	"bytes"
	"context"
	"testing"
)

func TestSplitFrames(t *testing.T) {
	frameA := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	frameB := []byte{0xFF, 0xD8, 0x03, 0xFF, 0xD9}

	testCases := []struct {
		name           string
		data           []byte
		expectedFrames int
		expectedRest   []byte
	}{
		{"完全な1フレーム", frameA, 1, nil},
		{"連続した2フレーム", append(append([]byte{}, frameA...), frameB...), 2, nil},
		{"先頭のゴミを捨てる", append([]byte{0x00, 0x11}, frameA...), 1, nil},
		{"途中で切れたフレーム", append(append([]byte{}, frameA...), 0xFF, 0xD8, 0x05), 1, []byte{0xFF, 0xD8, 0x05}},
		{"開始マーカーの片割れ", []byte{0x00, 0xFF}, 0, []byte{0xFF}},
		{"マーカーなし", []byte{0x00, 0x01}, 0, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			frames, rest := splitFrames(tc.data)
			if len(frames) != tc.expectedFrames {
				t.Fatalf("Expected %d frames, got %d", tc.expectedFrames, len(frames))
			}
			if !bytes.Equal(rest, tc.expectedRest) {
				t.Errorf("Expected rest %v, got %v", tc.expectedRest, rest)
			}
			if len(frames) > 0 && !bytes.Equal(frames[0], frameA) {
				t.Errorf("Unexpected first frame: %v", frames[0])
			}
		})
	}
}

func TestReadFrames_ChunkedInput(t *testing.T) {
	stream := []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9, 0xFF, 0xD8, 0x02, 0xFF, 0xD9}
	frameChan := make(chan []byte, 4)

	if err := readFrames(context.Background(), bytes.NewReader(stream), frameChan); err != nil {
		t.Fatalf("readFrames failed: %v", err)
	}
	close(frameChan)

	var count int
	for range frameChan {
		count++
	}
	if count != 2 {
		t.Errorf("Expected 2 frames, got %d", count)
	}
}

func TestV4L2Capturer_InputArgsAreAudioFree(t *testing.T) {
	c := NewV4L2Capturer("", "/dev/video0", Settings{FPS: 15, Width: 640, Height: 480})

	args := c.inputArgs()
	var hasNoAudio, hasSize bool
	for i, arg := range args {
		if arg == "-an" {
			hasNoAudio = true
		}
		if arg == "-video_size" && i+1 < len(args) && args[i+1] == "640x480" {
			hasSize = true
		}
	}
	if !hasNoAudio {
		t.Error("Expected -an in ffmpeg arguments")
	}
	if !hasSize {
		t.Error("Expected -video_size 640x480 in ffmpeg arguments")
	}
	if c.ffmpegPath != "ffmpeg" {
		t.Errorf("Expected default ffmpeg path, got %q", c.ffmpegPath)
	}
}
