// agora/utils/images_test.go
package utils

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestProcessAvatar(t *testing.T) {
	limits := AvatarLimits{MaxBytes: 1 << 20, MaxWidth: 500, MaxHeight: 500, Size: 64}

	out, err := ProcessAvatar(encodeTestPNG(t, 200, 100), limits)
	if err != nil {
		t.Fatalf("ProcessAvatar failed: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Output is not a valid image: %v", err)
	}
	if format != "png" || cfg.Width != 64 || cfg.Height != 64 {
		t.Errorf("Expected a 64x64 png, got %s %dx%d", format, cfg.Width, cfg.Height)
	}

	if _, err := ProcessAvatar([]byte("definitely not an image"), limits); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("Expected ErrUnsupportedImage, got %v", err)
	}
	if _, err := ProcessAvatar(encodeTestPNG(t, 600, 10), limits); err == nil {
		t.Error("Expected oversized dimensions to be rejected")
	}
	if _, err := ProcessAvatar(nil, limits); err == nil {
		t.Error("Expected empty data to be rejected")
	}
}
