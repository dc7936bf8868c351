// agora/utils/images.go
package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

var allowedImageTypes = map[string]bool{
	"image/jpeg": true, "image/png": true, "image/gif": true, "image/webp": true,
}

// AvatarLimits bounds what ProcessAvatar accepts and produces.
type AvatarLimits struct {
	MaxBytes  int
	MaxWidth  int
	MaxHeight int
	Size      int
}

// ProcessAvatar validates an uploaded image by its magic bytes and returns a
// square PNG thumbnail of it.
func ProcessAvatar(data []byte, limits AvatarLimits) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	if limits.MaxBytes > 0 && len(data) > limits.MaxBytes {
		return nil, fmt.Errorf("file is larger than the %dMB limit", limits.MaxBytes/1024/1024)
	}

	contentType := http.DetectContentType(data)
	if !allowedImageTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid image, could not decode config: %w", err)
	}
	if cfg.Width > limits.MaxWidth || cfg.Height > limits.MaxHeight {
		return nil, fmt.Errorf("image dimensions (%dx%d) exceed maximum (%dx%d)", cfg.Width, cfg.Height, limits.MaxWidth, limits.MaxHeight)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	thumb := imaging.Fill(img, limits.Size, limits.Size, imaging.Center, imaging.Lanczos)

	var out bytes.Buffer
	if err := imaging.Encode(&out, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	return out.Bytes(), nil
}
