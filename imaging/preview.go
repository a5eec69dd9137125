package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/gift"
)

const (
	MaxImageWidth  = 4000
	MaxImageHeight = 4000
	PreviewWidth   = 320
	JPEGQuality    = 80
)

// Preview decodes an uploaded image and produces a downscaled JPEG data URI
// for the labeling feed. Images wider than PreviewWidth are resized with
// Lanczos resampling; smaller ones are re-encoded as-is.
func Preview(data []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() > MaxImageWidth || bounds.Dy() > MaxImageHeight {
		return "", fmt.Errorf("image dimensions %dx%d exceed the %dx%d limit",
			bounds.Dx(), bounds.Dy(), MaxImageWidth, MaxImageHeight)
	}

	g := gift.New()
	if bounds.Dx() > PreviewWidth {
		g.Add(gift.Resize(PreviewWidth, 0, gift.LanczosResampling))
	}

	dst := image.NewRGBA(g.Bounds(bounds))
	g.Draw(dst, src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return "", fmt.Errorf("encoding preview: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
