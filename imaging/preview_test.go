package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodePreview(t *testing.T, ref string) image.Image {
	t.Helper()

	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(ref, prefix) {
		t.Fatalf("preview ref = %q, want %q prefix", ref[:min(len(ref), 40)], prefix)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ref, prefix))
	if err != nil {
		t.Fatalf("preview is not valid base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("preview is not valid JPEG: %v", err)
	}
	return img
}

func TestPreviewDownscalesWideImages(t *testing.T) {
	ref, err := Preview(encodePNG(t, 1280, 960))
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}

	img := decodePreview(t, ref)
	if got := img.Bounds().Dx(); got != PreviewWidth {
		t.Fatalf("preview width = %d, want %d", got, PreviewWidth)
	}
	// Aspect ratio preserved: 1280x960 -> 320x240.
	if got := img.Bounds().Dy(); got != 240 {
		t.Fatalf("preview height = %d, want 240", got)
	}
}

func TestPreviewKeepsSmallImages(t *testing.T) {
	ref, err := Preview(encodePNG(t, 100, 80))
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}

	img := decodePreview(t, ref)
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 80 {
		t.Fatalf("preview bounds = %v, want original 100x80", img.Bounds())
	}
}

func TestPreviewRejectsGarbage(t *testing.T) {
	if _, err := Preview([]byte("not an image")); err == nil {
		t.Fatal("Preview accepted undecodable bytes")
	}
}
