package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// PayloadEncoder converts raw image bytes into an opaque payload reference
// the record store can hold: an inline data URI or an object-storage URL.
type PayloadEncoder interface {
	Encode(ctx context.Context, filename string, file io.Reader) (string, error)
}

// InlineEncoder embeds the image directly in the record as a base64 data
// URI. No external object store needed.
type InlineEncoder struct {
	// MaxBytes caps the accepted file size; zero means no cap.
	MaxBytes int64
}

func (e *InlineEncoder) Encode(_ context.Context, filename string, file io.Reader) (string, error) {
	r := file
	if e.MaxBytes > 0 {
		r = io.LimitReader(file, e.MaxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading image file: %w", err)
	}
	if e.MaxBytes > 0 && int64(len(data)) > e.MaxBytes {
		return "", fmt.Errorf("image %q exceeds the %d byte limit", filename, e.MaxBytes)
	}

	return "data:" + mimeForFilename(filename) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func mimeForFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
