// Package photo stores visitor photos. The rest of the system only ever
// sees the relative reference returned by Save.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

var (
	ErrInvalidImage = errors.New("photo must be a JPEG, PNG or WebP image")
	ErrTooLarge     = errors.New("photo exceeds the upload size limit")
)

// Upload is a photo received from a client, fully buffered.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Store persists photos and resolves their public URLs.
type Store interface {
	// Save validates and stores u, returning a relative reference.
	Save(ctx context.Context, u Upload) (string, error)
	// Delete removes a previously saved photo. Missing objects are not an error.
	Delete(ctx context.Context, ref string) error
	// URL returns the public URL for ref, or "" when ref is empty.
	URL(ref string) string
}

// Validate checks that u decodes as a supported image no larger than
// maxBytes (0 disables the size check) and returns the file extension to
// store it under.
func Validate(u Upload, maxBytes int64) (string, error) {
	if len(u.Data) == 0 {
		return "", ErrInvalidImage
	}
	if maxBytes > 0 && int64(len(u.Data)) > maxBytes {
		return "", ErrTooLarge
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(u.Data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	switch format {
	case "jpeg":
		return ".jpg", nil
	case "png":
		return ".png", nil
	case "webp":
		return ".webp", nil
	default:
		return "", ErrInvalidImage
	}
}

func contentType(ext string) string {
	switch ext {
	case ".jpg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}

func joinURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}
