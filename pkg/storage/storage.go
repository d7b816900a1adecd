// Package storage holds uploaded analysis images in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/hairai_backend/config"
)

// ImagePrefix is the key prefix for every uploaded analysis image.
const ImagePrefix = "uploads/analysis_images/"

const defaultPresignTTL = 5 * time.Minute

var ErrUnsupportedImage = errors.New("storage: unsupported image type")

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Driver; an empty driver means s3.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "s3":
		return NewS3(ctx, cfg.S3)
	case "minio":
		return NewMinIO(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// ImageKey returns a fresh object key for an upload named filename along with
// its content type.
func ImageKey(filename string) (key, contentType string, err error) {
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := imageTypes[ext]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
	}
	return ImagePrefix + uuid.NewString() + ext, contentType, nil
}

func presignTTL(sec int) time.Duration {
	if sec <= 0 {
		return defaultPresignTTL
	}
	return time.Duration(sec) * time.Second
}
