package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/hairai_backend/config"
)

func TestImageKey(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		ext         string
	}{
		{"jpg", "scalp.jpg", "image/jpeg", ".jpg"},
		{"jpeg upper", "SCALP.JPEG", "image/jpeg", ".jpeg"},
		{"png", "crown/left.png", "image/png", ".png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ct, err := ImageKey(tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, ct)
			require.True(t, strings.HasPrefix(key, ImagePrefix))
			require.True(t, strings.HasSuffix(key, tt.ext))

			id := strings.TrimSuffix(strings.TrimPrefix(key, ImagePrefix), tt.ext)
			_, err = uuid.Parse(id)
			assert.NoError(t, err)
			assert.NotContains(t, key, "..")
		})
	}
}

func TestImageKeyRejectsOtherTypes(t *testing.T) {
	for _, name := range []string{"scan.gif", "notes.txt", "noext", "x.jpg.exe"} {
		_, _, err := ImageKey(name)
		assert.ErrorIs(t, err, ErrUnsupportedImage, name)
	}
}

func TestPresignTTL(t *testing.T) {
	assert.Equal(t, 5*time.Minute, presignTTL(0))
	assert.Equal(t, 90*time.Second, presignTTL(90))
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "gcs"})
	assert.ErrorContains(t, err, "unknown driver")
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), config.S3Config{})
	assert.ErrorContains(t, err, "bucket name is required")
}
