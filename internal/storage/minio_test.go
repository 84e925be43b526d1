package storage

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"diaryapi/internal/config"
)

func TestNewMinIO_RequiresConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinIOConfig
		msg  string
	}{
		{name: "endpoint", cfg: config.MinIOConfig{}, msg: "endpoint is required"},
		{name: "credentials", cfg: config.MinIOConfig{Endpoint: "localhost:9000"}, msg: "credentials are required"},
		{name: "bucket", cfg: config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, msg: "bucket is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinIO(tt.cfg)
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestMinIO_ObjectName(t *testing.T) {
	assert.Equal(t, "", normalizePrefix(""))
	assert.Equal(t, "", normalizePrefix("/"))
	assert.Equal(t, "uploads/", normalizePrefix("/uploads/"))

	m := &minioStorage{prefix: normalizePrefix("uploads")}
	name, err := m.objectName("1-2.png")
	assert.NoError(t, err)
	assert.Equal(t, "uploads/1-2.png", name)

	_, err = m.objectName("../escape.png")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestTranslateMinIOError(t *testing.T) {
	assert.NoError(t, translateMinIOError(nil))
	assert.ErrorIs(t, translateMinIOError(minio.ErrorResponse{Code: "NoSuchKey"}), ErrObjectNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, translateMinIOError(other))
}
