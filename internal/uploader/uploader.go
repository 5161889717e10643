package uploader

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by the noop uploader when no object store is
// configured.
var ErrNotConfigured = errors.New("video store not configured")

// Uploader pushes a recorded proof video to durable storage and returns the
// server video reference the MES understands.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Noop is the uploader used when no object store is configured. Uploads fail
// fast, which keeps the group pending for a manual retry once storage is up.
type Noop struct{}

func (Noop) Upload(_ context.Context, _ string) (string, error) {
	return "", ErrNotConfigured
}
