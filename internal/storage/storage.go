// Package storage abstracts the object store that holds user avatars.
package storage

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/utafrali/ContactsGo/pkg/breaker"
)

// Storage defines the interface for file storage operations.
type Storage interface {
	// Upload stores a file under input.Key, replacing any previous object,
	// and returns its public URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.ReadSeeker
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

// Guarded wraps a Storage with a per-call timeout and a circuit breaker.
type Guarded struct {
	inner   Storage
	timeout time.Duration
	cb      *breaker.Breaker[*UploadResult]
}

// NewGuarded guards inner. A zero timeout disables the per-call deadline.
func NewGuarded(inner Storage, timeout time.Duration, logger *slog.Logger) *Guarded {
	return &Guarded{
		inner:   inner,
		timeout: timeout,
		cb:      breaker.New[*UploadResult](breaker.DefaultConfig("object-store"), logger),
	}
}

// Upload runs the inner upload through the breaker under the per-call timeout.
func (g *Guarded) Upload(ctx context.Context, input *UploadInput) (*UploadResult, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.cb.Execute(ctx, func(ctx context.Context) (*UploadResult, error) {
		return g.inner.Upload(ctx, input)
	})
}
