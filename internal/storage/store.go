// Package storage wraps the external object-storage provider holding
// incident attachments. Everything is keyed by the opaque public_id.
package storage

import (
	"context"
	"path"
	"strings"
	"time"

	"helpdesk/internal/model"

	"github.com/rs/zerolog/log"
)

// AttachmentStore is the persistence boundary for remote file objects.
type AttachmentStore interface {
	// Upload stores the file content and returns its descriptor.
	Upload(ctx context.Context, filename string, content []byte) (model.Attachment, error)
	// Delete removes the remote object. Deleting an already-gone object
	// succeeds so that reconciliation stays idempotent.
	Delete(ctx context.Context, publicID string) error
}

// Upload limits mirrored from the original intake rules.
const (
	MaxFiles    = 10
	MaxFileSize = 10 << 20 // 10 MB
)

// rawExtensions are stored under the provider's "raw" storage class;
// everything else goes through the default image/video pipeline.
var rawExtensions = map[string]bool{
	"pdf": true, "doc": true, "docx": true, "xls": true,
	"xlsx": true, "txt": true, "zip": true, "rar": true,
}

var allowedExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "mp4": true,
	"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true,
	"txt": true, "zip": true, "rar": true,
}

// Ext returns the lowercase extension of a filename or public_id,
// without the dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// AllowedExtension reports whether a file may be uploaded at all.
func AllowedExtension(name string) bool {
	return allowedExtensions[Ext(name)]
}

// ResourceTypeFor derives the provider storage class from the extension.
// Document extensions must use "raw" — both on upload and on delete, or the
// provider will report the object as missing.
func ResourceTypeFor(name string) string {
	if rawExtensions[Ext(name)] {
		return "raw"
	}
	return "image"
}

// Retry policy for transient store I/O. Validation and business-rule
// failures never pass through here.
const (
	maxAttempts = 3
	callTimeout = 30 * time.Second
)

func retryBackoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * time.Second // 1s, 2s, 4s...
}

// withRetry runs fn with a bounded per-call timeout, retrying transient
// failures with exponential backoff. The parent context aborts the loop.
func withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt < maxAttempts {
			delay := retryBackoff(attempt)
			log.Warn().Str("op", op).Int("attempt", attempt).Dur("retry_in", delay).
				Err(err).Msg("storage: transient failure, retrying")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return err
			}
		}
	}
	return err
}
