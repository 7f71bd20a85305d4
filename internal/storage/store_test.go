package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExt(t *testing.T) {
	assert.Equal(t, "pdf", Ext("informe.PDF"))
	assert.Equal(t, "jpg", Ext("helpdesk-uploads/foto.jpg"))
	assert.Equal(t, "docx", Ext("acta.final.docx"))
	assert.Equal(t, "", Ext("sin_extension"))
}

func TestAllowedExtension(t *testing.T) {
	for _, name := range []string{"a.jpg", "a.jpeg", "a.png", "a.gif", "a.mp4",
		"a.pdf", "a.doc", "a.docx", "a.xls", "a.xlsx", "a.txt", "a.zip", "a.rar"} {
		assert.True(t, AllowedExtension(name), name)
	}
	for _, name := range []string{"a.exe", "a.sh", "a.js", "a", "a.PDF.exe"} {
		assert.False(t, AllowedExtension(name), name)
	}
}

func TestResourceTypeFor(t *testing.T) {
	// Documents must round-trip through "raw" or deletes will miss.
	for _, name := range []string{"a.pdf", "a.doc", "a.docx", "a.xls", "a.xlsx", "a.txt", "a.zip", "a.rar"} {
		assert.Equal(t, "raw", ResourceTypeFor(name), name)
	}
	for _, name := range []string{"a.jpg", "a.png", "a.gif", "a.mp4"} {
		assert.Equal(t, "image", ResourceTypeFor(name), name)
	}
}

func TestWithRetryStopsAfterSuccess(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "upload", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withRetry(ctx, "upload", func(context.Context) error {
		calls++
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls) // no retries once the caller is gone
}

func TestRetryBackoffDoubles(t *testing.T) {
	assert.Equal(t, time.Second, retryBackoff(1))
	assert.Equal(t, 2*time.Second, retryBackoff(2))
	assert.Equal(t, 4*time.Second, retryBackoff(3))
}
