package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidStatus(t *testing.T) {
	for _, status := range []string{StatusPending, StatusProcessing, StatusCompleted, StatusFailed} {
		assert.True(t, ValidStatus(status), status)
	}

	for _, status := range []string{"", "done", "PENDING", "queued"} {
		assert.False(t, ValidStatus(status), status)
	}
}

func TestDownloadError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDownloadError("https://example.com/a.mp3", cause)

	assert.Contains(t, err.Error(), "https://example.com/a.mp3")
	assert.Contains(t, err.Error(), "connection refused")

	require.ErrorIs(t, err, cause)

	var downloadErr *DownloadError
	require.ErrorAs(t, err, &downloadErr)
	assert.Equal(t, "https://example.com/a.mp3", downloadErr.URL)
}
