package download

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurahnFakhri/audioTranscribe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestValidator(t *testing.T, maxBytes int64) *Validator {
	t.Helper()
	return NewValidator(Config{
		Dir:      t.TempDir(),
		MaxBytes: maxBytes,
	}, testLogger())
}

func TestDownload_Success(t *testing.T) {
	body := strings.Repeat("a", 12*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	v := newTestValidator(t, 1024*1024)

	result, err := v.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(len(body)), result.Size)
	assert.Equal(t, "audio/mpeg", result.ContentType)
	assert.True(t, strings.HasSuffix(result.SavedPath, ".mp3"))

	saved, err := os.ReadFile(result.SavedPath)
	require.NoError(t, err)
	assert.Equal(t, body, string(saved))

	assert.Equal(t, v.cfg.Dir, filepath.Dir(result.SavedPath))
}

func TestDownload_NotAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html></html>")
	}))
	defer srv.Close()

	v := newTestValidator(t, 1024*1024)

	result, err := v.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrNotAudio)
}

func TestDownload_TooLargeFromProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Content-Length", "2048")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	v := newTestValidator(t, 1024)

	_, err := v.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTooLarge)
}

func TestDownload_TooLargeFromBody(t *testing.T) {
	// No Content-Length on the probe, so the cap only trips while reading
	// the GET body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		if r.Method == http.MethodHead {
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	v := newTestValidator(t, 1024)

	_, err := v.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTooLarge)
}

func TestDownload_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	v := newTestValidator(t, 1024*1024)

	_, err := v.Download(context.Background(), srv.URL)
	require.Error(t, err)

	var downloadErr *domain.DownloadError
	assert.ErrorAs(t, err, &downloadErr)
	assert.Equal(t, srv.URL, downloadErr.URL)
}

func TestDownload_HeadRefusedButGetSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = io.WriteString(w, "RIFFdata")
	}))
	defer srv.Close()

	v := newTestValidator(t, 1024*1024)

	result, err := v.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", result.ContentType)
	assert.True(t, strings.HasSuffix(result.SavedPath, ".wav"))
}

func TestDownload_UnreachableServer(t *testing.T) {
	v := newTestValidator(t, 1024*1024)

	_, err := v.Download(context.Background(), "http://127.0.0.1:1/audio.mp3")
	require.Error(t, err)

	var downloadErr *domain.DownloadError
	assert.ErrorAs(t, err, &downloadErr)
}

func TestDownload_DistinctFilenames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.WriteString(w, "data")
	}))
	defer srv.Close()

	v := newTestValidator(t, 1024*1024)

	first, err := v.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	second, err := v.Download(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.NotEqual(t, first.SavedPath, second.SavedPath)
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{contentType: "audio/mpeg", want: "mp3"},
		{contentType: "audio/wav", want: "wav"},
		{contentType: "audio/ogg; codecs=opus", want: "ogg"},
		{contentType: "", want: "mp3"},
		{contentType: "audio/", want: "mp3"},
		{contentType: "garbage", want: "mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, extensionFor(tt.contentType))
		})
	}
}
