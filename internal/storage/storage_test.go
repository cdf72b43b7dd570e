package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/turbostart/internal/config"
)

func TestNew_DisabledWithoutCredentials(t *testing.T) {
	store, err := New(config.ObjectStorage{Bucket: "b"})
	require.NoError(t, err)
	assert.IsType(t, Disabled{}, store)

	url, ok := store.Put(context.Background(), "k", []byte("x"), "text/plain")
	assert.False(t, ok)
	assert.Empty(t, url)
	assert.False(t, store.Exists(context.Background(), "k"))
}

func TestMinio_URL(t *testing.T) {
	public, err := NewMinio(config.ObjectStorage{
		AccountID: "acct", AccessKeyID: "a", SecretAccessKey: "s", Bucket: "media",
		PublicURL: "https://cdn.example.com/", Secure: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/videos/1.mp4", public.URL("videos/1.mp4"))

	direct, err := NewMinio(config.ObjectStorage{
		AccountID: "acct", AccessKeyID: "a", SecretAccessKey: "s", Bucket: "media", Secure: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com/media/videos/1.mp4", direct.URL("/videos/1.mp4"))
}

// fakeS3 keeps objects in memory and answers just enough of the S3 API for
// PUT and HEAD object requests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", f.types[r.URL.Path])
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestMinio_PutAndExists(t *testing.T) {
	s3 := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(s3)
	defer srv.Close()

	store, err := NewMinio(config.ObjectStorage{
		Endpoint:        strings.TrimPrefix(srv.URL, "http://"),
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "media",
		PublicURL:       "https://cdn.example.com",
	})
	require.NoError(t, err)

	ctx := context.Background()
	url, ok := store.Put(ctx, "videos/abc.mp4", []byte("mp4"), "video/mp4")
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/videos/abc.mp4", url)
	require.Contains(t, s3.objects, "/media/videos/abc.mp4")
	assert.Contains(t, string(s3.objects["/media/videos/abc.mp4"]), "mp4")
	assert.Equal(t, "video/mp4", s3.types["/media/videos/abc.mp4"])

	assert.True(t, store.Exists(ctx, "videos/abc.mp4"))
	assert.False(t, store.Exists(ctx, "videos/missing.mp4"))
}
