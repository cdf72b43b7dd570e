package render

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/turbostart/internal/config"
)

func testRenderer(t *testing.T, script string) (*Renderer, string) {
	t.Helper()
	dir := t.TempDir()
	return NewRenderer(config.Render{
		Binary:      "sh",
		Args:        []string{"-c", script, "sh"},
		Composition: "ContentVideo",
		WorkDir:     dir,
		OutputDir:   dir,
		Timeout:     5 * time.Second,
	}), dir
}

// copyProps stands in for the real renderer by copying the props file to
// the output path. Positional args are composition, out, --props, props.
const copyProps = `cp "$4" "$2"`

func TestRenderer_Success(t *testing.T) {
	r, dir := testRenderer(t, copyProps)

	video, err := r.Render(context.Background(), Props{Title: "Hello", Lines: []string{"a", "b"}})
	require.NoError(t, err)

	var got Props
	require.NoError(t, json.Unmarshal(video, &got))
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, []string{"a", "b"}, got.Lines)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files removed")
}

func TestRenderer_PassesComposition(t *testing.T) {
	r, _ := testRenderer(t, `printf %s "$1" > "$2"`)
	video, err := r.Render(context.Background(), Props{Title: "x", Lines: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, "ContentVideo", string(video))
}

func TestRenderer_Failure(t *testing.T) {
	r, dir := testRenderer(t, "echo secret-stack >&2; exit 3")

	_, err := r.Render(context.Background(), Props{Title: "x", Lines: []string{"x"}})
	assert.ErrorIs(t, err, ErrRenderFailed)
	assert.NotContains(t, err.Error(), "secret-stack")

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestRenderer_NoOutput(t *testing.T) {
	r, _ := testRenderer(t, "exit 0")
	_, err := r.Render(context.Background(), Props{Title: "x", Lines: []string{"x"}})
	assert.ErrorIs(t, err, ErrRenderFailed)
}

func TestRenderer_Timeout(t *testing.T) {
	r, _ := testRenderer(t, "exec sleep 5")
	r.timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := r.Render(context.Background(), Props{Title: "x", Lines: []string{"x"}})
	assert.ErrorIs(t, err, ErrRenderFailed)
	assert.Less(t, time.Since(start), 4*time.Second)
}

type memStore struct {
	keys []string
}

func (m *memStore) Put(_ context.Context, key string, _ []byte, _ string) (string, bool) {
	m.keys = append(m.keys, key)
	return "https://cdn.example.com/" + key, true
}

func (m *memStore) Exists(context.Context, string) bool { return false }

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/render", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Validation(t *testing.T) {
	r, _ := testRenderer(t, copyProps)
	h := NewServer(r, nil, nil).Handler()

	cases := map[string]string{
		"bad json":      `{`,
		"missing lines": `{"title":"t"}`,
		"empty lines":   `{"title":"t","lines":[]}`,
		"missing title": `{"lines":["a"]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := post(t, h, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestServer_RenderAndUpload(t *testing.T) {
	r, _ := testRenderer(t, copyProps)
	store := &memStore{}
	h := NewServer(r, store, nil).Handler()

	rec := post(t, h, `{"title":"Launch","lines":["one"],"ctaText":"Go"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"ctaText":"Go"`)

	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasPrefix(store.keys[0], "videos/"))
	assert.True(t, strings.HasSuffix(store.keys[0], ".mp4"))
	assert.Equal(t, "https://cdn.example.com/"+store.keys[0], rec.Header().Get(videoHeader))
}

func TestServer_RenderFailureHidesStderr(t *testing.T) {
	r, _ := testRenderer(t, "echo leaked-detail >&2; exit 1")
	h := NewServer(r, nil, nil).Handler()

	rec := post(t, h, `{"title":"t","lines":["a"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "leaked-detail")
	assert.Empty(t, rec.Header().Get(videoHeader))
}

func TestServer_Health(t *testing.T) {
	h := NewServer(nil, nil, nil).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
