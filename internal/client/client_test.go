package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func collect(t *testing.T, ch <-chan Chunk) (string, error) {
	t.Helper()
	var b strings.Builder
	for c := range ch {
		if c.Err != nil {
			return b.String(), c.Err
		}
		b.WriteString(c.Text)
	}
	return b.String(), nil
}

func TestGenerateStreamsChunks(t *testing.T) {
	var gotPrompt string
	var gotFile []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotPrompt = r.FormValue("prompt")

		f, _, err := r.FormFile("files")
		require.NoError(t, err)
		buf := new(bytes.Buffer)
		_, err = buf.ReadFrom(f)
		require.NoError(t, err)
		gotFile = buf.Bytes()

		fl := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		// Deliberately split a marker across two writes.
		w.Write([]byte("[ANAL"))
		fl.Flush()
		w.Write([]byte("YSIS]\nplan\n[END_ANALYSIS]\n"))
		fl.Flush()
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop().Sugar())
	ch, err := c.Generate(context.Background(), "a red square", []Upload{
		{FileName: "heart.png", Data: []byte{1, 2, 3}},
	})
	require.NoError(t, err)

	text, err := collect(t, ch)
	require.NoError(t, err)
	assert.Equal(t, "[ANALYSIS]\nplan\n[END_ANALYSIS]\n", text)
	assert.Equal(t, "a red square", gotPrompt)
	assert.Equal(t, []byte{1, 2, 3}, gotFile)
}

func TestModifySendsHistoryAndContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/modify", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "make it blue", r.FormValue("prompt"))
		assert.Equal(t, "<p>old</p>", r.FormValue("current_code"))
		assert.Equal(t, "TypeError: x", r.FormValue("console_logs"))
		assert.Equal(t, []string{"P1", "P2"}, r.MultipartForm.Value["prompt_history"])
		w.Write([]byte("ok\n"))
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop().Sugar())
	ch, err := c.Modify(context.Background(), "make it blue", "<p>old</p>", "TypeError: x", []string{"P1", "P2"}, nil)
	require.NoError(t, err)
	text, err := collect(t, ch)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", text)
}

func TestExplainPostsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/explain", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "how does it spin?", req["question"])
		assert.Equal(t, "<p>x</p>", req["current_code"])
		w.Write([]byte("It rotates via CSS."))
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop().Sugar())
	ch, err := c.Explain(context.Background(), "how does it spin?", "<p>x</p>")
	require.NoError(t, err)
	text, err := collect(t, ch)
	require.NoError(t, err)
	assert.Equal(t, "It rotates via CSS.", text)
}

func TestServerErrorSurfacesBeforeStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop().Sugar())
	_, err := c.Generate(context.Background(), "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestCancellationEndsStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c := New(srv.URL, zap.NewNop().Sugar())
	ch, err := c.Generate(ctx, "x", nil)
	require.NoError(t, err)

	cancel()
	_, err = collect(t, ch)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportWritesArchive(t *testing.T) {
	payload := []byte("PK\x03\x04fake-zip")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/download_zip", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "<p>final</p>", r.FormValue("html_content"))
		w.Header().Set("Content-Type", "application/zip")
		w.Write(payload)
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop().Sugar())
	var out bytes.Buffer
	require.NoError(t, c.Export(context.Background(), "<p>final</p>", nil, &out))
	assert.Equal(t, payload, out.Bytes())
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/healthz", r.URL.Path)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop().Sugar())
	assert.NoError(t, c.Health(context.Background()))
}
