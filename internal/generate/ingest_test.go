package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchperf/querybench/internal/osclient"
	"github.com/searchperf/querybench/internal/queries"
)

func bulkTestServer(t *testing.T, docs *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case osclient.BulkPath:
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			// each doc is one action line plus one source line
			lines := bytes.Split(bytes.TrimSpace(body), []byte("\n"))
			require.Zero(t, len(lines)%2, "bulk body must have action/source line pairs")
			docs.Add(int64(len(lines) / 2))
			w.Write([]byte(`{"errors":false,"items":[]}`))
		default: // refresh, count
			w.Write([]byte(`{}`))
		}
	}))
}

func testIngester(t *testing.T, endpoint string) *Ingester {
	t.Helper()
	c, err := osclient.New(osclient.Config{Endpoint: endpoint, Timeout: 5 * time.Second}, zerolog.Nop())
	require.NoError(t, err)
	return NewIngester(c, zerolog.Nop())
}

func TestIngesterRun(t *testing.T) {
	var docs atomic.Int64
	srv := bulkTestServer(t, &docs)
	defer srv.Close()

	stats, err := testIngester(t, srv.URL).Run(context.Background(), queries.LogTypeVPC, Options{
		Index:     "vpc_flow_logs",
		Count:     2500,
		BatchSize: 1000,
		Workers:   3,
		Seed:      42,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2500), stats.Indexed)
	assert.Equal(t, int64(2500), docs.Load())
	assert.Zero(t, stats.Failed)
	assert.Positive(t, stats.DocsPerS)
}

func TestIngesterRun_BulkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == osclient.BulkPath {
			http.Error(w, `{"error":"disk watermark exceeded"}`, http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := testIngester(t, srv.URL).Run(context.Background(), queries.LogTypeWAF, Options{
		Index:     "waf_logs",
		Count:     100,
		BatchSize: 50,
		Workers:   1,
		Seed:      42,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bulk indexing")
}

func TestIngesterRunFile(t *testing.T) {
	var docs atomic.Int64
	timestamps := make(chan string, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == osclient.BulkPath {
			body, _ := io.ReadAll(r.Body)
			lines := bytes.Split(bytes.TrimSpace(body), []byte("\n"))
			for i := 1; i < len(lines); i += 2 {
				var doc map[string]any
				require.NoError(t, json.Unmarshal(lines[i], &doc))
				ts, _ := doc["@timestamp"].(string)
				timestamps <- ts
				docs.Add(1)
			}
			w.Write([]byte(`{"errors":false,"items":[]}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "big5.ndjson")
	content := `{"message":"one"}` + "\n\n" + `{"message":"two","@timestamp":"1999-01-01T00:00:00Z"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	stats, err := testIngester(t, srv.URL).RunFile(context.Background(), path, Options{
		Index:     "big5",
		BatchSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Indexed)
	assert.Equal(t, int64(2), docs.Load())

	close(timestamps)
	for ts := range timestamps {
		assert.NotEqual(t, "1999-01-01T00:00:00Z", ts, "file timestamps must be restamped")
		assert.NotEmpty(t, ts)
	}
}

func TestIngesterRunFile_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"errors":false,"items":[]}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "bad.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{broken\n"), 0o644))

	_, err := testIngester(t, srv.URL).RunFile(context.Background(), path, Options{Index: "big5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}
