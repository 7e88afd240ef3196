package osclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
)

// Endpoint paths
const (
	PPLPath  = "/_plugins/_ppl"
	BulkPath = "/_bulk"
)

// Compression modes for bulk request bodies
const (
	CompressNone = "none"
	CompressGzip = "gzip"
	CompressZstd = "zstd"
)

// Config holds connection settings for one cluster.
type Config struct {
	Endpoint string
	Username string
	Password string
	Timeout  time.Duration
	Insecure bool
}

// Client is a thin OpenSearch HTTP client. It issues single requests and
// reports errors; it never retries (a failed request is one observation).
type Client struct {
	endpoint string
	http     *http.Client
	logger   zerolog.Logger
	zenc     *zstd.Encoder
}

// basicAuthTransport injects Basic credentials into every request.
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

// New creates a client for the given cluster config
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("cluster endpoint is required")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid cluster endpoint %q: %w", cfg.Endpoint, err)
	}

	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     30 * time.Second,
	}
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	var rt http.RoundTripper = transport
	if cfg.Username != "" && cfg.Password != "" {
		rt = &basicAuthTransport{username: cfg.Username, password: cfg.Password, base: transport}
		logger.Info().Str("user", cfg.Username).Msg("Using basic authentication")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	zenc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}

	return &Client{
		endpoint: cfg.Endpoint,
		http: &http.Client{
			Transport: rt,
			Timeout:   timeout,
		},
		logger: logger,
		zenc:   zenc,
	}, nil
}

// HTTPClient exposes the configured client for the load driver, which hands
// it to the load-generation framework instead of issuing requests itself.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Endpoint returns the cluster base URL
func (c *Client) Endpoint() string { return c.endpoint }

// PPLQuery executes one PPL query via the plugin endpoint
func (c *Client) PPLQuery(ctx context.Context, pplText string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"query": pplText})
	if err != nil {
		return nil, fmt.Errorf("encoding PPL envelope: %w", err)
	}
	return c.post(ctx, c.endpoint+PPLPath, "application/json", "", body)
}

// Search executes one DSL query against the index's search endpoint
func (c *Client) Search(ctx context.Context, index string, body []byte) ([]byte, error) {
	return c.post(ctx, c.endpoint+"/"+index+"/_search", "application/json", "", body)
}

// Bulk sends one NDJSON batch to the bulk endpoint. The payload is compressed
// according to the mode; refresh is left to the caller.
func (c *Client) Bulk(ctx context.Context, ndjson []byte, compression string) error {
	payload := ndjson
	encoding := ""
	switch compression {
	case CompressGzip:
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(ndjson); err != nil {
			return fmt.Errorf("gzip bulk body: %w", err)
		}
		if err := gw.Close(); err != nil {
			return fmt.Errorf("gzip bulk body: %w", err)
		}
		payload = buf.Bytes()
		encoding = "gzip"
	case CompressZstd:
		payload = c.zenc.EncodeAll(ndjson, nil)
		encoding = "zstd"
	case CompressNone, "":
	default:
		return fmt.Errorf("unknown compression mode %q", compression)
	}

	resp, err := c.post(ctx, c.endpoint+BulkPath+"?refresh=false", "application/x-ndjson", encoding, payload)
	if err != nil {
		return err
	}

	// The bulk endpoint reports per-item failures inside a 200 response
	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("decoding bulk response: %w", err)
	}
	if result.Errors {
		for _, item := range result.Items {
			for _, op := range item {
				if len(op.Error) > 0 {
					return fmt.Errorf("bulk item failed (status %d): %s", op.Status, truncate(op.Error, 200))
				}
			}
		}
		return fmt.Errorf("bulk request reported item errors")
	}
	return nil
}

// Refresh makes recently ingested documents searchable
func (c *Client) Refresh(ctx context.Context, index string) error {
	_, err := c.post(ctx, c.endpoint+"/"+index+"/_refresh", "application/json", "", nil)
	return err
}

// Count returns the document count of an index
func (c *Client) Count(ctx context.Context, index string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+index+"/_count", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	var result struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, fmt.Errorf("decoding count response: %w", err)
	}
	return result.Count, nil
}

func (c *Client) post(ctx context.Context, url, contentType, contentEncoding string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
