package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lootbot/pkg/logx"
)

// FetchError wraps any failure talking to the pricing API: transport,
// unexpected status, or a malformed payload. A check that hits one aborts
// and is simply retried at the next trigger.
type FetchError struct {
	URL    string
	Status int // 0 when the request never got a response
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("catalog fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches the catalog from a fixed endpoint.
type Client struct {
	url  string
	http *http.Client
	log  logx.Logger
}

func NewClient(url string, timeout time.Duration, log logx.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Fetch retrieves the current catalog records in document order.
func (c *Client) Fetch(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: c.url, Status: resp.StatusCode}
	}

	records, err := decodeRecords(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: err}
	}
	c.log.Debug("catalog fetched", logx.Int("records", len(records)))
	return records, nil
}

// decodeRecords parses {"<id>": {...}, ...} preserving document order.
// encoding/json map decoding would randomize it, and downstream ordering
// guarantees (notify in source order) depend on it.
func decodeRecords(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode catalog: expected object, got %v", tok)
	}

	var out []Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode catalog: non-string key %v", keyTok)
		}
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode catalog record %q: %w", key, err)
		}
		rec.ID = key
		out = append(out, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return out, nil
}
