package transcode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "github.com/geoknoesis/ldproxy/internal/errors"
)

// Fetcher retrieves remote documents for the proxy.
type Fetcher interface {
	Fetch(ctx context.Context, url, accept string) (body []byte, contentType string, err error)
}

// HTTPFetcher fetches over HTTP with a timeout and a body size limit.
type HTTPFetcher struct {
	Client       *http.Client
	MaxBodyBytes int64
}

// NewHTTPFetcher creates a fetcher.
func NewHTTPFetcher(timeout time.Duration, maxBodyBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		Client:       &http.Client{Timeout: timeout},
		MaxBodyBytes: maxBodyBytes,
	}
}

func fetchError(format string, args ...interface{}) error {
	return errs.WrapTransient(fmt.Errorf("%w: "+format, append([]interface{}{errs.ErrRemoteFetch}, args...)...),
		"HTTPFetcher", "Fetch", "remote fetch")
}

// Fetch performs a GET with the given Accept header. Any non-2xx status is
// an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, accept string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fetchError("%v", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, "", fetchError("%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fetchError("GET %s returned %s", url, resp.Status)
	}

	reader := io.Reader(resp.Body)
	if f.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.MaxBodyBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fetchError("read body of %s: %v", url, err)
	}
	if f.MaxBodyBytes > 0 && int64(len(body)) > f.MaxBodyBytes {
		return nil, "", fetchError("body of %s exceeds %d bytes", url, f.MaxBodyBytes)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
