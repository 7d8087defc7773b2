package infra

import (
	"context"
	"io"
	"net/http"
	"time"
)

// sharedClient is the HTTP client used for all outbound API calls.
// Per-request deadlines come from the caller's context; the client timeout
// is a backstop against hung connections.
var sharedClient = &http.Client{
	Timeout: 60 * time.Second,
}

// DoGet issues a GET request with the given headers and returns the response
// body, status code, and any transport error. The caller must close the body
// on success.
func DoGet(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := sharedClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.StatusCode, nil
}
