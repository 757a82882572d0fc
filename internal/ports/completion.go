package ports

import (
	"context"
	"net/http"
)

// UpstreamResponse is the raw outcome of one upstream call. Body decoding
// is the caller's concern; non-2xx statuses are returned here, never as
// errors.
type UpstreamResponse struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// CompletionClient talks to the upstream completion API with one
// credential's plaintext key. Send errors only on transport failure.
type CompletionClient interface {
	Send(ctx context.Context, method, path, apiKey string, payload any) (UpstreamResponse, error)
}
