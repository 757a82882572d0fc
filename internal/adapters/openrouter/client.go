// Package openrouter is the HTTP client for the OpenRouter API. It reports
// transport failures as errors and hands every HTTP status back to the
// caller untouched; outcome classification is the dispatcher's job.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/logiqbot/keypool/internal/ports"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	refererHeader = "https://github.com/logiqbot/keypool"
	titleHeader   = "keypool"

	defaultTimeout = 60 * time.Second

	maxResponseBytes = 1 << 20
)

type Client struct {
	baseURL string
	http    *http.Client
}

var _ ports.CompletionClient = (*Client)(nil)

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) Send(ctx context.Context, method, path, apiKey string, payload any) (ports.UpstreamResponse, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return ports.UpstreamResponse{}, fmt.Errorf("encode request payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return ports.UpstreamResponse{}, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", refererHeader)
	req.Header.Set("X-Title", titleHeader)

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.UpstreamResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.UpstreamResponse{}, fmt.Errorf("read response body: %w", err)
	}

	return ports.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Body:       data,
		Header:     resp.Header,
	}, nil
}
