// Package remote implements Resources backed by an HTTP call to an
// external service. The remote side owns the business logic; the Resource
// contract (validation, caching, bulk dispatch) applies unchanged.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	slogcontext "github.com/veqryn/slog-context"
)

// APIResource executes by calling Method on BaseURL+Action and decoding
// the response. Responses are expected in the standard envelope
// {result, code, message, data}; set RawEnvelope for endpoints that return
// plain JSON bodies.
type APIResource struct {
	// Client defaults to http.DefaultClient.
	Client  *http.Client
	BaseURL string
	Action  string
	// Method defaults to http.MethodGet.
	Method string
	// Timeout bounds a single call. Zero means the caller's context is
	// the only bound.
	Timeout time.Duration
	// RawEnvelope disables standard envelope unwrapping.
	RawEnvelope bool
}

type envelope struct {
	Result  *bool           `json:"result"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *APIResource) Execute(ctx context.Context, input any) (any, error) {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	req, err := a.buildRequest(ctx, input)
	if err != nil {
		return nil, err
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote call %s %s failed: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	slogcontext.FromCtx(ctx).Debug("remote call completed",
		slog.String("realm", "remote"), slog.String("url", req.URL.String()),
		slog.Int("status", resp.StatusCode), slog.Duration("elapsed", time.Since(start)))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response of %s %s: %w", req.Method, req.URL, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("remote call %s %s returned status %d: %s",
			req.Method, req.URL, resp.StatusCode, truncate(body, 256))
	}

	return a.decode(req, body)
}

func (a *APIResource) buildRequest(ctx context.Context, input any) (*http.Request, error) {
	method := a.Method
	if method == "" {
		method = http.MethodGet
	}
	endpoint := strings.TrimRight(a.BaseURL, "/") + "/" + strings.TrimLeft(a.Action, "/")

	if method == http.MethodGet || method == http.MethodDelete {
		query, err := queryFrom(input)
		if err != nil {
			return nil, err
		}
		if query != "" {
			endpoint += "?" + query
		}
		return http.NewRequestWithContext(ctx, method, endpoint, nil)
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("could not encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (a *APIResource) decode(req *http.Request, body []byte) (any, error) {
	if a.RawEnvelope {
		var value any
		if err := json.Unmarshal(body, &value); err != nil {
			return nil, fmt.Errorf("could not decode response of %s %s: %w", req.Method, req.URL, err)
		}
		return value, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("could not decode response envelope of %s %s: %w", req.Method, req.URL, err)
	}
	if env.Result != nil && !*env.Result {
		return nil, fmt.Errorf("remote call %s %s rejected: code %d: %s",
			req.Method, req.URL, env.Code, env.Message)
	}
	if len(env.Data) == 0 {
		return nil, nil
	}
	var value any
	if err := json.Unmarshal(env.Data, &value); err != nil {
		return nil, fmt.Errorf("could not decode response data of %s %s: %w", req.Method, req.URL, err)
	}
	return value, nil
}

// queryFrom flattens a JSON-object input into URL query parameters.
func queryFrom(input any) (string, error) {
	if input == nil {
		return "", nil
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("could not encode query parameters: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return "", fmt.Errorf("query input must be a JSON object: %w", err)
	}
	values := url.Values{}
	for k, v := range fields {
		switch v := v.(type) {
		case string:
			values.Set(k, v)
		case json.Number:
			values.Set(k, v.String())
		default:
			values.Set(k, fmt.Sprint(v))
		}
	}
	return values.Encode(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
