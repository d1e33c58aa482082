package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/net/html/charset"
)

// fetchStatic performs one GET and returns the body decoded to UTF-8.
func (e *Executor) fetchStatic(ctx context.Context, log *slog.Logger, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create new request %s: %w", target, err)
	}

	req.Header.Set("User-Agent", e.opts.UserAgent)
	req.Header.Set("Accept-Language", e.opts.AcceptLanguage)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	log.DebugContext(ctx, "Send request", "method", req.Method, "header", req.Header)

	res, err := e.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to request %s: %w", target, err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, res.StatusCode, fmt.Errorf("%w: %s", ErrStatus, res.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, e.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, res.StatusCode, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(raw)) > e.opts.MaxBodyBytes {
		log.WarnContext(ctx, "Response body truncated", "limit", e.opts.MaxBodyBytes)
		raw = raw[:e.opts.MaxBodyBytes]
	}

	decoded, err := charset.NewReader(bytes.NewReader(raw), res.Header.Get("Content-Type"))
	if err != nil {
		return nil, res.StatusCode, fmt.Errorf("failed to decode body: %w", err)
	}

	body, err := io.ReadAll(decoded)
	if err != nil {
		return nil, res.StatusCode, fmt.Errorf("failed to decode body: %w", err)
	}

	log.InfoContext(ctx, "Successfully received http response", "status code", res.StatusCode)

	return body, res.StatusCode, nil
}
