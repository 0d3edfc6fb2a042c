package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commitlens/commitlens-cli/internal/buildinfo"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Routes  Routes
}

const (
	defaultRetryAttempts = 3
	defaultRetryBaseMS   = 250
	defaultRetryMaxMS    = 2000
	maxRetryShift        = 20
)

// Error is a non-2xx answer from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("api error (status=%d)", e.Status)
	}
	return fmt.Sprintf("api error (status=%d): %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func retryAttempts() int {
	enabled := strings.ToLower(strings.TrimSpace(os.Getenv("COMMITLENS_HTTP_RETRY_ENABLED")))
	if enabled == "false" || enabled == "0" || enabled == "no" {
		return 1
	}
	attempts := envInt("COMMITLENS_HTTP_RETRY_ATTEMPTS", defaultRetryAttempts)
	if attempts < 1 {
		return 1
	}
	return attempts
}

func parseRetryAfter(headerValue string) time.Duration {
	s := strings.TrimSpace(headerValue)
	if s == "" {
		return 0
	}
	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(s); err == nil {
		d := time.Until(at)
		if d <= 0 {
			return 0
		}
		return d
	}
	return 0
}

func retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if d := parseRetryAfter(retryAfterHeader); d > 0 {
		return d
	}
	if attempt < 1 {
		attempt = 1
	}
	baseMS := envInt("COMMITLENS_HTTP_RETRY_BASE_MS", defaultRetryBaseMS)
	maxMS := envInt("COMMITLENS_HTTP_RETRY_MAX_MS", defaultRetryMaxMS)
	if baseMS < 0 {
		baseMS = 0
	}
	if maxMS < 0 {
		maxMS = 0
	}
	if maxMS > 0 && baseMS > maxMS {
		baseMS = maxMS
	}
	shift := attempt - 1
	if shift > maxRetryShift {
		shift = maxRetryShift
	}
	delayMS := int64(baseMS) << shift
	if maxMS > 0 && delayMS > int64(maxMS) {
		delayMS = int64(maxMS)
	}
	if delayMS <= 0 {
		return 0
	}
	// Deterministic jitter keeps tests stable.
	jitterMS := int64((attempt % 97) * 37 % 97)
	if maxMS > 0 && delayMS+jitterMS > int64(maxMS) {
		return time.Duration(maxMS) * time.Millisecond
	}
	return time.Duration(delayMS+jitterMS) * time.Millisecond
}

func shouldRetryTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// EOF, connection reset and friends.
	return true
}

func waitRetryDelay(ctx context.Context, attempt int, retryAfterHeader string) error {
	delay := retryDelay(attempt, retryAfterHeader)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c Client) endpointFor(path string) (string, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return "", fmt.Errorf("missing api base url")
	}
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	p := strings.TrimSpace(path)
	p = strings.TrimPrefix(p, "/")
	u.Path = strings.TrimRight(u.Path, "/") + "/" + p
	return u.String(), nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// idempotent requests are retried on transport errors as well as on
// 429/503; everything else only on 429/503, where the server has told us the
// request was not processed.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// do performs one logical request with retries and returns the raw body.
func (c Client) do(ctx context.Context, method string, path string, query url.Values, body any, retryTransport bool) ([]byte, int, error) {
	endpoint, err := c.endpointFor(path)
	if err != nil {
		return nil, 0, err
	}
	if len(query) > 0 {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, 0, err
		}
		u.RawQuery = query.Encode()
		endpoint = u.String()
	}

	var payload []byte
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, 0, err
		}
		payload = buf.Bytes()
	}

	requestID := uuid.NewString()
	hc := c.httpClient()
	attempts := retryAttempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, r)
		if err != nil {
			return nil, 0, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-Id", requestID)
		req.Header.Set("User-Agent", buildinfo.UserAgent())
		if strings.TrimSpace(c.Token) != "" {
			req.Header.Set("Authorization", "Bearer "+c.Token)
		}

		resp, err := hc.Do(req)
		if err != nil {
			if retryTransport && attempt < attempts && shouldRetryTransportError(err) {
				if waitErr := waitRetryDelay(ctx, attempt, ""); waitErr != nil {
					return nil, 0, waitErr
				}
				continue
			}
			return nil, 0, err
		}

		b, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, readErr
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) && attempt < attempts {
			if waitErr := waitRetryDelay(ctx, attempt, resp.Header.Get("Retry-After")); waitErr != nil {
				return nil, 0, waitErr
			}
			continue
		}
		return b, resp.StatusCode, nil
	}
	return nil, 0, fmt.Errorf("request exhausted retries without response")
}

// DoREST sends a JSON request and returns the decoded body. Non-JSON bodies
// (HTML error pages etc) come back as a raw string so callers can wrap them.
func (c Client) DoREST(ctx context.Context, method string, path string, query url.Values, body any) (any, int, error) {
	b, status, err := c.do(ctx, method, path, query, body, idempotent(method))
	if err != nil {
		return nil, status, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return string(b), status, nil
	}
	return out, status, nil
}

// DoJSON is the typed variant of DoREST: a status >= 400 becomes an *Error
// and a 2xx body is decoded into out (when out is non-nil).
func (c Client) DoJSON(ctx context.Context, method string, path string, body any, out any) error {
	return c.doJSON(ctx, method, path, body, out, idempotent(method))
}

func (c Client) doJSON(ctx context.Context, method string, path string, body any, out any, retryTransport bool) error {
	b, status, err := c.do(ctx, method, path, nil, body, retryTransport)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if status >= 400 {
		return &Error{Status: status, Message: errorMessage(b, status)}
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("invalid json response (status=%d): %w", status, err)
	}
	return nil
}

// errorMessage pulls a human message out of the backend error envelope:
// {"message": "..."}, {"error": "..."} or {"error": {"message": "..."}}.
func errorMessage(b []byte, status int) string {
	var env map[string]any
	if err := json.Unmarshal(b, &env); err == nil {
		if s, ok := env["message"].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
		switch e := env["error"].(type) {
		case string:
			if strings.TrimSpace(e) != "" {
				return e
			}
		case map[string]any:
			if s, ok := e["message"].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	if raw := strings.TrimSpace(string(b)); raw != "" && len(raw) <= 200 && !strings.HasPrefix(raw, "<") {
		return raw
	}
	return http.StatusText(status)
}
