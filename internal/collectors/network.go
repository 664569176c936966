package collectors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/emirozbir/incident-triage/internal/config"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	defaultUserAgent   = "incident-triage/1.0"
	maxDrainBytes      = 1 << 20
)

var allowedMethods = map[string]bool{
	http.MethodGet:  true,
	http.MethodPost: true,
	http.MethodHead: true,
}

// HTTPResult is the outcome of one probe. StatusCode is nil when no response arrived.
type HTTPResult struct {
	StatusCode     *int              `json:"status_code"`
	ResponseTimeMs int64             `json:"response_time_ms"`
	Error          string            `json:"error,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
}

type NetworkCollector struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
}

func NewNetworkCollector(cfg config.NetworkConfig) *NetworkCollector {
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &NetworkCollector{
		client:         &http.Client{},
		defaultTimeout: timeout,
		userAgent:      userAgent,
	}
}

// HTTPRequest probes rawURL. Transport failures are reported in the result, never as an error.
// Methods other than GET, POST and HEAD fall back to GET; a non-positive timeout uses the default.
func (n *NetworkCollector) HTTPRequest(ctx context.Context, rawURL, method string, timeout time.Duration) *HTTPResult {
	if timeout <= 0 {
		timeout = n.defaultTimeout
	}
	method = normalizeMethod(method)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return &HTTPResult{ResponseTimeMs: time.Since(start).Milliseconds(), Error: err.Error()}
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return &HTTPResult{ResponseTimeMs: elapsed, Error: mapHTTPError(err, rawURL, timeout)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	status := resp.StatusCode
	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		headers[strings.ToLower(key)] = strings.Join(values, ", ")
	}

	return &HTTPResult{
		StatusCode:     &status,
		ResponseTimeMs: elapsed,
		Headers:        headers,
	}
}

func normalizeMethod(method string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	if allowedMethods[method] {
		return method
	}
	return http.MethodGet
}

func mapHTTPError(err error, rawURL string, timeout time.Duration) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("timeout after %dms", timeout.Milliseconds())
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if u, parseErr := url.Parse(rawURL); parseErr == nil && u.Hostname() != "" {
			return "DNS not resolved: " + u.Hostname()
		}
		return "DNS not resolved"
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return "connection refused: " + rawURL
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return "connection reset by server"
	}

	return err.Error()
}
