// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pterm/pterm"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/httperrors"
	"supersetctl/cli/internal/logging"
)

const (
	apiPrefix       = "/api/v1/"
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 100
	// maxPages bounds pagination if the server keeps reporting a larger count.
	maxPages = 1000
)

// Options configures the HTTP client.
type Options struct {
	// Timeout applies to each request. Zero means 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond limits the outgoing request rate. Zero or negative means unlimited.
	RequestsPerSecond float64
	// PageSize is the page size used by List. Zero means 100.
	PageSize int
	// BreakerFailures is the number of consecutive connection failures that opens
	// the circuit. Zero means 5.
	BreakerFailures uint32
	// BreakerCooldown is how long the circuit stays open. Zero means 30 seconds.
	BreakerCooldown time.Duration
	Logger          *pterm.Logger
	// Transport overrides the round tripper, mainly for tests.
	Transport http.RoundTripper
}

// HTTP implements API over the Superset REST endpoints.
// It keeps the session cookie and CSRF token between calls, limits the request rate
// and stops sending requests while the server is unreachable. It never retries.
type HTTP struct {
	// baseURL is the server root (e.g., "https://superset.example.com")
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	logger   *pterm.Logger
	pageSize int

	mu    sync.Mutex
	token string
	csrf  string
	user  string
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts Options) *HTTP {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	jar, _ := cookiejar.New(nil)

	h := &HTTP{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: opts.Timeout, Jar: jar, Transport: opts.Transport},
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		pageSize: opts.PageSize,
	}
	threshold := opts.BreakerFailures
	h.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "superset-api",
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", logger.Args("name", name, "from", from.String(), "to", to.String()))
		},
		// Only an unreachable server trips the circuit; HTTP error statuses do not.
		IsSuccessful: func(err error) bool {
			return err == nil || !apperr.IsConnection(err)
		},
	})
	return h
}

// BaseURL returns the server root the client talks to.
func (h *HTTP) BaseURL() string { return h.baseURL }

// SetToken installs an access token obtained earlier, e.g. from the keychain.
func (h *HTTP) SetToken(token, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
	h.user = username
	h.csrf = ""
}

// Token returns the current access token.
func (h *HTTP) Token() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token
}

// Username returns the name used for the current session.
func (h *HTTP) Username() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.user
}

// request describes a single API call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	// anonymous requests carry neither the bearer token nor the CSRF token.
	anonymous bool
}

func (r request) op() string { return r.method + " " + r.path }

func isMutating(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}

// do performs r and decodes a successful response body into r.out.
// It returns the HTTP status code on success.
func (h *HTTP) do(ctx context.Context, r request) (int, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	if !r.anonymous && isMutating(r.method) {
		if err := h.ensureCSRF(ctx); err != nil {
			return 0, err
		}
	}

	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return 0, apperr.Wrap(apperr.Validation, "encode request body", err)
		}
		payload = b
	}

	u := h.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	resp, err := h.breaker.Execute(func() (*http.Response, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, u, body)
		if err != nil {
			return nil, apperr.Wrap(apperr.Validation, r.op(), err)
		}
		h.setStandardHeaders(req, r.anonymous)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := h.client.Do(req)
		if err != nil {
			return nil, httperrors.FromTransport(r.op(), err)
		}
		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, httperrors.FromStatus(r.op(), resp.StatusCode, string(b))
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, apperr.Wrap(apperr.Connection, r.op()+": server marked unreachable", err)
		}
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, httperrors.FromTransport(r.op(), err)
	}
	h.logger.Trace("superset response", h.logger.Args("op", r.op(), "status", resp.StatusCode, "bytes", len(data)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, httperrors.FromStatus(r.op(), resp.StatusCode, string(data))
	}
	if r.out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, r.out); err != nil {
			return resp.StatusCode, apperr.Wrap(apperr.Remote, r.op()+": decode response", err)
		}
	}
	return resp.StatusCode, nil
}

// setStandardHeaders applies headers common to every call.
func (h *HTTP) setStandardHeaders(req *http.Request, anonymous bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "supersetctl")
	// Superset checks the Referer on CSRF-protected requests served over HTTPS.
	req.Header.Set("Referer", h.baseURL+"/")
	if anonymous {
		return
	}
	h.mu.Lock()
	token, csrf := h.token, h.csrf
	h.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" && isMutating(req.Method) {
		req.Header.Set("X-CSRFToken", csrf)
	}
}

// ensureCSRF fetches a CSRF token once per session. Servers with CSRF protection
// disabled answer 404, which is treated as "no token needed".
func (h *HTTP) ensureCSRF(ctx context.Context) error {
	h.mu.Lock()
	have := h.csrf != ""
	h.mu.Unlock()
	if have {
		return nil
	}
	var out struct {
		Result string `json:"result"`
	}
	_, err := h.do(ctx, request{method: http.MethodGet, path: apiPrefix + "security/csrf_token/", out: &out})
	if err != nil {
		if apperr.HasKind(err, apperr.NotFound) {
			return nil
		}
		return err
	}
	h.mu.Lock()
	h.csrf = out.Result
	h.mu.Unlock()
	return nil
}

func collectionPath(kind Kind) string { return apiPrefix + kind.Path() + "/" }

func itemPath(kind Kind, id int) string { return fmt.Sprintf("%s%s/%d", apiPrefix, kind.Path(), id) }
