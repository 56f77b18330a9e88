package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single request when no WithTimeout option is given.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent is sent unless a request overrides it.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	maxBodySize = 64 << 20
)

// ErrResponseTooLarge is returned when a body exceeds the requester's limit.
var ErrResponseTooLarge = errors.New("response too large")

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// StatusError is returned by Fetch for a status outside 2xx that was not accepted.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

type request struct {
	method  string
	header  http.Header
	timeout time.Duration
	body    string
	accept  map[int]bool

	noRedirect bool
}

// RequestOption customizes a single call.
type RequestOption func(*request)

// WithMethod sets the HTTP method (default GET).
func WithMethod(method string) RequestOption {
	return func(r *request) { r.method = method }
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *request) { r.header.Set(key, value) }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) RequestOption {
	return func(r *request) { r.timeout = d }
}

// WithBody sends body with the given content type.
func WithBody(contentType, body string) RequestOption {
	return func(r *request) {
		r.body = body
		r.header.Set("Content-Type", contentType)
	}
}

// WithAcceptStatus treats the listed non-2xx codes as answers rather than failures.
func WithAcceptStatus(codes ...int) RequestOption {
	return func(r *request) {
		for _, c := range codes {
			r.accept[c] = true
		}
	}
}

// WithoutRedirects returns the first response instead of following 3xx.
func WithoutRedirects() RequestOption {
	return func(r *request) { r.noRedirect = true }
}

// Requester issues single HTTP calls with a bounded wait and a uniform failure
// policy. It is safe for concurrent use.
type Requester struct {
	Client    *http.Client
	UserAgent string

	// MaxBodySize caps a response body; zero means 64 MiB.
	MaxBodySize int64

	log    logrus.FieldLogger
	mu     sync.Mutex
	limits map[string]*rate.Limiter
}

// NewRequester returns a Requester with the default per-host rate limits.
func NewRequester(log logrus.FieldLogger) *Requester {
	if log == nil {
		log = DiscardLogger()
	}
	r := &Requester{
		Client:    &http.Client{},
		UserAgent: DefaultUserAgent,
		log:       log,
		limits:    make(map[string]*rate.Limiter),
	}
	r.SetRateLimit("ip-api.com", time.Minute/45, 1)
	r.SetRateLimit("html.duckduckgo.com", 2*time.Second, 1)
	r.SetRateLimit("crt.sh", time.Second, 1)
	return r
}

// SetRateLimit allows one request to host every interval, with the given burst.
func (r *Requester) SetRateLimit(host string, every time.Duration, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits[strings.ToLower(host)] = rate.NewLimiter(rate.Every(every), burst)
}

func (r *Requester) limiter(host string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limits[strings.ToLower(host)]
}

// Do performs one call and returns nil on network failure, timeout or an
// unaccepted status. The failure is logged, never returned.
func (r *Requester) Do(ctx context.Context, rawURL string, opts ...RequestOption) *Response {
	resp, err := r.Fetch(ctx, rawURL, opts...)
	if err != nil {
		r.log.WithField("url", rawURL).Warnf("request failed: %v", err)
		return nil
	}
	return resp
}

// Fetch is Do with the error surfaced, for callers that report it.
func (r *Requester) Fetch(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	req := &request{
		method:  http.MethodGet,
		header:  make(http.Header),
		timeout: DefaultTimeout,
		accept:  make(map[int]bool),
	}
	for _, opt := range opts {
		opt(req)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if lim := r.limiter(u.Hostname()); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	var body io.Reader
	if req.body != "" {
		body = strings.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", r.UserAgent)
	for k, vs := range req.header {
		httpReq.Header[k] = vs
	}

	r.log.WithFields(logrus.Fields{"method": req.method, "url": rawURL}).Debug("sending request")
	client := r.Client
	if req.noRedirect {
		c := *r.Client
		c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
		client = &c
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	limit := r.MaxBodySize
	if limit <= 0 {
		limit = maxBodySize
	}
	data, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrResponseTooLarge, rawURL, limit)
	}

	ok := httpResp.StatusCode >= 200 && httpResp.StatusCode < 300
	if !ok && !req.accept[httpResp.StatusCode] {
		return nil, &StatusError{StatusCode: httpResp.StatusCode, URL: rawURL}
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		URL:        httpResp.Request.URL.String(),
	}, nil
}
