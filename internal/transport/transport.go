// Package transport is the single HTTP client every provider call goes
// through. One Transport holds one browser identity, one cookie jar and a
// fail-fast latch: after any request fails, every later call on the same
// Transport fails immediately without touching the network.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/FranksOps/ddgs/internal/bypass"
	"github.com/FranksOps/ddgs/internal/fingerprint"
	"github.com/FranksOps/ddgs/internal/metrics"
	"github.com/FranksOps/ddgs/internal/storage"
	"github.com/FranksOps/ddgs/pkg/fault"
	"github.com/FranksOps/ddgs/pkg/httpclient"
	"github.com/FranksOps/ddgs/pkg/proxy"
	"github.com/FranksOps/ddgs/pkg/ratelimit"
)

// Referer is sent with every request unless the caller overrides it.
const Referer = "https://duckduckgo.com/"

type contextKey string

const proxyKey contextKey = "proxy_url"

// Config configures a Transport. Zero values fall back to defaults.
type Config struct {
	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration
	// Headers are added on top of the identity's browser headers.
	Headers http.Header
	// Proxy is a single proxy URL. "tb" is expanded to the Tor Browser
	// SOCKS port and bare host:port values get an http:// scheme.
	Proxy string
	// ProxyPool rotates proxies per request. It takes precedence over Proxy.
	ProxyPool *proxy.Pool
	// Profile pins a fingerprint. Empty picks a random browser profile.
	Profile fingerprint.Profile
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// RequestsPerSecond paces request starts; <= 0 disables pacing.
	RequestsPerSecond float64
	Jitter            float64
	// Recorder receives an audit record of every exchange. Optional.
	Recorder storage.Backend
	// Detectors flag bot-challenge responses. Nil uses bypass.DefaultDetectors.
	Detectors []bypass.Detector
	Logger    *slog.Logger
}

// Request describes one call to a provider endpoint.
type Request struct {
	// Endpoint labels the call in errors, metrics and audit records.
	// Defaults to the last path element of URL.
	Endpoint    string
	Method      string // defaults to GET, or POST when a body is set
	URL         string
	Params      url.Values // merged into the URL query
	Form        url.Values // sent as application/x-www-form-urlencoded
	Body        []byte
	ContentType string
	Header      http.Header
	// Timeout overrides Config.Timeout for this request when positive.
	Timeout time.Duration
}

// Response is a fully read and decoded HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Detection names the bot-protection system that flagged the response,
	// or is empty.
	Detection string
}

// Transport sends provider requests. It is safe for concurrent use.
type Transport struct {
	cfg       Config
	client    *httpclient.Client
	rt        *http.Transport
	profile   fingerprint.Profile
	headers   http.Header
	limiter   *ratelimit.Limiter
	fixed     *url.URL
	detectors []bypass.Detector
	logger    *slog.Logger
	tripped   atomic.Bool
}

// New builds a Transport. The fingerprint identity and cookie jar chosen
// here live as long as the Transport.
func New(cfg Config) (*Transport, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}
	if cfg.Profile == "" {
		cfg.Profile = fingerprint.Pick()
	}

	t := &Transport{
		cfg:       cfg,
		profile:   cfg.Profile,
		detectors: cfg.Detectors,
		logger:    cfg.Logger,
	}

	if cfg.Proxy != "" {
		u, err := proxy.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		t.fixed = u
	}

	rt, err := fingerprint.Transport(cfg.Profile, fingerprint.Config{
		Proxy:              t.proxyFor,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	t.rt = rt

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: -1,
		UseCookieJar: true,
		Transport:    rt,
	})
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	t.client = client

	t.headers = fingerprint.Headers(cfg.Profile, fingerprint.UserAgent(cfg.Profile))
	t.headers.Set("Referer", Referer)
	for k, vs := range cfg.Headers {
		t.headers[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}

	if cfg.RequestsPerSecond > 0 {
		t.limiter = ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Jitter)
	}

	return t, nil
}

// proxyFor resolves the proxy of one request: a pool pick carried in the
// request context, then the fixed proxy, then the environment.
func (t *Transport) proxyFor(req *http.Request) (*url.URL, error) {
	if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
		return u, nil
	}
	if t.fixed != nil {
		return t.fixed, nil
	}
	return http.ProxyFromEnvironment(req)
}

// Profile is the fingerprint profile this Transport impersonates.
func (t *Transport) Profile() fingerprint.Profile { return t.profile }

// UserAgent is the User-Agent sent with every request.
func (t *Transport) UserAgent() string { return t.headers.Get("User-Agent") }

// Tripped reports whether the fail-fast latch is set.
func (t *Transport) Tripped() bool { return t.tripped.Load() }

// Close releases idle connections and stops pacing.
func (t *Transport) Close() {
	t.rt.CloseIdleConnections()
	t.limiter.Stop()
}

// Send performs the request and returns the body of a 200 response. Any
// other outcome is a *fault.Error and, unless the caller cancelled, trips
// the latch.
func (t *Transport) Send(ctx context.Context, r Request) ([]byte, error) {
	resp, err := t.Exchange(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := t.Check(r, resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Check classifies resp and trips the latch when it is not a success.
func (t *Transport) Check(r Request, resp *Response) error {
	if err := Classify(endpointOf(r), r.URL, resp); err != nil {
		t.trip(err)
		return err
	}
	return nil
}

// Classify maps a response onto the error taxonomy: flagged bot challenges
// and HTTP 202/301/403 are fault.ErrRateLimited, any other non-200 is
// fault.ErrTransport.
func Classify(op, rawURL string, resp *Response) error {
	if resp.Detection != "" {
		return fault.New(fault.ErrRateLimited, op, rawURL, fmt.Errorf("%s challenge, status %d", resp.Detection, resp.StatusCode))
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusAccepted, http.StatusMovedPermanently, http.StatusForbidden:
		return fault.New(fault.ErrRateLimited, op, rawURL, fmt.Errorf("status %d", resp.StatusCode))
	default:
		return fault.New(fault.ErrTransport, op, rawURL, fmt.Errorf("status %d", resp.StatusCode))
	}
}

// Exchange performs the request and returns the response whatever its
// status. Network failures, timeouts and undecodable bodies are returned as
// *fault.Error and trip the latch; HTTP statuses are left to the caller,
// who should pass the response through Check.
func (t *Transport) Exchange(ctx context.Context, r Request) (*Response, error) {
	op := endpointOf(r)
	if t.tripped.Load() {
		return nil, fault.New(fault.ErrTransport, op, r.URL, fault.ErrTripped)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		err = classifyErr(op, r.URL, err)
		t.trip(err)
		return nil, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var activeProxy *url.URL
	if t.cfg.ProxyPool != nil {
		if activeProxy = t.cfg.ProxyPool.Next(); activeProxy != nil {
			ctx = context.WithValue(ctx, proxyKey, activeProxy)
		}
	} else {
		activeProxy = t.fixed
	}

	req, err := t.newRequest(ctx, r)
	if err != nil {
		err = fault.New(fault.ErrTransport, op, r.URL, err)
		t.trip(err)
		return nil, err
	}

	start := time.Now()
	record := &storage.Exchange{
		ID:        storage.NewID(),
		Endpoint:  op,
		Method:    req.Method,
		URL:       req.URL.String(),
		Profile:   string(t.profile),
		CreatedAt: start.UTC(),
	}
	if activeProxy != nil {
		record.Proxy = activeProxy.Redacted()
	}

	resp, err := t.client.Do(ctx, req)
	if err != nil {
		if activeProxy != nil && !errors.Is(err, context.Canceled) {
			metrics.ProxyFailures.WithLabelValues(activeProxy.Redacted()).Inc()
			if t.cfg.ProxyPool != nil {
				_ = t.cfg.ProxyPool.MarkFailure(activeProxy)
			}
		}
		err = classifyErr(op, r.URL, err)
		record.Duration = time.Since(start)
		record.Error = err.Error()
		t.finish(ctx, record)
		t.trip(err)
		return nil, err
	}
	defer resp.Body.Close()

	if activeProxy != nil && t.cfg.ProxyPool != nil {
		_ = t.cfg.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := httpclient.ReadBody(resp)
	record.StatusCode = resp.StatusCode
	record.Headers = resp.Header
	record.BodySize = int64(len(body))
	record.Duration = time.Since(start)
	if err != nil {
		err = classifyErr(op, r.URL, err)
		record.Error = err.Error()
		t.finish(ctx, record)
		t.trip(err)
		return nil, err
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if src, ok := bypass.Analyze(bypass.Sample{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, t.detectors); ok {
		out.Detection = src
		record.DetectedBot = true
		record.DetectionSrc = src
	}
	if cerr := Classify(op, r.URL, out); cerr != nil {
		record.Error = cerr.Error()
	}
	t.finish(ctx, record)

	return out, nil
}

func (t *Transport) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, vs := range r.Params {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}

	var (
		body        io.Reader
		contentType = r.ContentType
	)
	switch {
	case r.Form != nil:
		body = strings.NewReader(r.Form.Encode())
		if contentType == "" {
			contentType = "application/x-www-form-urlencoded"
		}
	case r.Body != nil:
		body = bytes.NewReader(r.Body)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
		if body != nil {
			method = http.MethodPost
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	req.Header = t.headers.Clone()
	for k, vs := range r.Header {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// finish publishes the audit record to metrics, the log and the recorder.
func (t *Transport) finish(ctx context.Context, e *storage.Exchange) {
	metrics.RecordExchange(e)
	t.logger.Debug("exchange",
		"endpoint", e.Endpoint,
		"method", e.Method,
		"url", e.URL,
		"status", e.StatusCode,
		"bytes", e.BodySize,
		"duration", e.Duration,
		"detected", e.DetectionSrc,
		"err", e.Error,
	)
	if t.cfg.Recorder == nil {
		return
	}
	if err := t.cfg.Recorder.Save(context.WithoutCancel(ctx), e); err != nil {
		t.logger.Warn("audit record not saved", "id", e.ID, "err", err)
	}
}

// trip latches the transport. A caller abandoning its own request says
// nothing about the provider, so cancellation is not latched.
func (t *Transport) trip(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if t.tripped.CompareAndSwap(false, true) {
		metrics.LatchTrips.Inc()
		t.logger.Warn("transport tripped, later calls will fail fast", "err", err)
	}
}

// classifyErr wraps a request-level error as fault.ErrTimeout when it looks
// like a deadline, fault.ErrTransport otherwise.
func classifyErr(op, rawURL string, err error) error {
	if isTimeout(err) {
		return fault.New(fault.ErrTimeout, op, rawURL, err)
	}
	return fault.New(fault.ErrTransport, op, rawURL, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	// The query string may itself contain the word, so look past url.Error.
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	return strings.Contains(strings.ToLower(err.Error()), "time")
}

func endpointOf(r Request) string {
	if r.Endpoint != "" {
		return r.Endpoint
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return "unknown"
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		return path.Base(p)
	}
	return u.Hostname()
}
