// Package ddgs is a DuckDuckGo search client: web, image, video and news
// search, instant answers, suggestions, maps, translation and chat.
//
// A Client owns one transport identity (TLS fingerprint, headers, cookies)
// for its whole life. The first failed request latches the client: every
// later call fails immediately with ErrTransport. Create a new Client to
// recover.
package ddgs

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FranksOps/ddgs/internal/chat"
	"github.com/FranksOps/ddgs/internal/fingerprint"
	"github.com/FranksOps/ddgs/internal/geo"
	"github.com/FranksOps/ddgs/internal/serp"
	"github.com/FranksOps/ddgs/internal/storage"
	"github.com/FranksOps/ddgs/internal/transport"
	"github.com/FranksOps/ddgs/internal/vqd"
	"github.com/FranksOps/ddgs/internal/workpool"
	"github.com/FranksOps/ddgs/pkg/fault"
	"github.com/FranksOps/ddgs/pkg/proxy"
)

// Errors returned by the client. Provider failures are *fault.Error values
// that match one of these with errors.Is.
var (
	ErrTransport           = fault.ErrTransport
	ErrRateLimited         = fault.ErrRateLimited
	ErrTimeout             = fault.ErrTimeout
	ErrMalformedResponse   = fault.ErrMalformedResponse
	ErrCoordinatesNotFound = fault.ErrCoordinatesNotFound
	ErrConversationLimit   = fault.ErrConversationLimit
	ErrChat                = fault.ErrChat
	ErrTripped             = fault.ErrTripped

	// ErrEmptyQuery is returned before any request when the query is empty.
	ErrEmptyQuery = errors.New("query is mandatory")
	// ErrUnknownBackend is returned for a Backend outside Backends.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrNoLocation is returned by Maps when MapsOptions names no area.
	ErrNoLocation = errors.New("no location given")
)

// Endpoints are the provider URLs the client talks to.
type Endpoints struct {
	Root        string
	TextAPI     string
	HTML        string
	Lite        string
	Images      string
	Videos      string
	News        string
	Answers     string
	Suggestions string
	Places      string
	Translate   string
	ChatStatus  string
	Chat        string
	Geocoder    string
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Root:        vqd.Root,
		TextAPI:     serp.APIEndpoint,
		HTML:        serp.HTMLEndpoint,
		Lite:        serp.LiteEndpoint,
		Images:      "https://duckduckgo.com/i.js",
		Videos:      "https://duckduckgo.com/v.js",
		News:        "https://duckduckgo.com/news.js",
		Answers:     "https://api.duckduckgo.com/",
		Suggestions: "https://duckduckgo.com/ac/",
		Places:      "https://duckduckgo.com/local.js",
		Translate:   "https://duckduckgo.com/translation.js",
		ChatStatus:  chat.StatusURL,
		Chat:        chat.ChatURL,
		Geocoder:    geo.Nominatim,
	}
}

// withDefaults fills every empty endpoint from DefaultEndpoints.
func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	for _, f := range []struct{ v, def *string }{
		{&e.Root, &d.Root}, {&e.TextAPI, &d.TextAPI}, {&e.HTML, &d.HTML}, {&e.Lite, &d.Lite},
		{&e.Images, &d.Images}, {&e.Videos, &d.Videos}, {&e.News, &d.News}, {&e.Answers, &d.Answers},
		{&e.Suggestions, &d.Suggestions}, {&e.Places, &d.Places}, {&e.Translate, &d.Translate},
		{&e.ChatStatus, &d.ChatStatus}, {&e.Chat, &d.Chat}, {&e.Geocoder, &d.Geocoder},
	} {
		if *f.v == "" {
			*f.v = *f.def
		}
	}
	return e
}

// Config configures a Client. The zero value is a usable default.
type Config struct {
	// Proxy is a single proxy URL (http, https, socks5). "tb" is shorthand
	// for the local Tor Browser SOCKS proxy.
	Proxy string
	// ProxyPool rotates proxies per request. Ignored when Proxy is set.
	ProxyPool *proxy.Pool
	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration
	// Profile pins the browser fingerprint; empty picks one at random.
	Profile string
	// Headers are added to every request.
	Headers http.Header
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// RequestsPerSecond paces requests when positive.
	RequestsPerSecond float64
	Jitter            float64
	// Workers sizes a pool private to this client; zero shares the
	// process-wide pool.
	Workers int
	// Recorder, if set, receives an audit record for every request.
	Recorder  storage.Backend
	Endpoints Endpoints
	Logger    *slog.Logger
}

// Client runs searches. It is safe for concurrent use.
type Client struct {
	tr       *transport.Transport
	tokens   *vqd.Acquirer
	geocoder *geo.Geocoder
	pool     *workpool.Pool
	ep       Endpoints
	logger   *slog.Logger
	backends map[Backend]serp.Provider
}

// New builds a Client and its transport.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Proxy != "" {
		cfg.ProxyPool = nil
	}
	tr, err := transport.New(transport.Config{
		Timeout:            cfg.Timeout,
		Headers:            cfg.Headers,
		Proxy:              cfg.Proxy,
		ProxyPool:          cfg.ProxyPool,
		Profile:            fingerprint.Profile(cfg.Profile),
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		RequestsPerSecond:  cfg.RequestsPerSecond,
		Jitter:             cfg.Jitter,
		Recorder:           cfg.Recorder,
		Logger:             cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("ddgs: %w", err)
	}

	pool := workpool.Default()
	if cfg.Workers > 0 {
		pool = workpool.New(cfg.Workers)
	}

	ep := cfg.Endpoints.withDefaults()
	c := &Client{
		tr:       tr,
		tokens:   vqd.New(tr, ep.Root),
		geocoder: geo.NewGeocoder(tr, ep.Geocoder),
		pool:     pool,
		ep:       ep,
		logger:   cfg.Logger,
	}
	deps := serp.Deps{Sender: tr, Tokens: c.tokens, Pool: pool}
	c.backends = map[Backend]serp.Provider{
		BackendAPI:  &serp.API{Deps: deps, Endpoint: ep.TextAPI},
		BackendHTML: &serp.HTML{Deps: deps, Endpoint: ep.HTML},
		BackendLite: &serp.Lite{Deps: deps, Endpoint: ep.Lite},
	}

	c.logger.Debug("ddgs client ready", "profile", tr.Profile(), "user_agent", tr.UserAgent())
	return c, nil
}

// Profile returns the browser fingerprint the client presents.
func (c *Client) Profile() string { return string(c.tr.Profile()) }

// Tripped reports whether a failed request has latched the client.
func (c *Client) Tripped() bool { return c.tr.Tripped() }

// Close releases idle connections.
func (c *Client) Close() { c.tr.Close() }
