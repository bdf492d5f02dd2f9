package serp

import (
	"context"
	"net/url"
	"strconv"

	"github.com/FranksOps/ddgs/internal/extract"
	"github.com/FranksOps/ddgs/internal/paginate"
	"github.com/FranksOps/ddgs/internal/transport"
	"github.com/FranksOps/ddgs/pkg/result"
)

// Endpoints of the markup backends.
const (
	HTMLEndpoint = "https://html.duckduckgo.com/html"
	LiteEndpoint = "https://lite.duckduckgo.com/lite/"
)

// tokenThreshold is the result count above which the HTML backend asks for
// a token; the first page is served without one.
const tokenThreshold = 20

// HTML searches through the HTML endpoint.
type HTML struct {
	Deps
	Endpoint string
}

func (b *HTML) Search(ctx context.Context, query string, opts Options) ([]result.Text, error) {
	form := markupForm(query, opts)
	if opts.MaxResults > tokenThreshold {
		token, err := b.Tokens.Acquire(ctx, query)
		if err != nil {
			return nil, err
		}
		form.Set("vqd", token)
	}

	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = HTMLEndpoint
	}
	return searchMarkup(ctx, b.Deps, "html", endpoint, form, opts.MaxResults, extract.HTML)
}

// Lite searches through the lite endpoint. It never needs a token.
type Lite struct {
	Deps
	Endpoint string
}

func (b *Lite) Search(ctx context.Context, query string, opts Options) ([]result.Text, error) {
	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = LiteEndpoint
	}
	return searchMarkup(ctx, b.Deps, "lite", endpoint, markupForm(query, opts), opts.MaxResults, extract.Lite)
}

func markupForm(query string, opts Options) url.Values {
	region := opts.region()
	form := url.Values{
		"q":           {query},
		"o":           {"json"},
		"api":         {"d.js"},
		"vqd":         {""},
		"kl":          {region},
		"bing_market": {region},
	}
	if opts.TimeLimit != "" {
		form.Set("df", opts.TimeLimit)
	}
	return form
}

func searchMarkup(ctx context.Context, d Deps, name, endpoint string, form url.Values, max int, parse func([]byte) ([]result.Text, error)) ([]result.Text, error) {
	return paginate.Fetch(ctx, d.Pool, "text", paginate.Text, max, func(ctx context.Context, offset int) ([]result.Text, error) {
		page := cloneValues(form)
		page.Set("s", strconv.Itoa(offset))
		body, err := d.Sender.Send(ctx, transport.Request{Endpoint: name, URL: endpoint, Form: page})
		if err != nil {
			return nil, err
		}
		return parse(body)
	})
}
