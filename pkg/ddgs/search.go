package ddgs

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/FranksOps/ddgs/internal/extract"
	"github.com/FranksOps/ddgs/internal/paginate"
	"github.com/FranksOps/ddgs/internal/serp"
	"github.com/FranksOps/ddgs/internal/transport"
	"github.com/FranksOps/ddgs/pkg/result"
)

// Text runs a web search on the selected backend.
func (c *Client) Text(ctx context.Context, query string, opts TextOptions) ([]result.Text, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	backend := opts.Backend
	if backend == "" {
		backend = BackendAPI
	}
	p, ok := c.backends[backend]
	if !ok {
		return nil, fmt.Errorf("ddgs: %w %q", ErrUnknownBackend, backend)
	}
	return p.Search(ctx, query, serp.Options{
		Region:     opts.Region.orDefault(),
		SafeSearch: string(opts.SafeSearch.orDefault()),
		TimeLimit:  string(opts.TimeLimit),
		MaxResults: opts.MaxResults,
	})
}

var (
	imagesSafeSearch = map[SafeSearch]string{SafeSearchOn: "1", SafeSearchModerate: "1", SafeSearchOff: "-1"}
	mediaSafeSearch  = map[SafeSearch]string{SafeSearchOn: "1", SafeSearchModerate: "-1", SafeSearchOff: "-2"}
)

// filter joins prefixed filter values into the provider's comma list;
// empty values keep their slot.
func filter(pairs ...string) string {
	var out string
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			out += ","
		}
		if v := pairs[i+1]; v != "" {
			out += pairs[i] + ":" + v
		}
	}
	return out
}

// Images runs an image search.
func (c *Client) Images(ctx context.Context, query string, opts ImagesOptions) ([]result.Image, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	token, err := c.tokens.Acquire(ctx, query)
	if err != nil {
		return nil, err
	}
	params := url.Values{
		"l":   {opts.Region.orDefault()},
		"o":   {"json"},
		"q":   {query},
		"vqd": {token},
		"f": {filter(
			"time", string(opts.TimeLimit),
			"size", opts.Size,
			"color", opts.Color,
			"type", opts.Type,
			"layout", opts.Layout,
			"license", opts.License,
		)},
		"p": {imagesSafeSearch[opts.SafeSearch.orDefault()]},
	}
	return paginate.Fetch(ctx, c.pool, "images", paginate.Images, opts.MaxResults, jsonPage(c, c.ep.Images, "i.js", params, extract.Images))
}

// Videos runs a video search.
func (c *Client) Videos(ctx context.Context, query string, opts VideosOptions) ([]result.Video, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	token, err := c.tokens.Acquire(ctx, query)
	if err != nil {
		return nil, err
	}
	params := url.Values{
		"l":   {opts.Region.orDefault()},
		"o":   {"json"},
		"q":   {query},
		"vqd": {token},
		"f": {filter(
			"publishedAfter", string(opts.TimeLimit),
			"videoDefinition", opts.Resolution,
			"videoDuration", opts.Duration,
			"videoLicense", opts.License,
		)},
		"p": {mediaSafeSearch[opts.SafeSearch.orDefault()]},
	}
	return paginate.Fetch(ctx, c.pool, "videos", paginate.Videos, opts.MaxResults, jsonPage(c, c.ep.Videos, "v.js", params, extract.Videos))
}

// News runs a news search.
func (c *Client) News(ctx context.Context, query string, opts NewsOptions) ([]result.News, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	token, err := c.tokens.Acquire(ctx, query)
	if err != nil {
		return nil, err
	}
	params := url.Values{
		"l":     {opts.Region.orDefault()},
		"o":     {"json"},
		"noamp": {"1"},
		"q":     {query},
		"vqd":   {token},
		"p":     {mediaSafeSearch[opts.SafeSearch.orDefault()]},
	}
	if opts.TimeLimit != "" {
		params.Set("df", string(opts.TimeLimit))
	}
	return paginate.Fetch(ctx, c.pool, "news", paginate.News, opts.MaxResults, jsonPage(c, c.ep.News, "news.js", params, extract.News))
}

// jsonPage returns a page function that GETs endpoint with base plus the
// page offset and decodes the body with parse.
func jsonPage[T any](c *Client, endpoint, name string, base url.Values, parse func([]byte) ([]T, error)) paginate.PageFunc[T] {
	return func(ctx context.Context, offset int) ([]T, error) {
		params := make(url.Values, len(base)+1)
		for k, v := range base {
			params[k] = v
		}
		params.Set("s", strconv.Itoa(offset))
		body, err := c.tr.Send(ctx, transport.Request{Endpoint: name, URL: endpoint, Params: params})
		if err != nil {
			return nil, err
		}
		return parse(body)
	}
}
