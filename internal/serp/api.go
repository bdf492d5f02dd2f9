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

// APIEndpoint serves the script page the JSON backend parses.
const APIEndpoint = "https://links.duckduckgo.com/d.js"

// API searches through the JSON results endpoint. It always needs a token.
type API struct {
	Deps
	Endpoint string
}

func (b *API) Search(ctx context.Context, query string, opts Options) ([]result.Text, error) {
	token, err := b.Tokens.Acquire(ctx, query)
	if err != nil {
		return nil, err
	}

	region := opts.region()
	base := url.Values{
		"q":           {query},
		"kl":          {region},
		"l":           {region},
		"p":           {""},
		"df":          {opts.TimeLimit},
		"vqd":         {token},
		"bing_market": {bingMarket(region)},
		"ex":          {""},
	}
	switch opts.SafeSearch {
	case "off":
		base.Set("ex", "-2")
	case "on":
		base.Set("p", "1")
	default:
		base.Set("ex", "-1")
	}

	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = APIEndpoint
	}
	return paginate.Fetch(ctx, b.Pool, "text", paginate.Text, opts.MaxResults, func(ctx context.Context, offset int) ([]result.Text, error) {
		params := cloneValues(base)
		params.Set("s", strconv.Itoa(offset))
		body, err := b.Sender.Send(ctx, transport.Request{Endpoint: "d.js", URL: endpoint, Params: params})
		if err != nil {
			return nil, err
		}
		return extract.TextJSON(body, query)
	})
}

// cloneValues copies v so concurrent pages never share a map.
func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
