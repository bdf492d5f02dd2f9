package ddgs

import (
	"context"
	"net/http"
	"net/url"

	"github.com/FranksOps/ddgs/internal/extract"
	"github.com/FranksOps/ddgs/internal/transport"
	"github.com/FranksOps/ddgs/internal/workpool"
	"github.com/FranksOps/ddgs/pkg/result"
)

// Answers returns the instant answer for query, if any, followed by its
// related topics.
func (c *Client) Answers(ctx context.Context, query string) ([]result.Answer, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	body, err := c.tr.Send(ctx, transport.Request{
		Endpoint: "answers",
		URL:      c.ep.Answers,
		Params:   url.Values{"q": {"what is " + query}, "format": {"json"}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]result.Answer, 0)
	abstract, ok, err := extract.Abstract(body)
	if err != nil {
		return nil, err
	}
	if ok {
		out = append(out, abstract)
	}

	body, err = c.tr.Send(ctx, transport.Request{
		Endpoint: "answers",
		URL:      c.ep.Answers,
		Params:   url.Values{"q": {query}, "format": {"json"}},
	})
	if err != nil {
		return nil, err
	}
	related, err := extract.RelatedTopics(body)
	if err != nil {
		return nil, err
	}
	return append(out, related...), nil
}

// Suggestions returns autocomplete phrases for query.
func (c *Client) Suggestions(ctx context.Context, query string, region Region) ([]result.Suggestion, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	body, err := c.tr.Send(ctx, transport.Request{
		Endpoint: "ac",
		URL:      c.ep.Suggestions,
		Params:   url.Values{"q": {query}, "kl": {region.orDefault()}},
	})
	if err != nil {
		return nil, err
	}
	return extract.Suggestions(body)
}

// Translate translates every keyword concurrently. Results are in keyword
// order.
func (c *Client) Translate(ctx context.Context, keywords []string, opts TranslateOptions) ([]result.Translation, error) {
	if len(keywords) == 0 {
		return nil, ErrEmptyQuery
	}
	for _, k := range keywords {
		if k == "" {
			return nil, ErrEmptyQuery
		}
	}

	token, err := c.tokens.Acquire(ctx, "translate")
	if err != nil {
		return nil, err
	}
	params := url.Values{"vqd": {token}, "query": {"translate"}, "to": {"en"}}
	if opts.To != "" {
		params.Set("to", opts.To)
	}
	if opts.From != "" {
		params.Set("from", opts.From)
	}

	return workpool.Map(ctx, c.pool, keywords, func(ctx context.Context, keyword string) (result.Translation, error) {
		body, err := c.tr.Send(ctx, transport.Request{
			Endpoint:    "translation.js",
			Method:      http.MethodPost,
			URL:         c.ep.Translate,
			Params:      params,
			Body:        []byte(keyword),
			ContentType: "text/plain",
		})
		if err != nil {
			return result.Translation{}, err
		}
		return extract.Translation(body, keyword)
	})
}
