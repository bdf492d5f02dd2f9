// Package vqd obtains the short-lived anti-automation token most provider
// endpoints require. A token is bound to the query text it was issued for.
package vqd

import (
	"bytes"
	"context"
	"errors"
	"net/url"

	"github.com/FranksOps/ddgs/internal/transport"
	"github.com/FranksOps/ddgs/pkg/fault"
)

// Root is the endpoint that issues tokens.
const Root = "https://duckduckgo.com"

// ErrNotFound is the cause attached when a page carries no token.
var ErrNotFound = errors.New("vqd not found in response")

// Sender is the part of transport.Transport the acquirer needs.
type Sender interface {
	Send(ctx context.Context, r transport.Request) ([]byte, error)
}

// Acquirer fetches tokens through a Sender.
type Acquirer struct {
	sender Sender
	root   string
}

// New returns an Acquirer posting to root; an empty root means Root.
func New(s Sender, root string) *Acquirer {
	if root == "" {
		root = Root
	}
	return &Acquirer{sender: s, root: root}
}

// Acquire posts the query to the root endpoint and extracts the token from
// the page. Transport failures are returned as they are; a page without a
// token is fault.ErrMalformedResponse.
func (a *Acquirer) Acquire(ctx context.Context, query string) (string, error) {
	body, err := a.sender.Send(ctx, transport.Request{
		Endpoint: "vqd",
		URL:      a.root,
		Form:     url.Values{"q": {query}},
	})
	if err != nil {
		return "", err
	}

	token, ok := Extract(body)
	if !ok {
		return "", fault.New(fault.ErrMalformedResponse, "vqd", a.root, ErrNotFound)
	}
	return token, nil
}

// patterns are tried in order; each is a prefix and the byte that ends the
// token.
var patterns = []struct {
	prefix []byte
	end    byte
}{
	{[]byte(`vqd="`), '"'},
	{[]byte(`vqd=`), '&'},
	{[]byte(`vqd='`), '\''},
}

// Extract finds the token embedded in a page. The first pattern that
// matches wins; the token is returned unmodified.
func Extract(body []byte) (string, bool) {
	for _, p := range patterns {
		start := bytes.Index(body, p.prefix)
		if start < 0 {
			continue
		}
		rest := body[start+len(p.prefix):]
		if len(rest) > 0 && (rest[0] == '"' || rest[0] == '\'') {
			// quoted form, left to its own pattern
			continue
		}
		end := bytes.IndexByte(rest, p.end)
		if end <= 0 {
			continue
		}
		return string(rest[:end]), true
	}
	return "", false
}
