// Package serp implements the interchangeable web search backends. Each
// backend pages through its own endpoint and extracts normalized text
// results; all of them share the transport, token acquirer and worker pool
// of the client that owns them.
package serp

import (
	"context"
	"strings"

	"github.com/FranksOps/ddgs/internal/transport"
	"github.com/FranksOps/ddgs/internal/workpool"
	"github.com/FranksOps/ddgs/pkg/result"
)

// Options narrows a web search.
type Options struct {
	// Region is a provider region code such as "us-en"; empty means "wt-wt".
	Region string
	// SafeSearch is "on", "moderate" or "off"; empty means "moderate".
	SafeSearch string
	// TimeLimit is "d", "w", "m" or "y"; empty means any time.
	TimeLimit string
	// MaxResults bounds the result count; zero or below fetches the first
	// page only.
	MaxResults int
}

func (o Options) region() string {
	if o.Region == "" {
		return "wt-wt"
	}
	return o.Region
}

// Provider searches the web for a query.
type Provider interface {
	Search(ctx context.Context, query string, opts Options) ([]result.Text, error)
}

// Sender performs a request and returns the body of a successful response.
type Sender interface {
	Send(ctx context.Context, r transport.Request) ([]byte, error)
}

// Tokens issues the per-query anti-automation token.
type Tokens interface {
	Acquire(ctx context.Context, query string) (string, error)
}

// Deps are shared by every backend.
type Deps struct {
	Sender Sender
	Tokens Tokens
	// Pool runs the pages of one search; nil means workpool.Default.
	Pool *workpool.Pool
}

// bingMarket turns "us-en" into "en-US".
func bingMarket(region string) string {
	if len(region) < 5 {
		return region
	}
	return region[3:] + "-" + strings.ToUpper(region[:2])
}
