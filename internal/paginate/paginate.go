// Package paginate fans one search out over its result pages and merges the
// pages back into a single ordered, deduplicated list.
package paginate

import (
	"context"

	"github.com/FranksOps/ddgs/internal/metrics"
	"github.com/FranksOps/ddgs/internal/workpool"
	"github.com/FranksOps/ddgs/pkg/result"
)

// Plan describes how a backend pages: the first page is always offset 0,
// further pages start at First and advance by Stride while below the
// requested maximum, which is clamped to Ceiling.
type Plan struct {
	Ceiling int
	First   int
	Stride  int
}

// Per-backend plans.
var (
	Text   = Plan{Ceiling: 2023, First: 23, Stride: 50}
	Images = Plan{Ceiling: 500, First: 100, Stride: 100}
	Videos = Plan{Ceiling: 400, First: 60, Stride: 60}
	News   = Plan{Ceiling: 120, First: 30, Stride: 30}
)

// Clamp bounds max by the plan's ceiling. Values of zero or below mean
// "first page only" and are returned unchanged.
func (p Plan) Clamp(max int) int {
	if max > p.Ceiling {
		return p.Ceiling
	}
	return max
}

// Offsets returns the page offsets to fetch for max results.
func (p Plan) Offsets(max int) []int {
	offsets := []int{0}
	max = p.Clamp(max)
	if max <= 0 || p.Stride <= 0 {
		return offsets
	}
	for s := p.First; s < max; s += p.Stride {
		offsets = append(offsets, s)
	}
	return offsets
}

// PageFunc fetches and extracts the page at offset.
type PageFunc[T any] func(ctx context.Context, offset int) ([]T, error)

// Fetch runs page for every offset of plan on pool. Pages are merged in
// offset order, the first occurrence of each key wins, and the merged list is
// truncated to the clamped max. Any page failure fails the whole call.
func Fetch[T result.Keyed](ctx context.Context, pool *workpool.Pool, kind string, plan Plan, max int, page PageFunc[T]) ([]T, error) {
	offsets := plan.Offsets(max)
	pages, err := workpool.Map(ctx, pool, offsets, func(ctx context.Context, offset int) ([]T, error) {
		items, err := page(ctx, offset)
		if err == nil {
			metrics.PagesTotal.WithLabelValues(kind).Inc()
		}
		return items, err
	})
	if err != nil {
		return nil, err
	}
	return Truncate(Merge(pages...), plan.Clamp(max)), nil
}

// Merge concatenates pages in order, keeping the first record seen for each
// key.
func Merge[T result.Keyed](pages ...[]T) []T {
	seen := make(map[string]struct{})
	out := make([]T, 0)
	for _, items := range pages {
		for _, item := range items {
			k := item.Key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// Truncate bounds items to max; max of zero or below leaves items whole.
func Truncate[T any](items []T, max int) []T {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}
