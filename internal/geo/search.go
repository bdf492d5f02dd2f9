package geo

import (
	"context"
	"log/slog"

	"github.com/FranksOps/ddgs/internal/metrics"
	"github.com/FranksOps/ddgs/internal/paginate"
	"github.com/FranksOps/ddgs/internal/workpool"
	"github.com/FranksOps/ddgs/pkg/result"
)

// PageFunc fetches the places inside one box.
type PageFunc func(ctx context.Context, box BoundingBox) ([]result.Place, error)

// Search runs rounds over a shrinking grid of boxes starting from start.
// Every box of a round is fetched concurrently on pool; boxes wider than
// SplitThreshold contribute their quadrants to the next round. The search
// ends when max results are collected, a round adds nothing new, or no boxes
// remain. max of zero or below runs exactly one round. A failed page fails
// the whole search.
func Search(ctx context.Context, pool *workpool.Pool, start BoundingBox, max int, page PageFunc, logger *slog.Logger) ([]result.Place, error) {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]struct{})
	out := make([]result.Place, 0)
	work := []BoundingBox{start.Normalize()}

	for round := 1; len(work) > 0; round++ {
		pages, err := workpool.Map(ctx, pool, work, func(ctx context.Context, box BoundingBox) ([]result.Place, error) {
			places, err := page(ctx, box)
			if err == nil {
				metrics.PagesTotal.WithLabelValues("maps").Inc()
			}
			return places, err
		})
		if err != nil {
			return nil, err
		}

		var next []BoundingBox
		for _, box := range work {
			if box.NeedsSplit() {
				next = append(next, box.Split()...)
			}
		}

		added := 0
		for _, places := range pages {
			for _, p := range places {
				k := p.Key()
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				out = append(out, p)
				added++
			}
		}
		logger.Debug("maps round complete", "round", round, "boxes", len(work), "added", added, "total", len(out))

		if max <= 0 || len(out) >= max || added == 0 {
			break
		}
		work = next
	}
	return paginate.Truncate(out, max), nil
}
