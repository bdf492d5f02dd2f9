package ddgs

import (
	"context"
	"fmt"
	"net/url"

	"github.com/FranksOps/ddgs/internal/extract"
	"github.com/FranksOps/ddgs/internal/geo"
	"github.com/FranksOps/ddgs/internal/transport"
	"github.com/FranksOps/ddgs/pkg/result"
)

// Maps searches for places matching query inside the area opts describes.
// A bounded search subdivides the area until MaxResults places are found.
func (c *Client) Maps(ctx context.Context, query string, opts MapsOptions) ([]result.Place, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	start, radius, err := c.area(ctx, opts)
	if err != nil {
		return nil, err
	}
	token, err := c.tokens.Acquire(ctx, query)
	if err != nil {
		return nil, err
	}
	start = start.Expand(radius)
	c.logger.Debug("maps area", "query", query, "bbox", start.String())

	page := func(ctx context.Context, box geo.BoundingBox) ([]result.Place, error) {
		body, err := c.tr.Send(ctx, transport.Request{
			Endpoint: "local.js",
			URL:      c.ep.Places,
			Params: url.Values{
				"q":           {query},
				"vqd":         {token},
				"tg":          {"maps_places"},
				"rt":          {"D"},
				"mkexp":       {"b"},
				"wiki_info":   {"1"},
				"is_requery":  {"1"},
				"bbox_tl":     {box.TopLeft()},
				"bbox_br":     {box.BottomRight()},
				"strict_bbox": {"1"},
			},
		})
		if err != nil {
			return nil, err
		}
		return extract.Places(body)
	}
	return geo.Search(ctx, c.pool, start, opts.MaxResults, page, c.logger)
}

// area resolves the starting box. Explicit coordinates win over geocoding
// and get a radius of at least one kilometre.
func (c *Client) area(ctx context.Context, opts MapsOptions) (geo.BoundingBox, int, error) {
	radius := opts.Radius
	if opts.Latitude != "" && opts.Longitude != "" {
		lat, err := geo.ParseCoordinate(opts.Latitude)
		if err != nil {
			return geo.BoundingBox{}, 0, fmt.Errorf("ddgs: %w", err)
		}
		lon, err := geo.ParseCoordinate(opts.Longitude)
		if err != nil {
			return geo.BoundingBox{}, 0, fmt.Errorf("ddgs: %w", err)
		}
		if radius == 0 {
			radius = 1
		}
		return geo.Point(lat, lon), radius, nil
	}

	q := geo.Query{
		Place:      opts.Place,
		Street:     opts.Street,
		City:       opts.City,
		County:     opts.County,
		State:      opts.State,
		Country:    opts.Country,
		PostalCode: opts.PostalCode,
	}
	if q.Empty() {
		return geo.BoundingBox{}, 0, ErrNoLocation
	}
	box, err := c.geocoder.Lookup(ctx, q)
	return box, radius, err
}
