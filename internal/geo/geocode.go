package geo

import (
	"bytes"
	"context"
	"errors"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/FranksOps/ddgs/internal/transport"
	"github.com/FranksOps/ddgs/pkg/fault"
)

// Nominatim is the default geocoding endpoint.
const Nominatim = "https://nominatim.openstreetmap.org/search.php"

var errNoBoundingBox = errors.New("boundingbox missing from geocoder response")

// Sender is the part of transport.Transport the geocoder needs.
type Sender interface {
	Send(ctx context.Context, r transport.Request) ([]byte, error)
}

// Query locates an area either by free-form Place or by structured address
// parts. Place takes precedence when set.
type Query struct {
	Place      string
	Street     string
	City       string
	County     string
	State      string
	Country    string
	PostalCode string
}

// Params renders the query as geocoder parameters.
func (q Query) Params() url.Values {
	v := url.Values{
		"polygon_geojson": {"0"},
		"format":          {"jsonv2"},
	}
	if q.Place != "" {
		v.Set("q", q.Place)
		return v
	}
	for key, val := range map[string]string{
		"street":     q.Street,
		"city":       q.City,
		"county":     q.County,
		"state":      q.State,
		"country":    q.Country,
		"postalcode": q.PostalCode,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}
	return v
}

// Empty reports whether the query names no location at all.
func (q Query) Empty() bool {
	return q == Query{}
}

// Geocoder resolves a Query to the bounding box of its best match.
type Geocoder struct {
	sender   Sender
	endpoint string
}

// NewGeocoder returns a Geocoder; an empty endpoint means Nominatim.
func NewGeocoder(s Sender, endpoint string) *Geocoder {
	if endpoint == "" {
		endpoint = Nominatim
	}
	return &Geocoder{sender: s, endpoint: endpoint}
}

// Lookup returns the normalized bounding box of the first match. An empty
// match list is fault.ErrCoordinatesNotFound.
func (g *Geocoder) Lookup(ctx context.Context, q Query) (BoundingBox, error) {
	body, err := g.sender.Send(ctx, transport.Request{
		Endpoint: "geocode",
		URL:      g.endpoint,
		Params:   q.Params(),
	})
	if err != nil {
		return BoundingBox{}, err
	}
	if bytes.Equal(bytes.TrimSpace(body), []byte("[]")) {
		return BoundingBox{}, fault.New(fault.ErrCoordinatesNotFound, "geocode", g.endpoint, nil)
	}
	if !gjson.ValidBytes(body) {
		return BoundingBox{}, fault.New(fault.ErrMalformedResponse, "geocode", g.endpoint, nil)
	}

	// boundingbox is [south, north, west, east] as strings.
	edges := gjson.GetBytes(body, "0.boundingbox").Array()
	if len(edges) != 4 {
		return BoundingBox{}, fault.New(fault.ErrMalformedResponse, "geocode", g.endpoint, errNoBoundingBox)
	}
	var vals [4]decimal.Decimal
	for i, e := range edges {
		d, err := ParseCoordinate(e.String())
		if err != nil {
			return BoundingBox{}, fault.New(fault.ErrMalformedResponse, "geocode", g.endpoint, err)
		}
		vals[i] = d
	}
	return BoundingBox{North: vals[1], West: vals[2], South: vals[0], East: vals[3]}.Normalize(), nil
}
