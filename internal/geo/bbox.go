// Package geo partitions a map search area into bounding boxes and drives
// the round-based subdivision search over them.
package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// DegreesPerKM approximates one kilometre of latitude in degrees.
	DegreesPerKM = decimal.RequireFromString("0.008983")
	// SplitThreshold is the diagonal span, in degrees, above which a box is
	// subdivided for the next round.
	SplitThreshold = 1.0

	two = decimal.NewFromInt(2)
)

// BoundingBox is a lat/lon rectangle. Arithmetic is decimal so that
// quadrants tile their parent exactly.
type BoundingBox struct {
	North decimal.Decimal
	West  decimal.Decimal
	South decimal.Decimal
	East  decimal.Decimal
}

// Point returns the degenerate box at lat, lon.
func Point(lat, lon decimal.Decimal) BoundingBox {
	return BoundingBox{North: lat, West: lon, South: lat, East: lon}
}

// ParseCoordinate parses a latitude or longitude, accepting a decimal comma.
func ParseCoordinate(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse coordinate %q: %w", s, err)
	}
	return d, nil
}

// Normalize orders the edges so that North >= South and East >= West.
func (b BoundingBox) Normalize() BoundingBox {
	if b.North.LessThan(b.South) {
		b.North, b.South = b.South, b.North
	}
	if b.East.LessThan(b.West) {
		b.East, b.West = b.West, b.East
	}
	return b
}

// Expand grows every side by radiusKM kilometres.
func (b BoundingBox) Expand(radiusKM int) BoundingBox {
	d := DegreesPerKM.Mul(decimal.NewFromInt(int64(radiusKM)))
	b = b.Normalize()
	return BoundingBox{
		North: b.North.Add(d),
		West:  b.West.Sub(d),
		South: b.South.Sub(d),
		East:  b.East.Add(d),
	}
}

// Diagonal returns the span between opposite corners in degrees.
func (b BoundingBox) Diagonal() float64 {
	dlat := b.North.Sub(b.South).InexactFloat64()
	dlon := b.East.Sub(b.West).InexactFloat64()
	return math.Hypot(dlat, dlon)
}

// NeedsSplit reports whether the box exceeds SplitThreshold.
func (b BoundingBox) NeedsSplit() bool {
	return b.Diagonal() > SplitThreshold
}

// Split divides the box at its midpoints into four quadrants, ordered
// north-west, north-east, south-west, south-east.
func (b BoundingBox) Split() []BoundingBox {
	b = b.Normalize()
	midLat := b.North.Add(b.South).Div(two)
	midLon := b.West.Add(b.East).Div(two)
	return []BoundingBox{
		{North: b.North, West: b.West, South: midLat, East: midLon},
		{North: b.North, West: midLon, South: midLat, East: b.East},
		{North: midLat, West: b.West, South: b.South, East: midLon},
		{North: midLat, West: midLon, South: b.South, East: b.East},
	}
}

// TopLeft formats the north-west corner as "lat,lon".
func (b BoundingBox) TopLeft() string {
	return b.North.String() + "," + b.West.String()
}

// BottomRight formats the south-east corner as "lat,lon".
func (b BoundingBox) BottomRight() string {
	return b.South.String() + "," + b.East.String()
}

func (b BoundingBox) String() string {
	return "[" + b.TopLeft() + " " + b.BottomRight() + "]"
}
