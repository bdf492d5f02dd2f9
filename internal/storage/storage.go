package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Exchange is the audit record of one request sent to the provider. It
// carries what was asked and how the provider answered, never the result
// payload itself.
type Exchange struct {
	ID           string              `json:"id"`
	Endpoint     string              `json:"endpoint"` // e.g. "d.js", "html", "vqd"
	Method       string              `json:"method"`
	URL          string              `json:"url"`
	StatusCode   int                 `json:"status_code"`
	Headers      map[string][]string `json:"headers"` // response headers
	BodySize     int64               `json:"body_size"`
	Duration     time.Duration       `json:"duration"`
	Profile      string              `json:"profile"`
	Proxy        string              `json:"proxy,omitempty"`
	DetectedBot  bool                `json:"detected_bot"`
	DetectionSrc string              `json:"detection_src,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	Error        string              `json:"error,omitempty"` // non-empty if the exchange failed
}

// NewID returns a fresh exchange id.
func NewID() string {
	return uuid.NewString()
}

// Filter allows querying for specific exchanges.
type Filter struct {
	Endpoint    string
	URL         string
	StatusCode  int
	DetectedBot *bool
	Failed      *bool
	Since       *time.Time
	Limit       int
	Offset      int
}

// Match reports whether e passes every condition set on the filter. Limit
// and Offset are not conditions.
func (f Filter) Match(e *Exchange) bool {
	switch {
	case f.Endpoint != "" && e.Endpoint != f.Endpoint:
		return false
	case f.URL != "" && e.URL != f.URL:
		return false
	case f.StatusCode != 0 && e.StatusCode != f.StatusCode:
		return false
	case f.DetectedBot != nil && e.DetectedBot != *f.DetectedBot:
		return false
	case f.Failed != nil && (e.Error != "") != *f.Failed:
		return false
	case f.Since != nil && e.CreatedAt.Before(*f.Since):
		return false
	}
	return true
}

// Window orders matched exchanges newest first and applies Offset and Limit.
// File backends filter in memory and use it to mirror what the SQL backends
// get from ORDER BY/LIMIT/OFFSET.
func (f Filter) Window(matched []*Exchange) []*Exchange {
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []*Exchange{}
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched
}

// Dialect describes the bind syntax of a SQL driver.
type Dialect struct {
	// Placeholder maps a 1-based argument position to a bind marker.
	Placeholder func(n int) string
	// Unbounded is the LIMIT value meaning "no limit", needed when only
	// an OFFSET is requested.
	Unbounded any
}

var (
	SQLite   = Dialect{Placeholder: func(int) string { return "?" }, Unbounded: -1}
	Postgres = Dialect{Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }, Unbounded: nil}
)

// SQL renders the filter as a WHERE/ORDER/LIMIT/OFFSET suffix.
func (f Filter) SQL(d Dialect) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	cond := func(expr string, v any) {
		args = append(args, v)
		fmt.Fprintf(&sb, " AND %s %s", expr, d.Placeholder(len(args)))
	}

	sb.WriteString(" WHERE 1=1")
	if f.Endpoint != "" {
		cond("endpoint =", f.Endpoint)
	}
	if f.URL != "" {
		cond("url =", f.URL)
	}
	if f.StatusCode != 0 {
		cond("status_code =", f.StatusCode)
	}
	if f.DetectedBot != nil {
		cond("detected_bot =", *f.DetectedBot)
	}
	if f.Failed != nil {
		if *f.Failed {
			sb.WriteString(" AND error <> ''")
		} else {
			sb.WriteString(" AND error = ''")
		}
	}
	if f.Since != nil {
		cond("created_at >=", *f.Since)
	}

	sb.WriteString(" ORDER BY created_at DESC")

	switch {
	case f.Limit > 0:
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT %s", d.Placeholder(len(args)))
	case f.Offset > 0:
		// SQLite rejects OFFSET without LIMIT
		args = append(args, d.Unbounded)
		fmt.Fprintf(&sb, " LIMIT %s", d.Placeholder(len(args)))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&sb, " OFFSET %s", d.Placeholder(len(args)))
	}
	return sb.String(), args
}

// Backend defines the interface for storing and querying exchanges.
type Backend interface {
	Save(ctx context.Context, e *Exchange) error
	Query(ctx context.Context, filter Filter) ([]*Exchange, error)
	Close() error
}
