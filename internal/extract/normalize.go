// Package extract turns provider response bodies into result records.
//
// Every function here is pure: the same bytes always produce the same
// records, and nothing is retained between calls. Deduplication across pages
// is the caller's concern.
package extract

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/unicode/norm"

	"github.com/FranksOps/ddgs/pkg/fault"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Text strips markup from a snippet, decodes HTML entities, applies NFC
// normalization and collapses runs of whitespace.
func Text(raw string) string {
	if raw == "" {
		return ""
	}
	s := tagPattern.ReplaceAllString(raw, "")
	s = html.UnescapeString(s)
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// URL unwraps a duckduckgo.com/l/?uddg= redirector, replaces spaces with
// '+' and percent-decodes the result. A value that cannot be decoded is
// returned with only the space substitution applied.
func URL(raw string) string {
	if raw == "" {
		return ""
	}
	if target, ok := redirectTarget(raw); ok {
		raw = target
	}
	s := strings.ReplaceAll(raw, " ", "+")
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}

// redirectTarget returns the still-encoded uddg parameter of a redirector
// link so that URL decodes it exactly once.
func redirectTarget(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Path != "/l/" || !strings.HasSuffix(u.Hostname(), "duckduckgo.com") {
		return "", false
	}
	for _, kv := range strings.Split(u.RawQuery, "&") {
		if v, ok := strings.CutPrefix(kv, "uddg="); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// malformed wraps cause as fault.ErrMalformedResponse for op.
func malformed(op string, cause error) error {
	return fault.New(fault.ErrMalformedResponse, op, "", cause)
}

// parseJSON validates body and returns its root value.
func parseJSON(op string, body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, malformed(op, errInvalidJSON)
	}
	return gjson.ParseBytes(body), nil
}
