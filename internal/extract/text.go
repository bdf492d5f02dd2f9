package extract

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/FranksOps/ddgs/pkg/result"
)

var (
	errInvalidJSON = errors.New("invalid json")
	errNoPayload   = errors.New("result payload not found")
)

const (
	textPreamble  = "DDG.pageLayout.load('d',"
	textPostamble = ");DDG.duckbar.load("

	// googleFallback prefixes the link the provider appends when it has
	// nothing better to offer.
	googleFallback = "http://www.google.com/search?q="
	adRedirector   = "https://duckduckgo.com/y.js?ad_domain"
)

// TextJSON extracts web results from the script page served by the JSON
// text backend. The result array sits between a fixed preamble and
// postamble; rows without a link, the fallback link for query, and rows
// whose snippet normalizes to nothing are skipped. A link is claimed by its
// first row even when that row is dropped for an empty snippet, so a later
// row repeating it is skipped too.
func TextJSON(body []byte, query string) ([]result.Text, error) {
	start := bytes.Index(body, []byte(textPreamble))
	if start < 0 {
		return nil, malformed("text", errNoPayload)
	}
	start += len(textPreamble)
	end := bytes.Index(body[start:], []byte(textPostamble))
	if end < 0 {
		return nil, malformed("text", errNoPayload)
	}

	data := body[start : start+end]
	if !gjson.ValidBytes(data) {
		return nil, malformed("text", errInvalidJSON)
	}
	rows := gjson.ParseBytes(data)
	if !rows.IsArray() {
		return nil, malformed("text", errInvalidJSON)
	}

	fallback := googleFallback + query
	out := make([]result.Text, 0)
	seen := make(map[string]struct{})
	rows.ForEach(func(_, row gjson.Result) bool {
		href := row.Get("u").String()
		if href == "" || href == fallback {
			return true
		}
		if _, dup := seen[href]; dup {
			return true
		}
		seen[href] = struct{}{}
		snippet := Text(row.Get("a").String())
		if snippet == "" {
			return true
		}
		out = append(out, result.Text{
			Title: Text(row.Get("t").String()),
			Href:  URL(href),
			Body:  snippet,
		})
		return true
	})
	return out, nil
}

// filteredLink reports links that are never results.
func filteredLink(href string) bool {
	return href == "" ||
		strings.HasPrefix(href, googleFallback) ||
		strings.HasPrefix(href, adRedirector)
}

func parseHTML(op string, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, malformed(op, err)
	}
	return doc, nil
}
