package extract

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/ddgs/pkg/result"
)

// Selectors of the HTML backend's page layout.
const (
	htmlNoResults = "No  results."
	htmlContainer = "div"
	htmlHeading   = "h2"
	htmlTitle     = "a"
	htmlLink      = "a"
)

// HTML extracts web results from the HTML backend. A result is a div with an
// h2 child; its first direct link carries the href and every direct link
// contributes to the snippet.
func HTML(body []byte) ([]result.Text, error) {
	out := make([]result.Text, 0)
	if bytes.Contains(body, []byte(htmlNoResults)) {
		return out, nil
	}
	doc, err := parseHTML("html", body)
	if err != nil {
		return nil, err
	}

	doc.Find(htmlContainer).Each(func(_ int, s *goquery.Selection) {
		heading := s.ChildrenFiltered(htmlHeading)
		if heading.Length() == 0 {
			return
		}
		links := s.ChildrenFiltered(htmlLink)
		href, _ := links.First().Attr("href")
		if filteredLink(href) {
			return
		}
		out = append(out, result.Text{
			Title: Text(heading.First().ChildrenFiltered(htmlTitle).First().Text()),
			Href:  URL(href),
			Body:  Text(links.Text()),
		})
	})
	return out, nil
}
