package extract

import (
	"bytes"

	"github.com/FranksOps/ddgs/pkg/result"
)

// Selectors of the lite backend's page layout.
const (
	liteNoResults = "No more results."
	liteRows      = "table:last-of-type tr"
	liteLink      = "a"
	liteSnippet   = "td.result-snippet"

	// liteRun is the number of table rows one result occupies.
	liteRun = 4
)

// Lite extracts web results from the lite backend's table layout. Rows come
// in runs of four: link and title, snippet, then two rows of metadata. The
// parse is positional; when the link row of a run is unusable the whole run
// is skipped so the next run starts aligned.
func Lite(body []byte) ([]result.Text, error) {
	out := make([]result.Text, 0)
	if bytes.Contains(body, []byte(liteNoResults)) {
		return out, nil
	}
	doc, err := parseHTML("lite", body)
	if err != nil {
		return nil, err
	}

	rows := doc.Find(liteRows)
	var title, href string
	for i := 0; i < rows.Length(); i++ {
		row := rows.Eq(i)
		switch i % liteRun {
		case 0:
			link := row.Find(liteLink).First()
			href, _ = link.Attr("href")
			if filteredLink(href) {
				href = ""
				i += liteRun - 1
				continue
			}
			title = link.Text()
		case 1:
			if href == "" {
				continue
			}
			out = append(out, result.Text{
				Title: Text(title),
				Href:  URL(href),
				Body:  Text(row.Find(liteSnippet).Text()),
			})
		}
	}
	return out, nil
}
