package extract

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/FranksOps/ddgs/pkg/result"
)

// iconRoot prefixes the site-relative icon paths of instant answers.
const iconRoot = "https://duckduckgo.com"

// Images decodes an image search page. Rows without an image URL are
// skipped.
func Images(body []byte) ([]result.Image, error) {
	root, err := parseJSON("images", body)
	if err != nil {
		return nil, err
	}
	out := make([]result.Image, 0)
	root.Get("results").ForEach(func(_, row gjson.Result) bool {
		image := row.Get("image").String()
		if image == "" {
			return true
		}
		out = append(out, result.Image{
			Title:     row.Get("title").String(),
			Image:     URL(image),
			Thumbnail: URL(row.Get("thumbnail").String()),
			URL:       URL(row.Get("url").String()),
			Height:    int(row.Get("height").Int()),
			Width:     int(row.Get("width").Int()),
			Source:    row.Get("source").String(),
		})
		return true
	})
	return out, nil
}

// Videos decodes a video search page. Rows are passed through field by
// field; rows without a content URL are skipped.
func Videos(body []byte) ([]result.Video, error) {
	root, err := parseJSON("videos", body)
	if err != nil {
		return nil, err
	}
	out := make([]result.Video, 0)
	root.Get("results").ForEach(func(_, row gjson.Result) bool {
		content := row.Get("content").String()
		if content == "" {
			return true
		}
		images := row.Get("images")
		out = append(out, result.Video{
			Content:     content,
			Title:       row.Get("title").String(),
			Description: row.Get("description").String(),
			Duration:    row.Get("duration").String(),
			EmbedHTML:   row.Get("embed_html").String(),
			EmbedURL:    row.Get("embed_url").String(),
			ImageToken:  row.Get("image_token").String(),
			Images: result.VideoImages{
				Large:  images.Get("large").String(),
				Medium: images.Get("medium").String(),
				Motion: images.Get("motion").String(),
				Small:  images.Get("small").String(),
			},
			Provider:  row.Get("provider").String(),
			Published: row.Get("published").String(),
			Publisher: row.Get("publisher").String(),
			Uploader:  row.Get("uploader").String(),
			ViewCount: row.Get("statistics.viewCount").Int(),
		})
		return true
	})
	return out, nil
}

// News decodes a news search page. The provider's unix timestamp becomes an
// RFC 3339 date in UTC.
func News(body []byte) ([]result.News, error) {
	root, err := parseJSON("news", body)
	if err != nil {
		return nil, err
	}
	out := make([]result.News, 0)
	root.Get("results").ForEach(func(_, row gjson.Result) bool {
		link := row.Get("url").String()
		if link == "" {
			return true
		}
		var date string
		if ts := row.Get("date"); ts.Exists() {
			date = time.Unix(ts.Int(), 0).UTC().Format(time.RFC3339)
		}
		out = append(out, result.News{
			Date:   date,
			Title:  row.Get("title").String(),
			Body:   Text(row.Get("excerpt").String()),
			URL:    URL(link),
			Image:  URL(row.Get("image").String()),
			Source: row.Get("source").String(),
		})
		return true
	})
	return out, nil
}

// Places decodes one bounding-box page of the local search endpoint.
func Places(body []byte) ([]result.Place, error) {
	root, err := parseJSON("maps", body)
	if err != nil {
		return nil, err
	}
	out := make([]result.Place, 0)
	root.Get("results").ForEach(func(_, row gjson.Result) bool {
		name := row.Get("name").String()
		if name == "" {
			return true
		}
		out = append(out, result.Place{
			Title:       name,
			Address:     row.Get("address").String(),
			CountryCode: row.Get("country_code").String(),
			URL:         URL(row.Get("website").String()),
			Phone:       row.Get("phone").String(),
			Latitude:    row.Get("coordinates.latitude").Float(),
			Longitude:   row.Get("coordinates.longitude").Float(),
			Source:      URL(row.Get("url").String()),
			Image:       row.Get("embed.image").String(),
			Desc:        row.Get("embed.description").String(),
			Hours:       hours(row.Get("hours")),
			Category:    row.Get("ddg_category").String(),
			Facebook:    prefixed("https://www.facebook.com/profile.php?id=", row.Get("facebook_id")),
			Instagram:   prefixed("https://www.instagram.com/", row.Get("instagram_id")),
			Twitter:     prefixed("https://twitter.com/", row.Get("twitter_id")),
		})
		return true
	})
	return out, nil
}

// hours keeps structured opening hours as their raw JSON.
func hours(v gjson.Result) string {
	if v.IsObject() || v.IsArray() {
		return v.Raw
	}
	return v.String()
}

func prefixed(prefix string, v gjson.Result) string {
	if s := v.String(); s != "" {
		return prefix + s
	}
	return ""
}

// Abstract decodes the abstract of an instant-answer response. ok is false
// when the provider has no abstract for the query.
func Abstract(body []byte) (a result.Answer, ok bool, err error) {
	root, err := parseJSON("answers", body)
	if err != nil {
		return result.Answer{}, false, err
	}
	text := root.Get("AbstractText").String()
	if text == "" {
		return result.Answer{}, false, nil
	}
	return result.Answer{Text: text, URL: root.Get("AbstractURL").String()}, true, nil
}

// RelatedTopics decodes the related topics of an instant-answer response.
// Grouped topics are flattened with the group name as Topic.
func RelatedTopics(body []byte) ([]result.Answer, error) {
	root, err := parseJSON("answers", body)
	if err != nil {
		return nil, err
	}
	out := make([]result.Answer, 0)
	root.Get("RelatedTopics").ForEach(func(_, row gjson.Result) bool {
		name := row.Get("Name").String()
		if name == "" {
			out = append(out, topic(row, ""))
			return true
		}
		row.Get("Topics").ForEach(func(_, sub gjson.Result) bool {
			out = append(out, topic(sub, name))
			return true
		})
		return true
	})
	return out, nil
}

func topic(row gjson.Result, name string) result.Answer {
	var icon string
	if p := row.Get("Icon.URL").String(); p != "" {
		icon = iconRoot + p
	}
	return result.Answer{
		Icon:  icon,
		Text:  row.Get("Text").String(),
		Topic: name,
		URL:   row.Get("FirstURL").String(),
	}
}

// Suggestions decodes an autocomplete response.
func Suggestions(body []byte) ([]result.Suggestion, error) {
	root, err := parseJSON("suggestions", body)
	if err != nil {
		return nil, err
	}
	out := make([]result.Suggestion, 0)
	root.ForEach(func(_, row gjson.Result) bool {
		if phrase := row.Get("phrase").String(); phrase != "" {
			out = append(out, result.Suggestion{Phrase: phrase})
		}
		return true
	})
	return out, nil
}

// Translation decodes the translation of original.
func Translation(body []byte, original string) (result.Translation, error) {
	root, err := parseJSON("translate", body)
	if err != nil {
		return result.Translation{}, err
	}
	if !root.IsObject() {
		return result.Translation{}, malformed("translate", errInvalidJSON)
	}
	return result.Translation{
		DetectedLanguage: root.Get("detected_language").String(),
		Translated:       root.Get("translated").String(),
		Original:         original,
	}, nil
}
