// Package result holds the normalized records returned by each search kind.
//
// Records are plain values and are never mutated after an extractor builds
// them. Each kind exposes Key, the identity used to drop duplicates across
// pages of one search call.
package result

// Keyed is implemented by every record that can be deduplicated.
type Keyed interface {
	Key() string
}

// Text is a web search hit from any of the text backends.
type Text struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

func (t Text) Key() string { return t.Href }

// Image is an image search hit.
type Image struct {
	Title     string `json:"title"`
	Image     string `json:"image"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url"`
	Height    int    `json:"height"`
	Width     int    `json:"width"`
	Source    string `json:"source"`
}

func (i Image) Key() string { return i.Image }

// VideoImages are the preview images attached to a video.
type VideoImages struct {
	Large  string `json:"large"`
	Medium string `json:"medium"`
	Motion string `json:"motion"`
	Small  string `json:"small"`
}

// Video is a video search hit.
type Video struct {
	Content     string      `json:"content"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Duration    string      `json:"duration"`
	EmbedHTML   string      `json:"embed_html"`
	EmbedURL    string      `json:"embed_url"`
	ImageToken  string      `json:"image_token"`
	Images      VideoImages `json:"images"`
	Provider    string      `json:"provider"`
	Published   string      `json:"published"`
	Publisher   string      `json:"publisher"`
	Uploader    string      `json:"uploader"`
	ViewCount   int64       `json:"view_count"`
}

func (v Video) Key() string { return v.Content }

// News is a news search hit. Date is RFC 3339 in UTC.
type News struct {
	Date   string `json:"date"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"url"`
	Image  string `json:"image"`
	Source string `json:"source"`
}

func (n News) Key() string { return n.URL }

// Place is a maps search hit.
type Place struct {
	Title       string  `json:"title"`
	Address     string  `json:"address"`
	CountryCode string  `json:"country_code"`
	URL         string  `json:"url"`
	Phone       string  `json:"phone"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Source      string  `json:"source"`
	Image       string  `json:"image"`
	Desc        string  `json:"desc"`
	Hours       string  `json:"hours"`
	Category    string  `json:"category"`
	Facebook    string  `json:"facebook"`
	Instagram   string  `json:"instagram"`
	Twitter     string  `json:"twitter"`
}

// Key is the name+address composite; two branches of a chain at different
// addresses are distinct places.
func (p Place) Key() string { return p.Title + " " + p.Address }

// Answer is an instant answer or related topic.
type Answer struct {
	Icon  string `json:"icon"`
	Text  string `json:"text"`
	Topic string `json:"topic"`
	URL   string `json:"url"`
}

func (a Answer) Key() string { return a.URL }

// Suggestion is an autocomplete phrase.
type Suggestion struct {
	Phrase string `json:"phrase"`
}

func (s Suggestion) Key() string { return s.Phrase }

// Translation is the translation of a single keyword.
type Translation struct {
	DetectedLanguage string `json:"detected_language"`
	Translated       string `json:"translated"`
	Original         string `json:"original"`
}

func (t Translation) Key() string { return t.Original }
