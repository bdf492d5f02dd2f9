package ddgs

// Region is a provider region code such as "us-en" or "wt-wt".
type Region string

// WorldWide is the default region.
const WorldWide Region = "wt-wt"

func (r Region) orDefault() string {
	if r == "" {
		return string(WorldWide)
	}
	return string(r)
}

// SafeSearch is the content filtering level.
type SafeSearch string

const (
	SafeSearchOn       SafeSearch = "on"
	SafeSearchModerate SafeSearch = "moderate"
	SafeSearchOff      SafeSearch = "off"
)

func (s SafeSearch) orDefault() SafeSearch {
	switch s {
	case SafeSearchOn, SafeSearchOff:
		return s
	default:
		return SafeSearchModerate
	}
}

// TimeLimit restricts results by age. Text, video and news searches take
// the short forms; image search takes the long ones.
type TimeLimit string

const (
	Day   TimeLimit = "d"
	Week  TimeLimit = "w"
	Month TimeLimit = "m"
	Year  TimeLimit = "y"

	ImagesDay   TimeLimit = "Day"
	ImagesWeek  TimeLimit = "Week"
	ImagesMonth TimeLimit = "Month"
	ImagesYear  TimeLimit = "Year"
)

// Backend selects the web search implementation.
type Backend string

const (
	// BackendAPI parses the JSON results endpoint. It is the default.
	BackendAPI Backend = "api"
	// BackendHTML scrapes the HTML endpoint.
	BackendHTML Backend = "html"
	// BackendLite scrapes the lite endpoint's table layout.
	BackendLite Backend = "lite"
)

// Backends lists the valid Backend values.
func Backends() []Backend {
	return []Backend{BackendAPI, BackendHTML, BackendLite}
}

// TextOptions narrows a web search. MaxResults of zero returns the first
// page only.
type TextOptions struct {
	Region     Region
	SafeSearch SafeSearch
	TimeLimit  TimeLimit
	Backend    Backend
	MaxResults int
}

// ImagesOptions narrows an image search.
type ImagesOptions struct {
	Region     Region
	SafeSearch SafeSearch
	TimeLimit  TimeLimit
	// Size is Small, Medium, Large or Wallpaper.
	Size string
	// Color is color, Monochrome or a color name such as Red.
	Color string
	// Type is photo, clipart, gif, transparent or line.
	Type string
	// Layout is Square, Tall or Wide.
	Layout string
	// License is any, Public, Share, ShareCommercially, Modify or
	// ModifyCommercially.
	License    string
	MaxResults int
}

// VideosOptions narrows a video search.
type VideosOptions struct {
	Region     Region
	SafeSearch SafeSearch
	TimeLimit  TimeLimit
	// Resolution is high or standart.
	Resolution string
	// Duration is short, medium or long.
	Duration string
	// License is creativeCommon or youtube.
	License    string
	MaxResults int
}

// NewsOptions narrows a news search.
type NewsOptions struct {
	Region     Region
	SafeSearch SafeSearch
	TimeLimit  TimeLimit
	MaxResults int
}

// MapsOptions locates the area of a maps search. Latitude and Longitude,
// when both set, skip geocoding; otherwise Place or the address parts are
// geocoded.
type MapsOptions struct {
	Place      string
	Street     string
	City       string
	County     string
	State      string
	Country    string
	PostalCode string
	Latitude   string
	Longitude  string
	// Radius expands the area by this many kilometres on every side.
	Radius     int
	MaxResults int
}

// TranslateOptions selects the languages of a translation. An empty From
// lets the provider detect it; an empty To means English.
type TranslateOptions struct {
	From string
	To   string
}
