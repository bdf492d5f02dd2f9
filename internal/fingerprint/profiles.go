package fingerprint

import (
	"crypto/rand"
	"math/big"
	"net/http"
	"sort"

	utls "github.com/refraction-networking/utls"

	"github.com/FranksOps/ddgs/pkg/useragent"
)

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile

	ProfileChrome100   Profile = "chrome_100"
	ProfileChrome102   Profile = "chrome_102"
	ProfileChrome106   Profile = "chrome_106_shuffle"
	ProfileChrome120   Profile = "chrome_120"
	ProfileChrome131   Profile = "chrome_131"
	ProfileEdge106     Profile = "edge_106"
	ProfileFirefox120  Profile = "firefox_120"
	ProfileSafari16    Profile = "safari_16"
	ProfileSafariIOS14 Profile = "safari_ios_14"
)

type identity struct {
	hello  utls.ClientHelloID
	family useragent.Family
}

var catalog = map[Profile]identity{
	ProfileChrome:      {utls.HelloChrome_Auto, useragent.Chrome},
	ProfileFirefox:     {utls.HelloFirefox_Auto, useragent.Firefox},
	ProfileSafari:      {utls.HelloIOS_Auto, useragent.SafariIOS},
	ProfileGo:          {utls.HelloGolang, ""},
	ProfileRandom:      {utls.HelloRandomizedNoALPN, ""},
	ProfileChrome100:   {utls.HelloChrome_100, useragent.Chrome},
	ProfileChrome102:   {utls.HelloChrome_102, useragent.Chrome},
	ProfileChrome106:   {utls.HelloChrome_106_Shuffle, useragent.Chrome},
	ProfileChrome120:   {utls.HelloChrome_120, useragent.Chrome},
	ProfileChrome131:   {utls.HelloChrome_131, useragent.Chrome},
	ProfileEdge106:     {utls.HelloEdge_106, useragent.Edge},
	ProfileFirefox120:  {utls.HelloFirefox_120, useragent.Firefox},
	ProfileSafari16:    {utls.HelloSafari_16_0, useragent.Safari},
	ProfileSafariIOS14: {utls.HelloIOS_14, useragent.SafariIOS},
}

// Profiles lists every known profile name in lexical order.
func Profiles() []Profile {
	out := make([]Profile, 0, len(catalog))
	for p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Browsers lists the profiles that impersonate a concrete browser, i.e.
// everything except ProfileGo and ProfileRandom.
func Browsers() []Profile {
	var out []Profile
	for _, p := range Profiles() {
		if catalog[p].family != "" {
			out = append(out, p)
		}
	}
	return out
}

// Pick returns a browser profile chosen uniformly at random.
func Pick() Profile {
	browsers := Browsers()
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(browsers))))
	if err != nil {
		return ProfileChrome
	}
	return browsers[n.Int64()]
}

// Known reports whether p names a profile in the catalog.
func Known(p Profile) bool {
	_, ok := catalog[p]
	return ok
}

// UserAgent returns a User-Agent from the profile's browser family. Profiles
// with no family draw from the whole desktop pool.
func UserAgent(p Profile) string {
	id := catalog[p]
	if id.family == "" {
		return useragent.NewPool(nil).GetRandom()
	}
	return useragent.ForFamily(id.family).GetRandom()
}

// Headers returns the browser headers sent alongside the profile's
// User-Agent. Callers own the returned map.
func Headers(p Profile, ua string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", ua)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br, zstd")

	switch catalog[p].family {
	case useragent.Chrome, useragent.Edge:
		h.Set("Sec-Ch-Ua-Mobile", "?0")
		h.Set("Sec-Fetch-Dest", "document")
		h.Set("Sec-Fetch-Mode", "navigate")
		h.Set("Sec-Fetch-Site", "none")
		h.Set("Upgrade-Insecure-Requests", "1")
	case useragent.Firefox:
		h.Set("Accept-Language", "en-US,en;q=0.5")
		h.Set("Sec-Fetch-Dest", "document")
		h.Set("Sec-Fetch-Mode", "navigate")
		h.Set("Upgrade-Insecure-Requests", "1")
	case useragent.Safari, useragent.SafariIOS:
		h.Set("Accept-Encoding", "gzip, deflate, br")
	}
	return h
}
