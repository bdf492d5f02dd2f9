package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Sample is the part of an HTTP exchange the detectors look at.
type Sample struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Detector examines a response to determine if a bot protection mechanism
// blocked or challenged the request.
type Detector func(s Sample) (detected bool, source string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectDuckDuckGo,
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// Analyze runs the sample through the detectors in order and reports the
// source named by the first one that triggers.
func Analyze(s Sample, detectors []Detector) (source string, detected bool) {
	for _, d := range detectors {
		if ok, src := d(s); ok {
			return src, true
		}
	}
	return "", false
}

func getHeader(headers http.Header, key string) string {
	if vals, ok := headers[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	// Case-insensitive fallback for maps not built through Header.Set
	lowerKey := strings.ToLower(key)
	for k, vals := range headers {
		if strings.ToLower(k) == lowerKey && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// detectDuckDuckGo looks for the anomaly page DuckDuckGo serves instead of
// results when it suspects automation. It can arrive with a 200.
func detectDuckDuckGo(s Sample) (bool, string) {
	if bytes.Contains(s.Body, []byte("anomaly-modal")) ||
		bytes.Contains(s.Body, []byte("bots use DuckDuckGo too")) ||
		bytes.Contains(s.Body, []byte("/anomaly.js?")) {
		return true, "DuckDuckGo"
	}
	return false, ""
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(s Sample) (bool, string) {
	// Status codes 403 or 503 are common for CF challenges
	if s.StatusCode == http.StatusForbidden || s.StatusCode == http.StatusServiceUnavailable {
		server := strings.ToLower(getHeader(s.Headers, "Server"))
		if strings.Contains(server, "cloudflare") {
			return true, "Cloudflare"
		}

		if bytes.Contains(s.Body, []byte("cf-browser-verification")) ||
			bytes.Contains(s.Body, []byte("cloudflare-nginx")) ||
			bytes.Contains(s.Body, []byte("cf-turnstile")) ||
			bytes.Contains(s.Body, []byte("Attention Required! | Cloudflare")) {
			return true, "Cloudflare"
		}
	}
	return false, ""
}

// detectAkamai looks for Akamai Bot Manager signatures.
func detectAkamai(s Sample) (bool, string) {
	if s.StatusCode == http.StatusForbidden {
		server := strings.ToLower(getHeader(s.Headers, "Server"))
		if strings.Contains(server, "akamai") {
			return true, "Akamai"
		}

		// generic "Reference #" block page
		if bytes.Contains(s.Body, []byte("Reference #")) && bytes.Contains(s.Body, []byte("Access Denied")) {
			return true, "Akamai"
		}
	}
	return false, ""
}

func detectDataDome(s Sample) (bool, string) {
	if s.StatusCode == http.StatusForbidden {
		server := strings.ToLower(getHeader(s.Headers, "Server"))
		if strings.Contains(server, "datadome") {
			return true, "DataDome"
		}

		if getHeader(s.Headers, "X-DataDome") != "" || getHeader(s.Headers, "X-DataDome-Response") != "" {
			return true, "DataDome"
		}

		if bytes.Contains(s.Body, []byte("geo.captcha-delivery.com")) || bytes.Contains(s.Body, []byte("datadome")) {
			return true, "DataDome"
		}
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(s Sample) (bool, string) {
	if s.StatusCode == http.StatusForbidden {
		if getHeader(s.Headers, "X-Px-Captcha") != "" {
			return true, "PerimeterX"
		}

		if bytes.Contains(s.Body, []byte("client.perimeterx.net")) ||
			bytes.Contains(s.Body, []byte("px-captcha")) ||
			bytes.Contains(s.Body, []byte("_pxBlock")) {
			return true, "PerimeterX"
		}
	}
	return false, ""
}
