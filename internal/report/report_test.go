package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/FranksOps/ddgs/internal/storage"
)

func TestGenerateSummary(t *testing.T) {
	now := time.Now()

	exchanges := []*storage.Exchange{
		{
			Endpoint:   "d.js",
			StatusCode: 200,
			BodySize:   3,
			Duration:   100 * time.Millisecond,
			CreatedAt:  now,
		},
		{
			Endpoint:     "d.js",
			StatusCode:   403,
			BodySize:     4,
			Duration:     300 * time.Millisecond,
			CreatedAt:    now.Add(1 * time.Second),
			DetectedBot:  true,
			DetectionSrc: "Cloudflare",
			Error:        "d.js: rate limited",
		},
		{
			Endpoint:  "vqd",
			CreatedAt: now.Add(2 * time.Second),
			Duration:  time.Second,
			Error:     "vqd: timeout",
		},
	}

	summary := GenerateSummary(exchanges)

	if summary.TotalRequests != 3 {
		t.Errorf("expected 3 total requests, got %d", summary.TotalRequests)
	}
	if summary.TotalErrors != 2 {
		t.Errorf("expected 2 errors, got %d", summary.TotalErrors)
	}
	if summary.TotalDetections != 1 || summary.DetectionsBySrc["Cloudflare"] != 1 {
		t.Errorf("expected 1 Cloudflare detection, got %v", summary.DetectionsBySrc)
	}
	if summary.StatusCodes[200] != 1 || summary.StatusCodes[403] != 1 || len(summary.StatusCodes) != 2 {
		t.Errorf("unexpected status codes %v", summary.StatusCodes)
	}
	if summary.TotalBytes != 7 {
		t.Errorf("expected 7 total bytes, got %d", summary.TotalBytes)
	}
	if summary.Duration != 2*time.Second {
		t.Errorf("expected 2s duration, got %v", summary.Duration)
	}

	want := []EndpointStat{
		{Endpoint: "d.js", Requests: 2, Errors: 1, MeanLatency: 200 * time.Millisecond},
		{Endpoint: "vqd", Requests: 1, Errors: 1, MeanLatency: time.Second},
	}
	if diff := cmp.Diff(want, summary.Endpoints); diff != "" {
		t.Errorf("Endpoints mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateSummary_Empty(t *testing.T) {
	s := GenerateSummary(nil)
	if s.TotalRequests != 0 || s.Endpoints == nil {
		t.Errorf("unexpected empty summary %+v", s)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Summary{TotalRequests: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"total_requests": 5`) {
		t.Errorf("expected JSON to contain total_requests: 5, got %s", buf.String())
	}
}

func TestWriteText(t *testing.T) {
	summary := Summary{
		TotalRequests: 5,
		TotalErrors:   1,
		StatusCodes:   map[int]int{200: 4, 500: 1},
		Endpoints:     []EndpointStat{{Endpoint: "i.js", Requests: 5, Errors: 1, MeanLatency: time.Second}},
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Requests:      5") {
		t.Errorf("expected text to contain request total, got:\n%s", out)
	}
	if !strings.Contains(out, "200: 4") {
		t.Errorf("expected text to contain 200: 4")
	}
	if !strings.Contains(out, "5 requests, 1 errors, mean 1s") {
		t.Errorf("expected endpoint line, got:\n%s", out)
	}
}

func TestWriteHTML(t *testing.T) {
	summary := Summary{
		TotalRequests:   10,
		TotalDetections: 2,
		DetectionsBySrc: map[string]int{"<DataDome>": 2},
	}
	var buf bytes.Buffer
	if err := WriteHTML(&buf, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<title>ddgs Audit Report</title>") {
		t.Errorf("expected HTML title")
	}
	if !strings.Contains(out, "&lt;DataDome&gt;") {
		t.Errorf("expected escaped detection source")
	}
}
