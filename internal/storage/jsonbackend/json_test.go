package jsonbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/ddgs/internal/storage"
	"github.com/google/go-cmp/cmp"
)

func TestJSONBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "audit.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond).UTC()

	vqd := &storage.Exchange{
		ID:         "json1",
		Endpoint:   "vqd",
		Method:     "POST",
		URL:        "https://duckduckgo.com",
		StatusCode: 200,
		Headers:    map[string][]string{"Content-Type": {"text/html"}},
		BodySize:   4096,
		Duration:   10 * time.Millisecond,
		Profile:    "chrome_131",
		CreatedAt:  now.Add(-2 * time.Hour),
	}
	page := &storage.Exchange{
		ID:           "json2",
		Endpoint:     "d.js",
		Method:       "GET",
		URL:          "https://links.duckduckgo.com/d.js?q=cats&s=23",
		StatusCode:   202,
		Headers:      map[string][]string{},
		Duration:     20 * time.Millisecond,
		Profile:      "chrome_131",
		DetectedBot:  true,
		DetectionSrc: "DuckDuckGo",
		CreatedAt:    now.Add(-1 * time.Hour),
		Error:        "d.js: rate limited",
	}

	for _, e := range []*storage.Exchange{vqd, page} {
		if err := b.Save(ctx, e); err != nil {
			t.Fatalf("Failed to save exchange %s: %v", e.ID, err)
		}
	}

	byEndpoint, err := b.Query(ctx, storage.Filter{Endpoint: "d.js"})
	if err != nil {
		t.Fatalf("Failed to query by endpoint: %v", err)
	}
	if len(byEndpoint) != 1 {
		t.Fatalf("Expected 1 result for endpoint filter, got %d", len(byEndpoint))
	}
	if diff := cmp.Diff(page, byEndpoint[0]); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	boolTrue := true
	bots, err := b.Query(ctx, storage.Filter{DetectedBot: &boolTrue})
	if err != nil {
		t.Fatalf("Failed to query by DetectedBot: %v", err)
	}
	if len(bots) != 1 {
		t.Fatalf("Expected 1 result for DetectedBot filter, got %d", len(bots))
	}

	past := now.Add(-90 * time.Minute)
	since, err := b.Query(ctx, storage.Filter{Since: &past})
	if err != nil {
		t.Fatalf("Failed to query by Since: %v", err)
	}
	if len(since) != 1 || since[0].ID != "json2" {
		t.Fatalf("Expected only json2 for Since filter, got %d", len(since))
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(all))
	}
	if all[0].ID != "json2" {
		t.Errorf("Expected json2 first, got %s", all[0].ID)
	}

	offset, err := b.Query(ctx, storage.Filter{Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query offset: %v", err)
	}
	if len(offset) != 1 || offset[0].ID != "json1" {
		t.Errorf("Expected json1 for offset 1, got %v", offset)
	}

	// Writes after a query still append
	late := &storage.Exchange{ID: "json3", Endpoint: "ac", CreatedAt: now}
	if err := b.Save(ctx, late); err != nil {
		t.Fatalf("Failed to save after query: %v", err)
	}
	limited, err := b.Query(ctx, storage.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query limit: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "json3" {
		t.Errorf("Expected json3 as newest, got %v", limited)
	}
}
