package ddgs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FranksOps/ddgs/pkg/proxy"
	"github.com/FranksOps/ddgs/pkg/result"
)

type provider struct {
	*httptest.Server
	mu     sync.Mutex
	hits   map[string]int
	params map[string][]string
	blocks atomic.Bool
}

func (p *provider) record(r *http.Request) {
	_ = r.ParseForm()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hits[r.URL.Path]++
	p.params[r.URL.Path] = append(p.params[r.URL.Path], r.Form.Encode())
}

func (p *provider) count(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[path]
}

func (p *provider) lastForm(path string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	forms := p.params[path]
	if len(forms) == 0 {
		return ""
	}
	return forms[len(forms)-1]
}

func newProvider(t *testing.T) *provider {
	p := &provider{hits: map[string]int{}, params: map[string][]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		p.record(r)
		fmt.Fprintf(w, `<script>vqd="4-%s"</script>`, r.PostForm.Get("q"))
	})
	mux.HandleFunc("/d.js", func(w http.ResponseWriter, r *http.Request) {
		p.record(r)
		if p.blocks.Load() {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		s := r.Form.Get("s")
		rows := make([]string, 0, 26)
		for i := 0; i < 25; i++ {
			rows = append(rows, fmt.Sprintf(`{"u":"https://example.com/%s/%d","t":"T","a":"Body"}`, s, i))
		}
		rows = append(rows, `{"n":"next"}`)
		fmt.Fprintf(w, "DDG.pageLayout.load('d',[%s]);DDG.duckbar.load('x');", strings.Join(rows, ","))
	})
	mux.HandleFunc("/i.js", func(w http.ResponseWriter, r *http.Request) {
		p.record(r)
		fmt.Fprintf(w, `{"results":[{"title":"Cat","image":"https://img.example/%s.jpg","thumbnail":"t","url":"u","height":1,"width":2,"source":"Bing"}]}`, r.Form.Get("s"))
	})
	mux.HandleFunc("/v.js", func(w http.ResponseWriter, r *http.Request) {
		p.record(r)
		_, _ = w.Write([]byte(`{"results":[{"content":"https://video.example/1","title":"Cat video"}]}`))
	})
	mux.HandleFunc("/news.js", func(w http.ResponseWriter, r *http.Request) {
		p.record(r)
		_, _ = w.Write([]byte(`{"results":[{"date":0,"title":"Cats","excerpt":"<b>news</b>","url":"https://news.example/1","source":"Wire"}]}`))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		p.record(r)
		if strings.HasPrefix(r.Form.Get("q"), "what is ") {
			_, _ = w.Write([]byte(`{"AbstractText":"Cats are mammals.","AbstractURL":"https://en.wikipedia.org/wiki/Cat"}`))
			return
		}
		_, _ = w.Write([]byte(`{"RelatedTopics":[{"FirstURL":"https://duckduckgo.com/Kitten","Icon":{"URL":""},"Text":"Kitten"}]}`))
	})
	mux.HandleFunc("/ac/", func(w http.ResponseWriter, r *http.Request) {
		p.record(r)
		_, _ = w.Write([]byte(`[{"phrase":"cats"},{"phrase":"cats and dogs"}]`))
	})
	mux.HandleFunc("/translation.js", func(w http.ResponseWriter, r *http.Request) {
		p.record(r)
		body, _ := io.ReadAll(r.Body)
		fmt.Fprintf(w, `{"detected_language":"fr","translated":%q}`, strings.ToUpper(string(body)))
	})
	mux.HandleFunc("/local.js", func(w http.ResponseWriter, r *http.Request) {
		p.record(r)
		fmt.Fprintf(w, `{"results":[{"name":"Cafe","address":%q,"coordinates":{"latitude":1,"longitude":2}}]}`, r.Form.Get("bbox_tl"))
	})
	mux.HandleFunc("/search.php", func(w http.ResponseWriter, r *http.Request) {
		p.record(r)
		if r.Form.Get("q") == "Atlantis" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"boundingbox":["10","12","20","22"]}]`))
	})
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

func newClient(t *testing.T, p *provider) *Client {
	t.Helper()
	c, err := New(Config{
		Profile: "go",
		Workers: 4,
		Endpoints: Endpoints{
			Root:        p.URL,
			TextAPI:     p.URL + "/d.js",
			Images:      p.URL + "/i.js",
			Videos:      p.URL + "/v.js",
			News:        p.URL + "/news.js",
			Answers:     p.URL + "/api/",
			Suggestions: p.URL + "/ac/",
			Places:      p.URL + "/local.js",
			Translate:   p.URL + "/translation.js",
			Geocoder:    p.URL + "/search.php",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestText_CatsThirty(t *testing.T) {
	p := newProvider(t)
	c := newClient(t, p)

	got, err := c.Text(context.Background(), "cats", TextOptions{MaxResults: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 30 {
		t.Fatalf("expected 30 results, got %d", len(got))
	}
	if p.count("/d.js") != 2 {
		t.Errorf("expected 2 pages, got %d", p.count("/d.js"))
	}
	if got[24].Href != "https://example.com/0/24" || got[25].Href != "https://example.com/23/0" {
		t.Errorf("pages merged out of order: %s, %s", got[24].Href, got[25].Href)
	}
}

func TestArgumentErrors(t *testing.T) {
	p := newProvider(t)
	c := newClient(t, p)
	ctx := context.Background()

	if _, err := c.Text(ctx, "", TextOptions{}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Text: expected ErrEmptyQuery, got %v", err)
	}
	if _, err := c.Text(ctx, "cats", TextOptions{Backend: "bing"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Text: expected ErrUnknownBackend, got %v", err)
	}
	if _, err := c.Images(ctx, "", ImagesOptions{}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Images: expected ErrEmptyQuery, got %v", err)
	}
	if _, err := c.Translate(ctx, nil, TranslateOptions{}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Translate: expected ErrEmptyQuery, got %v", err)
	}
	if _, err := c.Maps(ctx, "cafe", MapsOptions{}); !errors.Is(err, ErrNoLocation) {
		t.Errorf("Maps: expected ErrNoLocation, got %v", err)
	}
	if _, err := c.NewChat("gpt-5"); err == nil {
		t.Error("NewChat: expected error for unknown model")
	}
	if c.Tripped() {
		t.Error("argument errors must not latch the client")
	}
}

func TestImages_Filters(t *testing.T) {
	p := newProvider(t)
	c := newClient(t, p)

	got, err := c.Images(context.Background(), "cats", ImagesOptions{
		SafeSearch: SafeSearchOff,
		TimeLimit:  ImagesDay,
		Size:       "Large",
		MaxResults: 150,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected one image per page for offsets 0 and 100, got %d", len(got))
	}
	form := p.lastForm("/i.js")
	for _, want := range []string{"f=time%3ADay%2Csize%3ALarge%2C%2C%2C%2C", "p=-1", "l=wt-wt", "vqd=4-cats"} {
		if !strings.Contains(form, want) {
			t.Errorf("expected %q in %q", want, form)
		}
	}
}

func TestVideosAndNews(t *testing.T) {
	p := newProvider(t)
	c := newClient(t, p)
	ctx := context.Background()

	videos, err := c.Videos(ctx, "cats", VideosOptions{TimeLimit: Week, Duration: "short"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 1 || videos[0].Title != "Cat video" {
		t.Errorf("unexpected videos %+v", videos)
	}
	if form := p.lastForm("/v.js"); !strings.Contains(form, "f=publishedAfter%3Aw%2C%2CvideoDuration%3Ashort%2C") || !strings.Contains(form, "p=-1") {
		t.Errorf("unexpected video form %q", form)
	}

	news, err := c.News(ctx, "cats", NewsOptions{SafeSearch: SafeSearchOn, TimeLimit: Day})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []result.News{{Date: "1970-01-01T00:00:00Z", Title: "Cats", Body: "news", URL: "https://news.example/1", Source: "Wire"}}
	if diff := cmp.Diff(want, news); diff != "" {
		t.Errorf("News() mismatch (-want +got):\n%s", diff)
	}
	if form := p.lastForm("/news.js"); !strings.Contains(form, "df=d") || !strings.Contains(form, "noamp=1") || !strings.Contains(form, "p=1") {
		t.Errorf("unexpected news form %q", form)
	}
}

func TestAnswersAndSuggestions(t *testing.T) {
	p := newProvider(t)
	c := newClient(t, p)
	ctx := context.Background()

	answers, err := c.Answers(ctx, "cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []result.Answer{
		{Text: "Cats are mammals.", URL: "https://en.wikipedia.org/wiki/Cat"},
		{Text: "Kitten", URL: "https://duckduckgo.com/Kitten"},
	}
	if diff := cmp.Diff(want, answers); diff != "" {
		t.Errorf("Answers() mismatch (-want +got):\n%s", diff)
	}

	sugg, err := c.Suggestions(ctx, "cats", "us-en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugg) != 2 || !strings.Contains(p.lastForm("/ac/"), "kl=us-en") {
		t.Errorf("unexpected suggestions %v", sugg)
	}
}

func TestTranslate_KeepsInputOrder(t *testing.T) {
	p := newProvider(t)
	c := newClient(t, p)

	words := []string{"chat", "chien", "oiseau", "poisson", "cheval"}
	got, err := c.Translate(context.Background(), words, TranslateOptions{From: "fr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, w := range words {
		if got[i].Original != w || got[i].Translated != strings.ToUpper(w) {
			t.Errorf("result %d = %+v, want original %q", i, got[i], w)
		}
	}
	if form := p.lastForm("/"); !strings.Contains(form, "q=translate") {
		t.Errorf("expected token for the literal query translate, got %q", form)
	}
	if form := p.lastForm("/translation.js"); !strings.Contains(form, "from=fr") || !strings.Contains(form, "to=en") {
		t.Errorf("unexpected translate params %q", form)
	}
}

func TestMaps_Coordinates(t *testing.T) {
	p := newProvider(t)
	c := newClient(t, p)

	got, err := c.Maps(context.Background(), "cafe", MapsOptions{Latitude: "40,0", Longitude: "-73.0", MaxResults: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.count("/search.php") != 0 {
		t.Error("coordinates must skip geocoding")
	}
	if len(got) != 1 || got[0].Address != "40.008983,-73.008983" {
		t.Errorf("unexpected places %+v", got)
	}
}

func TestMaps_GeocodedAreaSubdivides(t *testing.T) {
	p := newProvider(t)
	c := newClient(t, p)

	got, err := c.Maps(context.Background(), "cafe", MapsOptions{City: "Springfield", MaxResults: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 places, got %d", len(got))
	}
	if n := p.count("/local.js"); n != 5 {
		t.Errorf("expected 1 + 4 box requests, got %d", n)
	}

	_, err = c.Maps(context.Background(), "cafe", MapsOptions{Place: "Atlantis"})
	if !errors.Is(err, ErrCoordinatesNotFound) {
		t.Errorf("expected ErrCoordinatesNotFound, got %v", err)
	}
}

func TestLatch_FailsFastWithoutNetwork(t *testing.T) {
	p := newProvider(t)
	p.blocks.Store(true)
	c := newClient(t, p)
	ctx := context.Background()

	_, err := c.Text(ctx, "cats", TextOptions{})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	before := p.count("/") + p.count("/d.js")

	_, err = c.Suggestions(ctx, "cats", "")
	if !errors.Is(err, ErrTransport) || !errors.Is(err, ErrTripped) {
		t.Fatalf("expected tripped transport error, got %v", err)
	}
	if after := p.count("/") + p.count("/d.js") + p.count("/ac/"); after != before {
		t.Errorf("expected no network call after the latch, got %d more", after-before)
	}
	if !c.Tripped() {
		t.Error("expected client to report the latch")
	}
}

func TestDefaultEndpoints(t *testing.T) {
	ep := Endpoints{TextAPI: "http://stub/d.js"}.withDefaults()
	if ep.TextAPI != "http://stub/d.js" {
		t.Errorf("override lost: %s", ep.TextAPI)
	}
	if ep.Lite != "https://lite.duckduckgo.com/lite/" || ep.Geocoder != "https://nominatim.openstreetmap.org/search.php" {
		t.Errorf("defaults not applied: %+v", ep)
	}
	if len(ChatModels()) != 4 || len(Backends()) != 3 {
		t.Errorf("unexpected catalogs %v %v", ChatModels(), Backends())
	}
}

func TestNew_FixedProxyOverridesPool(t *testing.T) {
	var fixedHits, poolHits atomic.Int32
	fixed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fixedHits.Add(1)
		if r.URL.Path == "/d.js" {
			_, _ = w.Write([]byte(`DDG.pageLayout.load('d',[{"u":"https://example.com/","t":"Cats","a":"Cats"}]);DDG.duckbar.load('x');`))
			return
		}
		_, _ = w.Write([]byte(`vqd="4-fixed"`))
	}))
	defer fixed.Close()
	pooled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		poolHits.Add(1)
		http.Error(w, "wrong proxy", http.StatusBadGateway)
	}))
	defer pooled.Close()

	pool := proxy.NewPool(proxy.Config{})
	if err := pool.Add(pooled.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := New(Config{
		Profile:   "go",
		Proxy:     fixed.URL,
		ProxyPool: pool,
		Endpoints: Endpoints{Root: "http://duckduckgo.test", TextAPI: "http://duckduckgo.test/d.js"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	got, err := c.Text(context.Background(), "cats", TextOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected one result, got %d", len(got))
	}
	if fixedHits.Load() != 2 || poolHits.Load() != 0 {
		t.Errorf("expected both requests through the fixed proxy, got fixed=%d pool=%d", fixedHits.Load(), poolHits.Load())
	}
}
