package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeRelease is one release served by fakeGitHub.
type fakeRelease struct {
	tag    string
	assets map[string]string
}

// fakeGitHub serves the releases API for acme/tool and the asset downloads.
// Releases can be published while the server runs.
type fakeGitHub struct {
	srv *httptest.Server

	mu       sync.Mutex
	releases []fakeRelease
	requests int
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()

	g := &fakeGitHub{}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/tool/releases", g.serveReleases)
	mux.HandleFunc("/download/{tag}/{name}", g.serveAsset)

	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)

	return g
}

func (g *fakeGitHub) publish(tag string, assets map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.releases = append(g.releases, fakeRelease{tag: tag, assets: assets})
}

func (g *fakeGitHub) serveReleases(w http.ResponseWriter, _ *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests++

	type asset struct {
		Name        string `json:"name"`
		ContentType string `json:"content_type"`
		URL         string `json:"browser_download_url"`
	}

	type release struct {
		TagName     string    `json:"tag_name"`
		Name        string    `json:"name"`
		PublishedAt time.Time `json:"published_at"`
		Assets      []asset   `json:"assets"`
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]release, 0, len(g.releases))

	for i, r := range g.releases {
		rel := release{TagName: r.tag, Name: r.tag, PublishedAt: base.Add(time.Duration(i) * time.Hour)}
		for name := range r.assets {
			rel.Assets = append(rel.Assets, asset{
				Name:        name,
				ContentType: "application/octet-stream",
				URL:         g.srv.URL + "/download/" + r.tag + "/" + name,
			})
		}

		out = append(out, rel)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (g *fakeGitHub) serveAsset(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, rel := range g.releases {
		if rel.tag != r.PathValue("tag") {
			continue
		}

		if content, ok := rel.assets[r.PathValue("name")]; ok {
			_, _ = w.Write([]byte(content))

			return
		}
	}

	http.NotFound(w, r)
}
