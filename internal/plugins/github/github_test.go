package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/config"
	"github.com/cogniteev/easy-upgrade/internal/domain/release"
	"github.com/cogniteev/easy-upgrade/internal/template"
)

// fakeGitHub serves a fixed release list for acme/tool and the asset payloads.
func fakeGitHub(t *testing.T, releases []Release) *httptest.Server {
	t.Helper()

	var srv *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/tool/releases", func(w http.ResponseWriter, r *http.Request) {
		user, token, ok := r.BasicAuth()
		if ok && (user != "bot" || token != "secret") {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		for i := range releases {
			for j := range releases[i].Assets {
				releases[i].Assets[j].BrowserDownloadURL = srv.URL + "/download/" + releases[i].Assets[j].Name
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(releases)
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, "payload of %s", filepath.Base(r.URL.Path))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func sampleReleases() []Release {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	return []Release{
		{
			TagName:     "v1.1.0",
			Name:        "1.1.0",
			PublishedAt: base,
			Assets: []Asset{
				{Name: "tool-linux-amd64", ContentType: "application/octet-stream", Size: 10},
			},
		},
		{
			TagName:     "v1.2.0",
			Name:        "1.2.0",
			PublishedAt: base.Add(48 * time.Hour),
			Assets: []Asset{
				{Name: "tool-linux-amd64", ContentType: "application/octet-stream", Size: 10},
				{Name: "tool-darwin-arm64", ContentType: "application/octet-stream", Size: 12},
				{Name: "checksums.txt", ContentType: "text/plain", Size: 3},
			},
		},
		{
			TagName:     "v2.0.0-rc.1",
			Name:        "2.0.0 RC1",
			Prerelease:  true,
			PublishedAt: base.Add(96 * time.Hour),
		},
	}
}

func newTestFetcher(t *testing.T, srv *httptest.Server, releaseCfg, cfg config.Values) *Fetcher {
	t.Helper()

	if releaseCfg == nil {
		releaseCfg = config.Values{}
	}

	if cfg == nil {
		cfg = config.Values{}
	}

	f, err := NewFetcher(&action.Binding{
		Provider:       ProviderName,
		ProviderConfig: config.Values{"api-url": srv.URL, "basic-auth": "bot:secret"},
		Release:        "acme/tool",
		ReleaseConfig:  releaseCfg,
		Config:         cfg,
		Templates:      template.NewHCL(),
	}, srv.Client())
	require.NoError(t, err)

	return f
}

// TestLatest checks that the newest eligible release wins and flags widen eligibility.
func TestLatest(t *testing.T) {
	t.Parallel()

	releases := sampleReleases()

	require.Equal(t, "v1.2.0", Latest(releases, false, false).TagName)
	require.Equal(t, "v2.0.0-rc.1", Latest(releases, true, false).TagName)
	require.Nil(t, Latest(nil, true, true))
	require.Nil(t, Latest([]Release{{TagName: "v1", Draft: true}}, false, false))
}

// TestFilter checks CEL asset filters, including the nil filter and non-boolean results.
func TestFilter(t *testing.T) {
	t.Parallel()

	none, err := newFilter("")
	require.NoError(t, err)

	ok, err := none.match(Asset{Name: "x"})
	require.NoError(t, err)
	require.True(t, ok)

	f, err := newFilter(`asset.name.endsWith("linux-amd64") && asset.size > 5`)
	require.NoError(t, err)

	ok, err = f.match(Asset{Name: "tool-linux-amd64", Size: 10})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.match(Asset{Name: "tool-linux-amd64", Size: 1})
	require.NoError(t, err)
	require.False(t, ok)

	notBool, err := newFilter(`asset.name`)
	require.NoError(t, err)

	_, err = notBool.match(Asset{Name: "x"})
	require.ErrorIs(t, err, errFilterNotBoolean)

	_, err = newFilter(`asset.name ==`)
	require.Error(t, err)
}

// TestFetcherCandidateVersion checks the version is read from the tag or the release name.
func TestFetcherCandidateVersion(t *testing.T) {
	t.Parallel()

	srv := fakeGitHub(t, sampleReleases())

	byTag := newTestFetcher(t, srv, nil, nil)
	v, err := byTag.CandidateVersion(t.Context())
	require.NoError(t, err)
	require.True(t, v.Equal(release.MustParseVersion("1.2.0")))
	require.Equal(t, "v1.2.0", v.String())

	byName := newTestFetcher(t, srv, config.Values{"with-prerelease": true}, config.Values{"version-from": "name"})
	_, err = byName.CandidateVersion(t.Context())
	require.ErrorIs(t, err, release.ErrInvalidVersion)
}

// TestFetcherNoRelease checks an empty release list means no candidate and a failing fetch.
func TestFetcherNoRelease(t *testing.T) {
	t.Parallel()

	srv := fakeGitHub(t, nil)
	f := newTestFetcher(t, srv, nil, nil)

	v, err := f.CandidateVersion(t.Context())
	require.NoError(t, err)
	require.True(t, v.IsNone())

	require.ErrorIs(t, f.Fetch(t.Context(), t.TempDir()), errNoRelease)
}

// TestFetcherFetchByName checks a templated name selects one asset written to a templated file.
func TestFetcherFetchByName(t *testing.T) {
	t.Parallel()

	srv := fakeGitHub(t, sampleReleases())
	f := newTestFetcher(t, srv, nil, config.Values{
		"name": "tool-linux-amd64",
		"file": "bin/tool-${version}",
	})

	dir := t.TempDir()
	require.NoError(t, f.Fetch(t.Context(), dir))

	path := filepath.Join(dir, "bin", "tool-v1.2.0")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "payload of tool-linux-amd64", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&0o100)
}

// TestFetcherFetchOutsideWorkspace ensures a destination escaping the workspace is refused.
func TestFetcherFetchOutsideWorkspace(t *testing.T) {
	t.Parallel()

	srv := fakeGitHub(t, sampleReleases())
	parent := t.TempDir()
	dir := filepath.Join(parent, "workspace")
	require.NoError(t, os.Mkdir(dir, 0o755))

	for _, file := range []string{"../escaped", "/tmp/tool-${version}"} {
		f := newTestFetcher(t, srv, nil, config.Values{"name": "tool-linux-amd64", "file": file})
		require.ErrorIs(t, f.Fetch(t.Context(), dir), errUnsafeFile, file)
	}

	require.NoFileExists(t, filepath.Join(parent, "escaped"))
}

// TestFetcherFetchAll checks every asset is downloaded under its own name without a selector.
func TestFetcherFetchAll(t *testing.T) {
	t.Parallel()

	srv := fakeGitHub(t, sampleReleases())
	f := newTestFetcher(t, srv, nil, nil)

	dir := t.TempDir()
	require.NoError(t, f.Fetch(t.Context(), dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	info, err := os.Stat(filepath.Join(dir, "checksums.txt"))
	require.NoError(t, err)
	require.Zero(t, info.Mode()&0o111)
}

// TestFetcherSelectionErrors checks unmatched selectors and ambiguous file destinations.
func TestFetcherSelectionErrors(t *testing.T) {
	t.Parallel()

	srv := fakeGitHub(t, sampleReleases())

	missing := newTestFetcher(t, srv, nil, config.Values{"name": "tool-windows.exe"})
	require.ErrorIs(t, missing.Fetch(t.Context(), t.TempDir()), errNoAsset)

	ambiguous := newTestFetcher(t, srv, nil, config.Values{
		"filter": `asset.name.startsWith("tool-")`,
		"file":   "tool",
	})
	require.ErrorIs(t, ambiguous.Fetch(t.Context(), t.TempDir()), errAmbiguousAsset)
}

// TestNewFetcherValidation checks settings errors surface at construction time.
func TestNewFetcherValidation(t *testing.T) {
	t.Parallel()

	build := func(releaseName string, cfg config.Values) error {
		_, err := NewFetcher(&action.Binding{
			Provider:       ProviderName,
			ProviderConfig: config.Values{},
			Release:        releaseName,
			ReleaseConfig:  config.Values{},
			Config:         cfg,
		}, nil)

		return err
	}

	require.ErrorIs(t, build("tool", config.Values{}), errInvalidReleaseName)
	require.ErrorIs(t, build("acme/tool/extra", config.Values{}), errInvalidReleaseName)
	require.ErrorIs(t, build("acme/tool", config.Values{"version-from": "date"}), errInvalidVersionFrom)
	require.ErrorIs(t, build("acme/tool", config.Values{"unknown": 1}), config.ErrInvalidValue)
	require.Error(t, build("acme/tool", config.Values{"filter": "asset.name =="}))
	require.NoError(t, build("acme/tool", nil))
}

// TestClientRateLimit checks an exhausted quota is reported as a RateLimitError.
func TestClientRateLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(ClientOptions{BaseURL: srv.URL, HTTPClient: srv.Client(), RateLimit: 100})

	_, err := c.Releases(context.Background(), "acme", "tool")
	require.True(t, IsRateLimitError(err))
}

// TestClientBadStatus checks a plain forbidden answer is not mistaken for a rate limit.
func TestClientBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(ClientOptions{BaseURL: srv.URL, HTTPClient: srv.Client()})

	_, err := c.Releases(t.Context(), "acme", "tool")
	require.ErrorIs(t, err, errBadHTTPStatus)
	require.False(t, IsRateLimitError(err))
}

// TestPluginRegister checks the fetcher is restricted to the github provider.
func TestPluginRegister(t *testing.T) {
	t.Parallel()

	reg := action.NewRegistry()
	require.NoError(t, Plugin{}.Register(reg))

	_, err := reg.Lookup(action.RoleFetcher, ActionName, ProviderName)
	require.NoError(t, err)

	_, err = reg.Lookup(action.RoleFetcher, ActionName, "s3")
	require.ErrorIs(t, err, action.ErrProviderNotAllowed)
}
