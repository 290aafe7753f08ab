package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/domain/release"
	"github.com/cogniteev/easy-upgrade/internal/logger"
)

const (
	// ProviderName is the only provider the asset fetcher serves.
	ProviderName = "github"
	// ActionName is the key of the fetcher in release configuration.
	ActionName = "asset"

	versionFromTag  = "tag"
	versionFromName = "name"

	executableBits = 0o111
	fileMode       = 0o644
	dirMode        = 0o755
)

var (
	errInvalidReleaseName = errors.New("github release name must be owner/repo")
	errInvalidVersionFrom = errors.New("version-from must be tag or name")
	errNoRelease          = errors.New("no eligible release")
	errNoAsset            = errors.New("no asset matches")
	errAmbiguousAsset     = errors.New("several assets match a single file destination")
	errUnsafeFile         = errors.New("file must be a path inside the workspace")
)

// providerSettings are read from the provider block.
type providerSettings struct {
	BasicAuth string  `mapstructure:"basic-auth"`
	APIURL    string  `mapstructure:"api-url"`
	RateLimit float64 `mapstructure:"rate-limit"`
}

// releaseSettings are read from the release block.
type releaseSettings struct {
	WithPrerelease bool `mapstructure:"with-prerelease"`
	WithDraft      bool `mapstructure:"with-draft"`
}

// assetSettings are the settings of the fetch entry itself.
type assetSettings struct {
	Name        string `mapstructure:"name"`
	Filter      string `mapstructure:"filter"`
	File        string `mapstructure:"file"`
	VersionFrom string `mapstructure:"version-from"`
}

// Fetcher downloads assets of the latest GitHub release.
type Fetcher struct {
	action.Base

	client  *Client
	owner   string
	repo    string
	release releaseSettings
	asset   assetSettings
	filter  *filter

	latest  *Release
	fetched bool
}

// NewFetcher builds a Fetcher from its binding. httpClient may be nil.
func NewFetcher(binding *action.Binding, httpClient *http.Client) (*Fetcher, error) {
	owner, repo, ok := strings.Cut(binding.Release, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("%w: %q", errInvalidReleaseName, binding.Release)
	}

	var ps providerSettings
	if err := binding.ProviderConfig.Decode(&ps); err != nil {
		return nil, fmt.Errorf("provider settings: %w", err)
	}

	var rs releaseSettings
	if err := binding.ReleaseConfig.Decode(&rs); err != nil {
		return nil, fmt.Errorf("release settings: %w", err)
	}

	var as assetSettings
	if err := binding.Config.DecodeStrict(&as); err != nil {
		return nil, fmt.Errorf("asset settings: %w", err)
	}

	if as.VersionFrom == "" {
		as.VersionFrom = versionFromTag
	}

	if as.VersionFrom != versionFromTag && as.VersionFrom != versionFromName {
		return nil, fmt.Errorf("%w, got %q", errInvalidVersionFrom, as.VersionFrom)
	}

	f, err := newFilter(as.Filter)
	if err != nil {
		return nil, err
	}

	return &Fetcher{
		Base: action.NewBase(binding),
		client: NewClient(ClientOptions{
			BaseURL:    ps.APIURL,
			HTTPClient: httpClient,
			BasicAuth:  ps.BasicAuth,
			RateLimit:  ps.RateLimit,
		}),
		owner:   owner,
		repo:    repo,
		release: rs,
		asset:   as,
		filter:  f,
	}, nil
}

// latestRelease queries GitHub once per fetcher.
func (f *Fetcher) latestRelease(ctx context.Context) (*Release, error) {
	if f.fetched {
		return f.latest, nil
	}

	releases, err := f.client.Releases(ctx, f.owner, f.repo)
	if err != nil {
		return nil, err
	}

	f.latest = Latest(releases, f.release.WithPrerelease, f.release.WithDraft)
	f.fetched = true

	return f.latest, nil
}

// CandidateVersion returns the version of the latest eligible release.
func (f *Fetcher) CandidateVersion(ctx context.Context) (release.Version, error) {
	latest, err := f.latestRelease(ctx)
	if err != nil {
		return release.None, err
	}

	if latest == nil {
		logger.WarnKV(ctx, "Could not find any release", "repository", f.owner+"/"+f.repo)

		return release.None, nil
	}

	raw := latest.TagName
	if f.asset.VersionFrom == versionFromName {
		raw = latest.Name
	}

	return release.ParseVersion(raw)
}

// Fetch downloads the selected assets of the latest release into dir.
func (f *Fetcher) Fetch(ctx context.Context, dir string) error {
	latest, err := f.latestRelease(ctx)
	if err != nil {
		return err
	}

	if latest == nil {
		return fmt.Errorf("%s/%s: %w", f.owner, f.repo, errNoRelease)
	}

	candidate, err := f.CandidateVersion(ctx)
	if err != nil {
		return err
	}

	assets, err := f.selectAssets(latest.Assets, candidate.String())
	if err != nil {
		return err
	}

	if f.asset.File != "" && len(assets) > 1 {
		return fmt.Errorf("%w: %d assets for %q", errAmbiguousAsset, len(assets), f.asset.File)
	}

	for _, asset := range assets {
		name := asset.Name
		if f.asset.File != "" {
			name, err = f.Binding().Render(f.asset.File, candidate.String(), nil)
			if err != nil {
				return err
			}
		}

		rel := filepath.FromSlash(name)
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("%w: %q", errUnsafeFile, name)
		}

		if err = f.download(ctx, asset, filepath.Join(dir, rel)); err != nil {
			return err
		}
	}

	return nil
}

func (f *Fetcher) selectAssets(assets []Asset, version string) ([]Asset, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: release %s/%s has no asset", errNoAsset, f.owner, f.repo)
	}

	wanted := ""

	if f.asset.Name != "" {
		var err error

		wanted, err = f.Binding().Render(f.asset.Name, version, nil)
		if err != nil {
			return nil, err
		}
	}

	selected := make([]Asset, 0, len(assets))

	for _, asset := range assets {
		if wanted != "" && asset.Name != wanted {
			continue
		}

		ok, err := f.filter.match(asset)
		if err != nil {
			return nil, err
		}

		if ok {
			selected = append(selected, asset)
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: release %s/%s, name %q, filter %q",
			errNoAsset, f.owner, f.repo, wanted, f.asset.Filter)
	}

	return selected, nil
}

func (f *Fetcher) download(ctx context.Context, asset Asset, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("create asset directory: %w", err)
	}

	out, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("create asset file: %w", err)
	}

	if err = f.client.Download(ctx, asset.BrowserDownloadURL, out); err != nil {
		_ = out.Close()

		return err
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close asset file: %w", err)
	}

	if asset.Executable() {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat asset file: %w", err)
		}

		if err = os.Chmod(path, info.Mode()|executableBits); err != nil {
			return fmt.Errorf("make asset executable: %w", err)
		}
	}

	logger.InfoKV(ctx, "Downloaded asset", "asset", asset.Name, "path", path)

	return nil
}
