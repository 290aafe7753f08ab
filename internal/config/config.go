package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	// AppDirName is the directory holding the configuration under XDG_CONFIG_HOME.
	AppDirName = "easy_upgrade"

	// DefaultConfigFilename is the default filename of the document.
	DefaultConfigFilename = "config.yml"

	// KeyReleases holds the releases of a provider.
	KeyReleases = "releases"
	// KeyCleanupTempDir tells whether release workspaces are removed after a run.
	KeyCleanupTempDir = "cleanup-temp-dir"
	// KeyFetch holds the fetch action of a release.
	KeyFetch = "fetch"
	// KeyInstall holds the install action of a release.
	KeyInstall = "install"
	// KeyPostInstall holds the ordered post-install actions of a release.
	KeyPostInstall = "post-install"
)

var (
	// ErrInvalidDocument is returned when the document does not have the expected structure.
	ErrInvalidDocument = errors.New("invalid configuration document")
	// ErrInvalidValue is returned when a setting has an unexpected type.
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Section is a named block of settings.
type Section struct {
	// Name is the mapping key the section was declared under.
	Name string
	// Values holds the settings of the section.
	Values Values
}

// ProviderSection is a provider block together with its releases in declaration order.
type ProviderSection struct {
	Section

	// Releases keeps the release blocks in the order they were declared.
	Releases []Section
}

// Document is the whole configuration file.
type Document struct {
	// Providers keeps the provider blocks in the order they were declared.
	Providers []ProviderSection
}

// Provider returns the provider section with the given name.
func (d *Document) Provider(name string) (ProviderSection, bool) {
	for _, p := range d.Providers {
		if p.Name == name {
			return p, true
		}
	}

	return ProviderSection{}, false
}

// DefaultPath returns $XDG_CONFIG_HOME/easy_upgrade/config.yml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppDirName, DefaultConfigFilename)
}

// Load reads and parses the document at path, or at DefaultPath when path is empty.
func Load(path string) (*Document, error) {
	if path == "" {
		path = DefaultPath()
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	doc, err := Parse(contents)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return doc, nil
}

// Parse decodes a YAML document, validates it against the embedded schema
// and splits it into provider and release sections.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// An empty file has no content node and declares no providers.
	if len(root.Content) == 0 {
		return &Document{}, nil
	}

	top := root.Content[0]

	var raw any
	if err := top.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(normalize(raw)); err != nil {
		return nil, err
	}

	doc := &Document{Providers: make([]ProviderSection, 0, len(top.Content)/2)}

	for i := 0; i+1 < len(top.Content); i += 2 {
		provider, err := parseProvider(top.Content[i].Value, top.Content[i+1])
		if err != nil {
			return nil, err
		}

		doc.Providers = append(doc.Providers, provider)
	}

	return doc, nil
}

func parseProvider(name string, node *yaml.Node) (ProviderSection, error) {
	values, err := decodeValues(node)
	if err != nil {
		return ProviderSection{}, fmt.Errorf("provider %s: %w", name, err)
	}

	delete(values, KeyReleases)

	provider := ProviderSection{Section: Section{Name: name, Values: values}}

	releases := mappingValue(node, KeyReleases)
	if releases == nil {
		return provider, nil
	}

	provider.Releases = make([]Section, 0, len(releases.Content)/2)

	for i := 0; i+1 < len(releases.Content); i += 2 {
		releaseName := releases.Content[i].Value

		values, err := decodeValues(releases.Content[i+1])
		if err != nil {
			return ProviderSection{}, fmt.Errorf("release %s:%s: %w", name, releaseName, err)
		}

		provider.Releases = append(provider.Releases, Section{Name: releaseName, Values: values})
	}

	return provider, nil
}

// mappingValue returns the value node stored under key in a mapping node.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}

	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != key {
			continue
		}

		if value := node.Content[i+1]; value.Kind == yaml.AliasNode {
			return value.Alias
		}

		return node.Content[i+1]
	}

	return nil
}

func decodeValues(node *yaml.Node) (Values, error) {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	switch v := normalize(raw).(type) {
	case nil:
		return Values{}, nil
	case map[string]any:
		return Values(v), nil
	default:
		return nil, fmt.Errorf("%w: expected a mapping, got %T", ErrInvalidDocument, raw)
	}
}
