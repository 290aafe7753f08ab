package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cogniteev/easy-upgrade/internal/action"
	"github.com/cogniteev/easy-upgrade/internal/domain/release"
	"github.com/cogniteev/easy-upgrade/internal/logger"
)

const (
	// ProviderName is the only provider the objects fetcher serves.
	ProviderName = "s3"
	// ActionName is the key of the fetcher in release configuration.
	ActionName = "objects"

	defaultPrefix = "${release}/"
	delimiter     = "/"
	dirMode       = 0o755
	fileMode      = 0o644
)

var (
	errNoBucket     = errors.New("bucket is required")
	errNoCandidate  = errors.New("no version directory")
	errEmptyVersion = errors.New("version directory is empty")
	errUnsafeKey    = errors.New("object key escapes the version directory")
)

type objectsSettings struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// Fetcher downloads a version directory from a bucket.
type Fetcher struct {
	action.Base

	api    API
	bucket string
	prefix string

	candidate release.Version
	listed    bool
}

// NewFetcher builds a Fetcher from its binding using newAPI to reach S3.
func NewFetcher(ctx context.Context, binding *action.Binding, newAPI ClientFactory) (*Fetcher, error) {
	var ps ProviderSettings
	if err := binding.ProviderConfig.Decode(&ps); err != nil {
		return nil, fmt.Errorf("provider settings: %w", err)
	}

	var settings objectsSettings
	if err := binding.Config.DecodeStrict(&settings); err != nil {
		return nil, fmt.Errorf("objects settings: %w", err)
	}

	bucket := settings.Bucket
	if bucket == "" {
		bucket = ps.Bucket
	}

	if bucket == "" {
		return nil, errNoBucket
	}

	prefixTemplate := settings.Prefix
	if prefixTemplate == "" {
		prefixTemplate = defaultPrefix
	}

	prefix, err := binding.Render(prefixTemplate, "", nil)
	if err != nil {
		return nil, err
	}

	prefix = strings.TrimLeft(prefix, delimiter)
	if prefix != "" && !strings.HasSuffix(prefix, delimiter) {
		prefix += delimiter
	}

	if newAPI == nil {
		newAPI = NewClient
	}

	api, err := newAPI(ctx, ps)
	if err != nil {
		return nil, err
	}

	return &Fetcher{
		Base:   action.NewBase(binding),
		api:    api,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// CandidateVersion returns the greatest version directory under the prefix.
// Directory names that are not versions are ignored.
func (f *Fetcher) CandidateVersion(ctx context.Context) (release.Version, error) {
	if f.listed {
		return f.candidate, nil
	}

	paginator := s3.NewListObjectsV2Paginator(f.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(f.bucket),
		Prefix:    aws.String(f.prefix),
		Delimiter: aws.String(delimiter),
	})

	versions := make([]release.Version, 0)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return release.None, fmt.Errorf("list s3://%s/%s: %w", f.bucket, f.prefix, err)
		}

		for _, common := range page.CommonPrefixes {
			segment := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(common.Prefix), f.prefix), delimiter)

			v, err := release.ParseVersion(segment)
			if err != nil {
				logger.DebugKV(ctx, "Skipping directory that is not a version",
					"bucket", f.bucket, "directory", segment)

				continue
			}

			versions = append(versions, v)
		}
	}

	f.candidate = release.Max(versions...)
	f.listed = true

	if f.candidate.IsNone() {
		logger.WarnKV(ctx, "Could not find any version directory", "bucket", f.bucket, "prefix", f.prefix)
	}

	return f.candidate, nil
}

// Fetch downloads every object of the candidate version directory into dir,
// keeping the layout below the version directory.
func (f *Fetcher) Fetch(ctx context.Context, dir string) error {
	candidate, err := f.CandidateVersion(ctx)
	if err != nil {
		return err
	}

	if candidate.IsNone() {
		return fmt.Errorf("s3://%s/%s: %w", f.bucket, f.prefix, errNoCandidate)
	}

	versionPrefix := f.prefix + candidate.String() + delimiter

	paginator := s3.NewListObjectsV2Paginator(f.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(f.bucket),
		Prefix: aws.String(versionPrefix),
	})

	count := 0

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list s3://%s/%s: %w", f.bucket, versionPrefix, err)
		}

		for _, object := range page.Contents {
			key := aws.ToString(object.Key)

			rel := strings.TrimPrefix(key, versionPrefix)
			if rel == "" || strings.HasSuffix(rel, delimiter) {
				continue
			}

			if !filepath.IsLocal(filepath.FromSlash(rel)) {
				return fmt.Errorf("%w: %s", errUnsafeKey, key)
			}

			if err = f.download(ctx, key, filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
				return err
			}

			count++
		}
	}

	if count == 0 {
		return fmt.Errorf("s3://%s/%s: %w", f.bucket, versionPrefix, errEmptyVersion)
	}

	logger.InfoKV(ctx, "Downloaded objects", "bucket", f.bucket, "prefix", versionPrefix, "count", count)

	return nil
}

func (f *Fetcher) download(ctx context.Context, key, path string) error {
	out, err := f.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", f.bucket, key, err)
	}

	defer func() {
		_ = out.Body.Close()
	}()

	if err = os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("create object file: %w", err)
	}

	if _, err = io.Copy(file, out.Body); err != nil {
		_ = file.Close()

		return fmt.Errorf("download s3://%s/%s: %w", f.bucket, key, err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close object file: %w", err)
	}

	return nil
}
