package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// API is the subset of the S3 client the fetcher calls.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ClientFactory builds an API for the provider settings.
type ClientFactory func(ctx context.Context, settings ProviderSettings) (API, error)

// ProviderSettings are read from the provider block.
type ProviderSettings struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	Bucket   string `mapstructure:"bucket"`
}

// NewClient loads the default AWS configuration (environment, shared files,
// instance roles) and builds an S3 client. A custom endpoint switches to
// path-style addressing for MinIO-like servers.
func NewClient(ctx context.Context, settings ProviderSettings) (API, error) {
	opts := make([]func(*awsconfig.LoadOptions) error, 0, 1)
	if settings.Region != "" {
		opts = append(opts, awsconfig.WithRegion(settings.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
