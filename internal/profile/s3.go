package profile

import (
	"context"
	"fmt"
	"io"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

// ObjectGetter is the slice of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds explicit client parameters. Zero values fall back to the
// default AWS credential and region chain.
type S3Config struct {
	Region    string
	Endpoint  string // optional; custom endpoint such as MinIO
	PathStyle bool
}

// S3Loader reads s3://bucket/key sources.
type S3Loader struct {
	client ObjectGetter
}

// NewS3Loader builds a loader from the default AWS config chain.
func NewS3Loader(ctx context.Context, cfg S3Config) (*S3Loader, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3LoaderWithClient(client), nil
}

// NewS3LoaderWithClient wraps an existing client.
func NewS3LoaderWithClient(client ObjectGetter) *S3Loader {
	return &S3Loader{client: client}
}

// Load fetches the object named by source.
func (l *S3Loader) Load(ctx context.Context, source string) ([]byte, error) {
	bucket, key, err := parseS3URL(source)
	if err != nil {
		return nil, err
	}
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return data, nil
}

func parseS3URL(source string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(source, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %s is not an s3:// url", ErrUnsupportedSource, source)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s needs bucket and key", ErrUnsupportedSource, source)
	}
	return bucket, key, nil
}
