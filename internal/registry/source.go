package registry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

// Source fetches the raw bytes of an artifact.
type Source interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FileSource reads artifacts from the local filesystem.
type FileSource struct{}

func (FileSource) Fetch(_ context.Context, location string) ([]byte, error) {
	return os.ReadFile(location)
}

type S3Config struct {
	// Empty means AWS. Set for minio and friends, e.g. "http://127.0.0.1:9000".
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// S3Source downloads s3://bucket/key artifacts.
type S3Source struct {
	downloader *manager.Downloader
}

// NewS3Source builds a client from static credentials when they are given,
// otherwise from the default AWS credential chain.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	var client *s3.Client
	if cfg.AccessKey != "" {
		client = s3.NewFromConfig(aws.Config{Region: cfg.Region}, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		})
	} else {
		sdkConfig, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed loading aws config: %w", err)
		}
		client = s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
	}
	return &S3Source{downloader: manager.NewDownloader(client)}, nil
}

func (s *S3Source) Fetch(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err = s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseS3Location splits s3://bucket/key.
func ParseS3Location(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 location: %s", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 location needs a bucket and a key: %s", location)
	}
	return bucket, key, nil
}

// MultiSource routes s3:// locations to S3 and everything else to Local.
// S3 may be nil when no bucket is configured.
type MultiSource struct {
	Local Source
	S3    Source
}

func (m MultiSource) Fetch(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, s3Scheme) {
		if m.S3 == nil {
			return nil, fmt.Errorf("no s3 source configured for %s", location)
		}
		return m.S3.Fetch(ctx, location)
	}
	local := m.Local
	if local == nil {
		local = FileSource{}
	}
	return local.Fetch(ctx, location)
}
