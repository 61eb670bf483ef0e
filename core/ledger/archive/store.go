package archive

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// ObjectStore stores archive segments.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

type S3Config struct {
	Bucket string
	Region string
	// Endpoint overrides the S3 endpoint, for S3 compatible storages.
	Endpoint string
	// Anonymous uses unsigned requests, for public buckets.
	Anonymous bool
}

var _ ObjectStore = (*S3Store)(nil)

type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(ctx context.Context, config S3Config) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "archive bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "can't load aws user config")
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if config.Anonymous {
			o.Credentials = aws.AnonymousCredentials{}
		}
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client: client,
		bucket: config.Bucket,
	}, nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "can't list s3 bucket objects for bucket %q and prefix %q", s.bucket, prefix)
		}

		// filter empty keys
		objs := lo.Filter(page.Contents, func(item s3types.Object, _ int) bool { return item.Key != nil })
		keys = append(keys, lo.Map(objs, func(item s3types.Object, _ int) string {
			return *item.Key
		})...)
	}
	return keys, nil
}

func (s *S3Store) Download(ctx context.Context, key string) ([]byte, error) {
	downloader := manager.NewDownloader(s.client, func(d *manager.Downloader) {
		d.Concurrency = 8
		d.PartSize = 10 * 1024 * 1024
	})

	buffer := manager.NewWriteAtBuffer([]byte{})
	numBytes, err := downloader.Download(ctx, buffer, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download file for bucket %q and key %q", s.bucket, key)
	}

	if numBytes < 1 {
		return nil, errors.Wrap(errs.NotFound, "got empty file")
	}

	return buffer.Bytes(), nil
}

func (s *S3Store) Upload(ctx context.Context, key string, data []byte) error {
	uploader := manager.NewUploader(s.client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}); err != nil {
		return errors.Wrapf(err, "failed to upload file for bucket %q and key %q", s.bucket, key)
	}
	return nil
}
