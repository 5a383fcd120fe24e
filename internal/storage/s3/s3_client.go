package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"fnolguard/internal/config"
	"fnolguard/internal/domain"
	"fnolguard/internal/port"
	"fnolguard/internal/storage"
)

type s3Client struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	bucket    string
}

// NewS3Client creates a new S3-backed BlobStore for the configured bucket.
func NewS3Client(cfg *config.StorageConfig) (port.BlobStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &s3Client{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
		bucket:    cfg.Bucket,
	}, nil
}

func (c *s3Client) Put(ctx context.Context, input port.PutInput) (*port.PutOutput, error) {
	loc := storage.Location{Bucket: c.bucket, Key: input.Key}
	result, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(input.Key),
		Body:        input.Body,
		ContentType: aws.String(input.ContentType),
	})
	if err != nil {
		return nil, &domain.StorageError{Op: "put", Location: loc.String(), Err: err}
	}

	etag := ""
	if result.ETag != nil {
		etag = *result.ETag
	}

	return &port.PutOutput{
		Location: loc.String(),
		ETag:     etag,
	}, nil
}

func (c *s3Client) Get(ctx context.Context, location string) ([]byte, error) {
	loc, err := storage.ParseLocation(location)
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Location: location, Err: err}
	}
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Location: location, Err: err}
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Location: location, Err: fmt.Errorf("reading body: %w", err)}
	}
	return data, nil
}

func (c *s3Client) PresignedURL(ctx context.Context, location string, expiry time.Duration) (string, error) {
	loc, err := storage.ParseLocation(location)
	if err != nil {
		return "", &domain.StorageError{Op: "presign", Location: location, Err: err}
	}
	result, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", &domain.StorageError{Op: "presign", Location: location, Err: err}
	}
	return result.URL, nil
}

func (c *s3Client) Ping(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return &domain.StorageError{Op: "ping", Location: c.bucket, Err: err}
	}
	return nil
}
