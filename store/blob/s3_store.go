package blob

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/goliatone/go-integrations/core"
)

type S3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client S3PutAPI
	bucket string
	prefix string
}

func NewS3Store(client S3PutAPI, bucket string, prefix string) (*S3Store, error) {
	if client == nil {
		return nil, core.ConfigurationError("blob: s3 client is required", nil)
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, core.ConfigurationError("blob: s3 bucket is required", nil)
	}
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(strings.TrimSpace(prefix), "/")}, nil
}

// NewS3StoreFromEnv loads the default AWS credential chain for region.
func NewS3StoreFromEnv(ctx context.Context, region, bucket, prefix string) (*S3Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region = strings.TrimSpace(region); region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, core.ConfigurationError("blob: aws config could not be loaded: "+err.Error(), nil)
	}
	return NewS3Store(s3.NewFromConfig(awsCfg), bucket, prefix)
}

func (s *S3Store) Put(ctx context.Context, objectPath string, contentType string, data []byte) (core.BlobObject, error) {
	key, err := cleanKey(objectPath)
	if err != nil {
		return core.BlobObject{}, err
	}
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return core.BlobObject{}, core.TransportError(err, "blob: s3 put failed", map[string]any{
			"bucket": s.bucket,
			"key":    key,
		})
	}
	return core.BlobObject{Path: key, ContentType: contentType, Size: int64(len(data))}, nil
}

var _ core.BlobStore = (*S3Store)(nil)
