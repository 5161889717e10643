package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader stores proof videos in an S3-compatible bucket keyed by drum and
// timestamp. The returned object key is the video reference reported back to
// the MES.
type S3Uploader struct {
	bucket string
	drumID string
	client *s3.Client
}

// NewS3Uploader builds the S3 client. An empty endpoint targets AWS proper;
// a non-empty one (MinIO on the factory network) switches to path style.
func NewS3Uploader(ctx context.Context, region, endpoint, accessKey, secretKey, bucket, drumID string) (*S3Uploader, error) {
	loadOpts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(region),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{bucket: bucket, drumID: drumID, client: client}, nil
}

// Upload streams the file and returns its object key.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("proof-videos/%s/%s-%s",
		u.drumID, time.Now().UTC().Format("20060102T150405Z"), filepath.Base(localPath))

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("put video object %s: %w", key, err)
	}
	return key, nil
}
