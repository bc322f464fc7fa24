package receiver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sentora-labs/rudp/internal/config"
)

// S3Mirror uploads a completed session's local file to an S3 bucket. It is
// invoked as a post-close hook after a session's sink has already been
// flushed and closed — mirroring runs against the durable local file, not
// an open stream. The FIN handler sends FIN_ACK once the upload attempt
// returns, whether or not it succeeded, so a failure here never changes
// the outcome reported to the sender (§7).
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Mirror builds a mirror from the receiver's S3 configuration. cfg.Enabled()
// must be true; callers typically skip construction otherwise.
func NewS3Mirror(ctx context.Context, cfg config.S3Config) (*S3Mirror, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &S3Mirror{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Upload copies localPath to the configured bucket under key
// "<prefix><basename>".
func (m *S3Mirror) Upload(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening file for s3 upload: %w", err)
	}
	defer f.Close()

	key := m.prefix + filepath.Base(localPath)
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &m.bucket,
		Key:    &key,
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("uploading %q to s3://%s/%s: %w", localPath, m.bucket, key, err)
	}
	return nil
}
