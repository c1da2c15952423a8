package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"careerDesk/internal/config"
)

// S3Store implements Blob for AWS S3 and S3-compatible services such as Cloudflare R2.
type S3Store struct {
	client     *s3.S3
	uploader   *s3manager.Uploader
	bucket     string
	publicBase string
}

// NewS3Store creates an S3 backed blob store.
func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	awsConfig := &aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("create s3 session: %w", err)
	}

	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Store{
		client:     s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		bucket:     cfg.Bucket,
		publicBase: publicBase,
	}, nil
}

// Upload uploads an object and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, key string, reader io.Reader, _ int64, contentType string) (string, error) {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %q to s3: %w", key, err)
	}
	return s.publicBase + "/" + key, nil
}

// Delete removes an object; missing objects are ignored.
func (s *S3Store) Delete(ctx context.Context, ref string) error {
	key := keyFromRef(s.publicBase, ref)
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil
		}
		return fmt.Errorf("delete %q from s3: %w", key, err)
	}
	return nil
}

// PresignedURL returns a temporary GET link.
func (s *S3Store) PresignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(keyFromRef(s.publicBase, key)),
	})
	signed, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}
	return signed, nil
}
