package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config contains configuration for S3-compatible storage.
type S3Config struct {
	// Endpoint overrides the AWS endpoint, e.g. for Cloudflare R2.
	Endpoint    string
	Region      string
	AccessKeyID string
	SecretKey   string
	BucketName  string
	PublicURL   string
}

// R2 builds an S3Config for a Cloudflare R2 bucket.
func R2(accountID, accessKeyID, secretKey, bucket, publicURL string) S3Config {
	cfg := S3Config{
		Region:      "auto",
		AccessKeyID: accessKeyID,
		SecretKey:   secretKey,
		BucketName:  bucket,
		PublicURL:   publicURL,
	}
	if accountID != "" {
		cfg.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}
	return cfg
}

func (c S3Config) validate() error {
	if c.Region == "auto" && c.Endpoint == "" {
		return ErrR2AccountIDRequired
	}
	if c.AccessKeyID == "" || c.SecretKey == "" {
		return ErrCredentialsRequired
	}
	if c.BucketName == "" {
		return ErrBucketRequired
	}
	return nil
}

// S3Storage implements Storage on an S3 bucket.
type S3Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Storage creates a new S3-compatible storage implementation.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	credsProvider := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credsProvider),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:    client,
		bucket:    cfg.BucketName,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// Put uploads a file.
func (s *S3Storage) Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         content,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	return s.URL(key), nil
}

// Delete removes a file. S3 treats deleting a missing key as success.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// URL returns the public URL for accessing a file.
func (s *S3Storage) URL(key string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", s.publicURL, key)
	}
	return key
}
