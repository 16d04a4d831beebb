package resources

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// Download links expire quickly; the client is expected to follow the
// redirect immediately.
const presignExpiry = 15 * time.Minute

// Client wraps the S3 client for storing and serving course resources.
// Downloads are served as short-lived presigned URLs so the bucket never
// needs to be public.
type Client struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	config        *Config
}

// NewClient creates a new course resource storage client
func NewClient(cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("resource storage is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	client := &Client{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		config:        cfg,
	}

	log.Infof("[Resources] Initialized S3 client for bucket: %s", cfg.GetBucketName())
	return client, nil
}

// PresignDownload returns a short-lived GET URL for a resource object.
func (c *Client) PresignDownload(ctx context.Context, objectKey, downloadName string) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(c.config.GetBucketName()),
		Key:    aws.String(objectKey),
	}
	if downloadName != "" {
		input.ResponseContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", downloadName))
	}

	req, err := c.presignClient.PresignGetObject(ctx, input, func(o *s3.PresignOptions) {
		o.Expires = presignExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectKey, err)
	}
	return req.URL, nil
}

// UploadResource stores a resource object under the course's key prefix and
// returns the object key.
func (c *Client) UploadResource(ctx context.Context, courseUUID, filename, contentType string, body io.Reader) (string, error) {
	objectKey := c.config.GetObjectKey(courseUUID, filename)

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.config.GetBucketName()),
		Key:    aws.String(objectKey),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.s3Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}

	log.Infof("[Resources] Uploaded object: %s", objectKey)
	return objectKey, nil
}

// DeleteResource removes a resource object.
func (c *Client) DeleteResource(ctx context.Context, objectKey string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.GetBucketName()),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", objectKey, err)
	}
	return nil
}
