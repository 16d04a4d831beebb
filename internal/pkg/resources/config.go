package resources

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aicser/aicser-studio/internal/pkg/env"
)

// Config holds S3 configuration for course resource storage
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads resource storage configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-west-001"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("S3_RESOURCES_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when resource storage is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when resource storage is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when resource storage is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if resource storage is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// GetObjectKey generates a standardized S3 object key for a course resource
func (c *Config) GetObjectKey(courseUUID, filename string) string {
	// Format: courses/UUID/filename
	return fmt.Sprintf("courses/%s/%s", courseUUID, path.Base(strings.TrimSpace(filename)))
}

// GetBucketName returns the bucket name as configured
func (c *Config) GetBucketName() string {
	return c.BucketName
}
