// Package attachment manages form attachments held in S3-compatible object
// storage. Files never pass through the service: callers receive presigned
// upload/download URLs and talk to the bucket directly.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gopkg.in/yaml.v3"

	"github.com/skillstorm/reimbursement/model"
)

// ErrUnsupportedType is returned when a content type fails the per-slot
// allow-list.
var ErrUnsupportedType = errors.New("attachment: unsupported content type")

// Store hands out presigned URLs for attachment objects.
type Store interface {
	UploadURL(ctx context.Context, key, contentType string) (string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

// Key derives the object key for a form's attachment slot.
func Key(formID string, slot model.AttachmentType) string {
	return fmt.Sprintf("%s/%s", formID, strings.ToLower(string(slot)))
}

var eventContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpg":       true,
	"image/jpeg":      true,
	"text/plain":      true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

var completionContentTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.openxmlformats-officedocument.presentationml.slideshow":    true,
}

// ValidContentType reports whether contentType is acceptable for the slot.
// Pre-approval slots only take forwarded Outlook messages; completion proof
// is a presentation.
func ValidContentType(slot model.AttachmentType, contentType string) bool {
	switch slot {
	case model.AttachmentEvent:
		return eventContentTypes[contentType]
	case model.AttachmentSupervisorApproval, model.AttachmentDepartmentHeadApproval:
		return strings.EqualFold(contentType, "application/vnd.ms-outlook")
	case model.AttachmentProofOfCompletion:
		return completionContentTypes[contentType]
	}
	return false
}

// Config holds the object-storage connection settings.
type Config struct {
	Endpoint  string        `json:"endpoint" yaml:"endpoint"`
	AccessKey string        `json:"accessKey" yaml:"accessKey"`
	SecretKey string        `json:"secretKey" yaml:"secretKey"`
	Bucket    string        `json:"bucket" yaml:"bucket"`
	UseSSL    bool          `json:"useSSL" yaml:"useSSL"`
	URLExpiry time.Duration `json:"urlExpiry" yaml:"urlExpiry"`
}

// UnmarshalYAML accepts Go duration syntax ("15m") for the URL expiry.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"accessKey"`
		SecretKey string `yaml:"secretKey"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"useSSL"`
		URLExpiry string `yaml:"urlExpiry"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.Endpoint = raw.Endpoint
	c.AccessKey = raw.AccessKey
	c.SecretKey = raw.SecretKey
	c.Bucket = raw.Bucket
	c.UseSSL = raw.UseSSL
	if raw.URLExpiry != "" {
		expiry, err := time.ParseDuration(raw.URLExpiry)
		if err != nil {
			return fmt.Errorf("invalid urlExpiry %q: %w", raw.URLExpiry, err)
		}
		c.URLExpiry = expiry
	}
	return nil
}

type s3Store struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewS3Store connects a Store to an S3-compatible endpoint.
func NewS3Store(config Config) (Store, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect object storage: %w", err)
	}
	expiry := config.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &s3Store{client: client, bucket: config.Bucket, expiry: expiry}, nil
}

func (s *s3Store) UploadURL(ctx context.Context, key, _ string) (string, error) {
	signed, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}
	return signed.String(), nil
}

func (s *s3Store) DownloadURL(ctx context.Context, key string) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}
	return signed.String(), nil
}
