// Package objectstore manages video files in S3: direct uploads, presigned
// browser uploads, public streaming URLs.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const keyPrefix = "videos/"

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

// PresignedUpload is what the browser needs for a direct-to-S3 POST.
type PresignedUpload struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

type Manager struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	region  string
}

// New builds an S3 manager using the default credential chain.
func New(ctx context.Context, bucket, region string) (*Manager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config failed: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &Manager{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		region:  region,
	}, nil
}

func (m *Manager) Bucket() string { return m.bucket }

// Upload stores a video under videos/ with a content type inferred from the
// extension.
func (m *Manager) Upload(ctx context.Context, filename string, content []byte) error {
	contentType, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		contentType = "video/mp4"
	}

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(m.bucket),
		Key:          aws.String(keyPrefix + filename),
		Body:         bytes.NewReader(content),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	})
	if err != nil {
		return fmt.Errorf("error uploading %s to S3: %w", filename, err)
	}
	return nil
}

// PresignUpload creates a presigned POST the browser can use to upload
// directly, bypassing this service.
func (m *Manager) PresignUpload(ctx context.Context, filename, contentType string) (*PresignedUpload, error) {
	resp, err := m.presign.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(keyPrefix + filename),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignPostOptions) {
		opts.Expires = 15 * time.Minute
	})
	if err != nil {
		return nil, fmt.Errorf("error presigning upload for %s: %w", filename, err)
	}
	return &PresignedUpload{URL: resp.URL, Fields: resp.Values}, nil
}

// PublicURL returns the public S3 URL for direct streaming.
func (m *Manager) PublicURL(filename string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s%s",
		m.bucket, m.region, keyPrefix, filename)
}

// ObjectPath returns the s3:// path persisted on video records.
func (m *Manager) ObjectPath(filename string) string {
	return fmt.Sprintf("s3://%s/%s%s", m.bucket, keyPrefix, filename)
}

func (m *Manager) Exists(ctx context.Context, filename string) (bool, error) {
	_, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(keyPrefix + filename),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("error checking %s in S3: %w", filename, err)
	}
	return true, nil
}

func (m *Manager) Delete(ctx context.Context, filename string) error {
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(keyPrefix + filename),
	})
	if err != nil {
		return fmt.Errorf("error deleting %s from S3: %w", filename, err)
	}
	return nil
}

// Download copies an s3://bucket/key path to a local temp file for
// processing, keeping the original extension. Caller removes the file.
func (m *Manager) Download(ctx context.Context, objectPath string) (string, error) {
	key := strings.TrimPrefix(objectPath, fmt.Sprintf("s3://%s/", m.bucket))
	if key == objectPath {
		return "", fmt.Errorf("object path %q does not belong to bucket %s", objectPath, m.bucket)
	}

	resp, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("error downloading %s from S3: %w", objectPath, err)
	}
	defer resp.Body.Close()

	ext := filepath.Ext(key)
	if ext == "" {
		ext = ".mp4"
	}
	tmp, err := os.CreateTemp("", "video-*"+ext)
	if err != nil {
		return "", fmt.Errorf("error creating temp video file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("error writing temp video file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("error writing temp video file: %w", err)
	}
	return tmp.Name(), nil
}
