// Package gcs stores statement PDFs in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// ObjectPrefix is where statement PDFs live inside the bucket.
const ObjectPrefix = "statements/"

// StorageService is the object-store boundary. It moves opaque bytes;
// nothing here knows what a statement is beyond its filename.
type StorageService interface {
	// UploadStatement writes the PDF bytes under the statements prefix
	// and returns the gs:// URI of the created object.
	UploadStatement(ctx context.Context, bucket, filename string, data []byte) (string, error)

	// Fetch downloads the bytes behind a gs:// URI.
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)

	// StatementExists reports whether a statement with this filename was
	// already uploaded.
	StatementExists(ctx context.Context, bucket, filename string) (bool, error)
}

// Service is the GCS-backed implementation of StorageService.
// It assumes Application Default Credentials are configured.
type Service struct {
	client *storage.Client
}

// NewService creates a Service with its own storage client.
func NewService(ctx context.Context) (*Service, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewService: create storage client: %w", err)
	}
	return &Service{client: client}, nil
}

// Close releases the underlying client.
func (s *Service) Close() error {
	return s.client.Close()
}

// UploadStatement implements StorageService. Attachments arrive as
// in-memory bytes from the email source, so there is no file path
// involved.
func (s *Service) UploadStatement(ctx context.Context, bucket, filename string, data []byte) (string, error) {
	objectName := ObjectPrefix + filename

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/pdf"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("UploadStatement: writing object %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("UploadStatement: finalizing object %s: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", bucket, objectName), nil
}

// Fetch implements StorageService.
func (s *Service) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, objectName, err := ParseURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	rc, err := s.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, objectName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}

	return data, nil
}

// StatementExists implements StorageService.
func (s *Service) StatementExists(ctx context.Context, bucket, filename string) (bool, error) {
	_, err := s.client.Bucket(bucket).Object(ObjectPrefix + filename).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("StatementExists: object attrs: %w", err)
	}
	return true, nil
}

// ParseURI splits a gs://bucket/object URI.
func ParseURI(gcsURI string) (bucket, objectName string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}

	return parts[0], parts[1], nil
}

// FilenameFromURI extracts the bare filename from a gs:// URI.
// e.g. "gs://bucket/statements/file.pdf" → "file.pdf".
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

var _ StorageService = (*Service)(nil)
