package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSSink keeps backups as objects in a Cloud Storage bucket.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSink connects to Cloud Storage. An empty credentialsFile falls back
// to application default credentials.
func NewGCSSink(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSSink, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("backup: gcs bucket is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("backup: gcs client: %w", err)
	}
	return &GCSSink{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSSink) object(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return path.Join(s.prefix, name), nil
}

// Write uploads data as a JSON object and returns its gs:// location.
func (s *GCSSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	obj, err := s.object(name)
	if err != nil {
		return "", err
	}
	w := s.client.Bucket(s.bucket).Object(obj).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("backup: upload %s: %w", obj, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("backup: upload %s: %w", obj, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, obj), nil
}

// Read downloads the backup called name.
func (s *GCSSink) Read(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(obj).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("backup: download %s: %w", obj, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("backup: download %s: %w", obj, err)
	}
	return data, nil
}

// List returns the names of objects under the sink prefix.
func (s *GCSSink) List(ctx context.Context) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("backup: list: %w", err)
		}
		names = append(names, path.Base(attrs.Name))
	}
	return names, nil
}

// Close releases the storage client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}
