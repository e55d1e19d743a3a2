package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig holds the parameters of a Google Cloud Storage destination.
// Credentials come from Application Default Credentials unless
// GCS_CREDENTIALS_JSON is set. A non-empty Endpoint (an emulator such as
// fake-gcs-server) disables authentication.
type GCSConfig struct {
	Bucket   string
	Endpoint string
	Prefix   string
}

// GCS stores files in a single Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS opens a Cloud Storage client for cfg.Bucket.
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	var opts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case strings.TrimSpace(os.Getenv("GCS_CREDENTIALS_JSON")) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(os.Getenv("GCS_CREDENTIALS_JSON"))))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}
	return &GCS{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCS) Driver() Driver { return DriverGCS }

// Close releases the underlying client.
func (s *GCS) Close() error { return s.client.Close() }

func (s *GCS) object(key string) (*storage.ObjectHandle, string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return nil, "", err
	}
	name := s.prefix + k
	return s.client.Bucket(s.bucket).Object(name), name, nil
}

func (s *GCS) Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error) {
	obj, name, err := s.object(key)
	if err != nil {
		return Info{}, err
	}
	if contentType == "" {
		contentType = ContentTypeFor(key)
	}
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	size, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return Info{}, fmt.Errorf("gcs write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return Info{}, fmt.Errorf("gcs write %s: %w", name, err)
	}
	info := Info{Key: key, Size: size, ContentType: contentType, LastModified: nowUTC()}
	if attrs := w.Attrs(); attrs != nil {
		info.LastModified = attrs.Updated
	}
	return info, nil
}

func (s *GCS) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	obj, name, err := s.object(key)
	if err != nil {
		return Info{}, nil, err
	}
	rd, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Info{}, nil, fmt.Errorf("gcs read %s: %w", name, err)
	}
	info := Info{
		Key:          key,
		Size:         rd.Attrs.Size,
		ContentType:  rd.Attrs.ContentType,
		LastModified: rd.Attrs.LastModified,
	}
	return info, rd, nil
}

func (s *GCS) List(ctx context.Context, prefix string) ([]Info, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix + prefix})
	var infos []Info
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list: %w", err)
		}
		infos = append(infos, Info{
			Key:          strings.TrimPrefix(attrs.Name, s.prefix),
			Size:         attrs.Size,
			ContentType:  attrs.ContentType,
			LastModified: attrs.Updated,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
