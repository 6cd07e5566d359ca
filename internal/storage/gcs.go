package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/AlexPietrow/HelioSaver/internal/logger"
)

// GCSClient stores artifacts in a Google Cloud Storage bucket
type GCSClient struct {
	client *gcs.Client
	bucket string
	log    *logger.Logger
}

// NewGCSClient creates a GCS storage client for the given bucket
func NewGCSClient(ctx context.Context, bucketName string) (*GCSClient, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSClient{
		client: client,
		bucket: bucketName,
		log:    logger.Global().WithComponent("storage"),
	}, nil
}

// Close closes the underlying GCS client
func (g *GCSClient) Close() error {
	return g.client.Close()
}

// StoreFile uploads data to the bucket at the relative object path. GCS
// object writes are atomic: the object only becomes visible when the
// writer closes successfully.
func (g *GCSClient) StoreFile(ctx context.Context, relPath string, data []byte) error {
	g.log.Debugf("storing gs://%s/%s", g.bucket, relPath)

	obj := g.client.Bucket(g.bucket).Object(relPath)
	w := obj.NewWriter(ctx)
	w.ContentType = ContentTypeFor(relPath)
	w.Metadata = map[string]string{
		"stored-at": time.Now().UTC().Format(time.RFC3339),
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", g.bucket, relPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", g.bucket, relPath, err)
	}
	return nil
}

// Exists reports whether an object exists at the relative path
func (g *GCSClient) Exists(ctx context.Context, relPath string) (bool, error) {
	_, err := g.client.Bucket(g.bucket).Object(relPath).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat gs://%s/%s: %w", g.bucket, relPath, err)
}

// List returns object paths under a prefix, sorted lexically
func (g *GCSClient) List(ctx context.Context, prefix string) ([]string, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var paths []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", g.bucket, prefix, err)
		}
		paths = append(paths, attrs.Name)
	}
	sort.Strings(paths)
	return paths, nil
}

// Location returns the gs:// URL for a relative path
func (g *GCSClient) Location(relPath string) string {
	return fmt.Sprintf("gs://%s/%s", g.bucket, relPath)
}
