package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"k8s.io/klog/v2"
)

// GCS reads gs://bucket/object URIs from Google Cloud Storage using
// application default credentials.
type GCS struct {
	// NewClient overrides client construction.
	NewClient func(ctx context.Context) (*storage.Client, error)
}

var _ Reader = (*GCS)(nil)

// Open starts a streaming read of the object. Closing the reader also
// closes the client.
func (g *GCS) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	log := klog.FromContext(ctx)

	bucket, object, err := parseGCS(uri)
	if err != nil {
		return nil, err
	}

	newClient := g.NewClient
	if newClient == nil {
		newClient = func(ctx context.Context) (*storage.Client, error) {
			return storage.NewClient(ctx)
		}
	}
	client, err := newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS storage client: %w", err)
	}

	log.Info("reading blob from GCS", "url", uri)
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		_ = client.Close()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("opening object from GCS %q: %w: %w", uri, err, os.ErrNotExist)
		}
		return nil, fmt.Errorf("opening object from GCS %q: %w", uri, err)
	}
	log.V(2).Info("opened GCS object", "url", uri, "bytes", r.Attrs.Size)

	return &gcsReader{Reader: r, client: client}, nil
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	return errors.Join(r.Reader.Close(), r.client.Close())
}

// parseGCS splits gs://bucket/object.
func parseGCS(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not a gs:// URI", ErrUnsupportedScheme, uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("blobstore: %q must name a bucket and an object", uri)
	}
	return bucket, object, nil
}
