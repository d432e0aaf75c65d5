// Package blobstore opens model weight blobs by URI.
//
// Supported forms:
//
//	/path/to/weights.bin
//	file:///path/to/weights.bin
//	gs://bucket/path/to/weights.bin
//	https://host/path/to/weights.bin
//
// A missing blob is reported with an error for which
// errors.Is(err, os.ErrNotExist) is true, whatever the backend.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"
)

// ErrUnsupportedScheme is returned for URIs no backend understands.
var ErrUnsupportedScheme = errors.New("blobstore: unsupported scheme")

// Reader opens a blob for sequential reading.
type Reader interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Router dispatches on the URI scheme. Nil backends fall back to the
// package defaults.
type Router struct {
	Local Reader
	GCS   Reader
	HTTP  Reader
}

var _ Reader = (*Router)(nil)

// Open opens uri with the backend its scheme selects.
func (r *Router) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	backend, err := r.backend(uri)
	if err != nil {
		return nil, err
	}
	return backend.Open(ctx, uri)
}

func (r *Router) backend(uri string) (Reader, error) {
	scheme := ""
	if i := strings.Index(uri, "://"); i > 0 {
		scheme = strings.ToLower(uri[:i])
	}

	switch scheme {
	case "", "file":
		return orDefault(r.Local, &Local{}), nil
	case "gs":
		return orDefault(r.GCS, &GCS{}), nil
	case "http", "https":
		return orDefault(r.HTTP, &HTTP{}), nil
	default:
		return nil, fmt.Errorf("%w %q in %q", ErrUnsupportedScheme, scheme, uri)
	}
}

func orDefault(r, def Reader) Reader {
	if r != nil {
		return r
	}
	return def
}

var defaultRouter = &Router{}

// Open opens uri with the default backends.
func Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return defaultRouter.Open(ctx, uri)
}

// Local reads blobs from the local filesystem.
type Local struct{}

var _ Reader = (*Local)(nil)

// Open opens a plain path or a file:// URI.
func (l *Local) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	path := uri
	if strings.HasPrefix(uri, "file://") {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", uri, err)
		}
		path = u.Path
	}

	klog.FromContext(ctx).V(2).Info("opening local blob", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening blob: %w", err)
	}
	return f, nil
}

// Download copies the blob at uri to destinationPath. The file is written
// to a temporary name in the same directory and renamed into place, so a
// failed download never leaves a partial blob behind.
func Download(ctx context.Context, r Reader, uri, destinationPath string) (int64, error) {
	log := klog.FromContext(ctx)
	if r == nil {
		r = defaultRouter
	}

	src, err := r.Open(ctx, uri)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	tempFile, err := os.CreateTemp(filepath.Dir(destinationPath), "blob")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	shouldDeleteTempFile := true
	defer func() {
		if shouldDeleteTempFile {
			if err := os.Remove(tempFile.Name()); err != nil {
				log.Error(err, "removing temp file", "path", tempFile.Name())
			}
		}
	}()

	n, err := io.Copy(tempFile, src)
	if err != nil {
		_ = tempFile.Close()
		return 0, fmt.Errorf("downloading %q: %w", uri, err)
	}
	if err := tempFile.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempFile.Name(), destinationPath); err != nil {
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	shouldDeleteTempFile = false

	log.Info("downloaded blob", "source", uri, "destination", destinationPath, "bytes", n)
	return n, nil
}
