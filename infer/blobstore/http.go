package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"k8s.io/klog/v2"
)

// HTTP reads blobs with GET requests.
type HTTP struct {
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

var _ Reader = (*HTTP)(nil)

// Open issues a GET for uri and returns the response body.
func (h *HTTP) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	log := klog.FromContext(ctx)

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	log.Info("downloading from url", "url", uri)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", uri, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %q: %w", uri, os.ErrNotExist)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %q: unexpected status %q", uri, resp.Status)
	}
	return resp.Body, nil
}
