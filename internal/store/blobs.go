package store

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/requester"
)

const storagePrefix = "/storage/v1/object/"

// BlobStore uploads and removes objects in the backend's object storage.
type BlobStore struct {
	doer    requester.Doer
	baseURL string
}

// NewBlobStore creates a BlobStore
func NewBlobStore(doer requester.Doer, cfg *config.BackendConfig) *BlobStore {
	return &BlobStore{doer: doer, baseURL: strings.TrimRight(cfg.URL, "/")}
}

// Upload stores body at bucket/objectPath. Existing objects are not replaced.
func (s *BlobStore) Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) error {
	return requester.DoJSON(ctx, s.doer, &requester.Request{
		Method:      http.MethodPost,
		Path:        storagePrefix + bucket + "/" + strings.TrimLeft(objectPath, "/"),
		RawBody:     body,
		ContentType: contentType,
		Headers: map[string]string{
			"cache-control": "max-age=3600",
			"x-upsert":      "false",
		},
	}, nil)
}

// Remove deletes the given objects of bucket.
func (s *BlobStore) Remove(ctx context.Context, bucket string, objectPaths ...string) error {
	if len(objectPaths) == 0 {
		return nil
	}
	return requester.DoJSON(ctx, s.doer, &requester.Request{
		Method: http.MethodDelete,
		Path:   storagePrefix + bucket,
		Body:   map[string][]string{"prefixes": objectPaths},
	}, nil)
}

// PublicURL is the unauthenticated download URL of an object.
func (s *BlobStore) PublicURL(bucket, objectPath string) string {
	return s.baseURL + storagePrefix + "public/" + bucket + "/" + strings.TrimLeft(objectPath, "/")
}
