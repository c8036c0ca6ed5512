package storage

import (
	"context"
	"time"
)

// AssetStore is the bucket-bound client the rest of the service uses. Every
// remote call is bounded by timeout; a call that times out is reported as a
// failure and is not retried.
type AssetStore struct {
	storage ObjectStorage
	bucket  string
	timeout time.Duration
}

func NewAssetStore(storage ObjectStorage, bucket string, timeout time.Duration) *AssetStore {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AssetStore{storage: storage, bucket: bucket, timeout: timeout}
}

// Bucket is the managed bucket uploads go to.
func (a *AssetStore) Bucket() string {
	return a.bucket
}

// Upload stores data at path in the managed bucket and returns its public URL.
func (a *AssetStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.storage.Upload(ctx, a.bucket, path, data, contentType)
}

// ListFiles lists objects under prefix in the managed bucket.
func (a *AssetStore) ListFiles(ctx context.Context, prefix string) ([]Object, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.storage.List(ctx, a.bucket, prefix)
}

// Delete removes paths from bucket, or from the managed bucket when bucket is
// empty. It never returns an error: a failed call marks every path it did not
// confirm as failed.
func (a *AssetStore) Delete(ctx context.Context, bucket string, paths []string) RemoveResult {
	if bucket == "" {
		bucket = a.bucket
	}
	if len(paths) == 0 {
		return RemoveResult{}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := a.storage.Remove(ctx, bucket, paths)
	if err == nil {
		return result
	}

	accounted := make(map[string]int, len(paths))
	for _, p := range result.Deleted {
		accounted[p]++
	}
	for _, f := range result.Failed {
		accounted[f.Path]++
	}
	for _, p := range paths {
		if accounted[p] > 0 {
			accounted[p]--
			continue
		}
		result.Failed = append(result.Failed, FailedRemoval{Path: p, Err: err})
	}
	return result
}
