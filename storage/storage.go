// Package storage talks to the object-storage bucket that holds uploaded images
// and maps their public URLs back to bucket paths.
package storage

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Object is a stored file. Name is the full path inside the bucket.
type Object struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// FailedRemoval is a path that could not be removed and the reason.
type FailedRemoval struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// RemoveResult splits a batch removal into the paths that are gone and the ones that are not.
type RemoveResult struct {
	Deleted []string
	Failed  []FailedRemoval
}

// ObjectStorage is the remote object store. Every call may fail independently.
type ObjectStorage interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
	Remove(ctx context.Context, bucket string, paths []string) (RemoveResult, error)
}

const publicObjectSegment = "/object/public/"

// PublicURL builds the public URL of path in bucket under base, e.g.
// https://xyz.supabase.co/storage/v1 + images + blog/a.png ->
// https://xyz.supabase.co/storage/v1/object/public/images/blog/a.png
func PublicURL(base, bucket, path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + publicObjectSegment + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
