package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rpupo63/consulting-site-backend/errs"
)

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryStorage keeps objects in process memory. It backs STORAGE_DRIVER=memory
// for local development and the tests.
type MemoryStorage struct {
	mu         sync.RWMutex
	buckets    map[string]map[string]memoryObject
	publicBase string
	now        func() time.Time
}

func NewMemoryStorage(publicBase string) *MemoryStorage {
	return &MemoryStorage{
		buckets:    make(map[string]map[string]memoryObject),
		publicBase: publicBase,
		now:        time.Now,
	}
}

func (m *MemoryStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.buckets[bucket] == nil {
		m.buckets[bucket] = make(map[string]memoryObject)
	}
	m.buckets[bucket][path] = memoryObject{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		modified:    m.now(),
	}
	return PublicURL(m.publicBase, bucket, path), nil
}

func (m *MemoryStorage) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var objects []Object
	for name, obj := range m.buckets[bucket] {
		if strings.HasPrefix(name, prefix) {
			objects = append(objects, Object{Name: name, Size: int64(len(obj.data)), LastModified: obj.modified})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func (m *MemoryStorage) Remove(ctx context.Context, bucket string, paths []string) (RemoveResult, error) {
	if err := ctx.Err(); err != nil {
		return RemoveResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var result RemoveResult
	for _, p := range paths {
		if _, ok := m.buckets[bucket][p]; !ok {
			result.Failed = append(result.Failed, FailedRemoval{Path: p, Err: errs.ErrAssetNotFound})
			continue
		}
		delete(m.buckets[bucket], p)
		result.Deleted = append(result.Deleted, p)
	}
	return result, nil
}

// Has reports whether path exists in bucket.
func (m *MemoryStorage) Has(bucket, path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.buckets[bucket][path]
	return ok
}

// SetClock replaces the time source used for LastModified.
func (m *MemoryStorage) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
