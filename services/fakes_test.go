package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/consulting-site-backend/models"
	"github.com/rpupo63/consulting-site-backend/storage"
	"gorm.io/gorm"
)

const publicBase = "https://store"

func assetURL(path string) string {
	return storage.PublicURL(publicBase, "images", path)
}

type fakePostStore struct {
	mu        sync.Mutex
	posts     map[uuid.UUID]models.BlogPost
	deleteErr error
	calls     int
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: make(map[uuid.UUID]models.BlogPost)}
}

func (s *fakePostStore) Add(ctx context.Context, post *models.BlogPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	s.posts[post.ID] = *post
	return nil
}

func (s *fakePostStore) Update(ctx context.Context, post *models.BlogPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.posts[post.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.posts[post.ID] = *post
	return nil
}

func (s *fakePostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &post, nil
}

func (s *fakePostStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.posts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *fakePostStore) FindBodies(ctx context.Context) ([]*models.BlogPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.BlogPost
	for _, p := range s.posts {
		p := p
		out = append(out, &p)
	}
	return out, nil
}

type fakeDeletionLog struct {
	entries []*models.PostDeletionLog
	err     error
}

func (l *fakeDeletionLog) Add(ctx context.Context, entry *models.PostDeletionLog) error {
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, entry)
	return nil
}

// recordingStorage wraps MemoryStorage, records every removed path and fails
// the paths listed in failing.
type recordingStorage struct {
	*storage.MemoryStorage
	mu      sync.Mutex
	removed []string
	failing map[string]error
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{MemoryStorage: storage.NewMemoryStorage(publicBase), failing: map[string]error{}}
}

func (r *recordingStorage) Remove(ctx context.Context, bucket string, paths []string) (storage.RemoveResult, error) {
	r.mu.Lock()
	r.removed = append(r.removed, paths...)
	var fail error
	for _, p := range paths {
		if err, ok := r.failing[p]; ok {
			fail = err
		}
	}
	r.mu.Unlock()

	if fail != nil {
		return storage.RemoveResult{}, fail
	}
	return r.MemoryStorage.Remove(ctx, bucket, paths)
}

func (r *recordingStorage) Removed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.removed...)
}

func (r *recordingStorage) put(path string) {
	_, _ = r.MemoryStorage.Upload(context.Background(), "images", path, []byte("img"), "image/png")
}

var errRemote = errors.New("remote rejected the request")

type failingUploader struct{}

func (failingUploader) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	return "", errRemote
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeOperator struct {
	mu      sync.Mutex
	reports []*DeleteReport
	err     error
}

func (o *fakeOperator) NotifyDeleteFailed(_ context.Context, _ *models.BlogPost, report *DeleteReport) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, report)
	return o.err
}
