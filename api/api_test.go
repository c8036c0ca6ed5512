package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/consulting-site-backend/content"
	"github.com/rpupo63/consulting-site-backend/editor"
	"github.com/rpupo63/consulting-site-backend/models"
	"github.com/rpupo63/consulting-site-backend/services"
	"github.com/rpupo63/consulting-site-backend/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSecret = "test-secret"
	publicBase = "https://store"
)

type fakePosts struct {
	mu        sync.Mutex
	posts     map[uuid.UUID]models.BlogPost
	findErr   error
	deleteErr error
	// onWrite runs inside Add and Delete, before the change is stored.
	onWrite func()
}

func (f *fakePosts) FindAll(ctx context.Context) ([]*models.BlogPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BlogPost
	for _, p := range f.posts {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out, nil
}

func (f *fakePosts) FindBodies(ctx context.Context) ([]*models.BlogPost, error) {
	return f.FindAll(ctx)
}

func (f *fakePosts) FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (f *fakePosts) Add(ctx context.Context, post *models.BlogPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onWrite != nil {
		f.onWrite()
	}
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	f.posts[post.ID] = *post
	return nil
}

func (f *fakePosts) Update(ctx context.Context, post *models.BlogPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[post.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.posts[post.ID] = *post
	return nil
}

func (f *fakePosts) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onWrite != nil {
		f.onWrite()
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.posts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.posts, id)
	return nil
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []*models.PostDeletionLog
}

func (f *fakeLogs) Add(ctx context.Context, entry *models.PostDeletionLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLogs) FindRecent(ctx context.Context, limit int) ([]*models.PostDeletionLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, nil
}

type testServer struct {
	handler http.Handler
	posts   *fakePosts
	logs    *fakeLogs
	mem     *storage.MemoryStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		posts: &fakePosts{posts: map[uuid.UUID]models.BlogPost{}},
		logs:  &fakeLogs{},
		mem:   storage.NewMemoryStorage(publicBase),
	}
	assets := storage.NewAssetStore(ts.mem, "images", time.Second)
	resolver := storage.NewResolver(publicBase, "images")

	svc := Services{
		Posts:        ts.posts,
		DeletionLogs: ts.logs,
		Lifecycle: services.NewPostLifecycle(services.PostLifecycleConfig{
			Posts:       ts.posts,
			DeletionLog: ts.logs,
			Assets:      assets,
			Resolver:    resolver,
			Text:        content.HTML2Text{},
		}),
		Uploader: services.NewImageUploader(assets, []string{"blog"}, 1024),
		Assets:   assets,
		Orphans:  services.NewOrphanScanner(ts.posts, assets, resolver, 0),
	}
	ts.handler = newRouter(svc, withConfig(map[string]string{"SUPABASE_JWT_SECRET": testSecret}), withStartupTime(time.Now()))
	return ts
}

func token(t *testing.T, subject string, expiresIn time.Duration) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (ts *testServer) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+token(t, "user-1", time.Hour))
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestAdminRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/blog-post", map[string]string{"title": "x"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/assets", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "user-1", -time.Minute))
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")

	req = httptest.NewRequest(http.MethodGet, "/assets", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateGetAndListBlogPost(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.mem.Upload(context.Background(), "images", "blog/a.png", []byte("img"), "image/png")
	require.NoError(t, err)
	cover := storage.PublicURL(publicBase, "images", "blog/a.png")

	rec := ts.do(t, http.MethodPost, "/blog-post", map[string]any{
		"title":      "Hello",
		"categoryId": uuid.New(),
		"content":    fmt.Sprintf(`<p>hello</p><img src="%s">`, cover),
		"authorId":   "ignored",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[models.BlogPost](t, rec)
	assert.Equal(t, "user-1", created.AuthorID)
	assert.Equal(t, cover, created.CoverImageURL)
	assert.Equal(t, "hello", created.Summary)

	rec = ts.do(t, http.MethodGet, "/blog-post/"+created.ID.String(), nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[models.BlogPost](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/blog-posts", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[BlogPostCollection](t, rec).Total)
}

func TestCreateBlogPostValidation(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/blog-post", map[string]any{"title": "x", "content": "<p>x</p>"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "categoryId", decode[ErrorResponse](t, rec).Field)
	assert.Empty(t, ts.posts.posts)
}

func TestGetBlogPostErrors(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/blog-post/nope", nil, false).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/blog-post/"+uuid.NewString(), nil, false).Code)
}

func TestUpdateBlogPostKeepsAuthor(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.posts.posts[id] = models.BlogPost{ID: id, Title: "old", AuthorID: "original", Content: "<p>old</p>"}

	rec := ts.do(t, http.MethodPut, "/blog-post/"+id.String(), map[string]any{
		"title": "new", "categoryId": uuid.New(), "content": "<p>new body</p>",
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decode[models.BlogPost](t, rec)
	assert.Equal(t, "original", updated.AuthorID)
	assert.Equal(t, "new body", updated.Summary)
}

func TestDeleteBlogPostReturnsReport(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.mem.Upload(context.Background(), "images", "blog/a.png", []byte("img"), "image/png")
	require.NoError(t, err)
	a := storage.PublicURL(publicBase, "images", "blog/a.png")

	id := uuid.New()
	ts.posts.posts[id] = models.BlogPost{
		ID:            id,
		Content:       fmt.Sprintf(`<img src="%s"><img src="https://ext.example.com/b.png">`, a),
		CoverImageURL: a,
	}

	rec := ts.do(t, http.MethodDelete, "/blog-post/"+id.String(), nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[services.DeleteReport](t, rec)
	assert.Equal(t, "1 asset deleted, 0 failed, 1 skipped, post deleted", report.Message)
	assert.False(t, ts.mem.Has("images", "blog/a.png"))

	rec = ts.do(t, http.MethodGet, "/blog-post-deletions", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]models.PostDeletionLog](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "user-1", entries[0].ActorID)
}

func TestDeleteBlogPostRecordFailureKeepsReport(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.posts.posts[id] = models.BlogPost{ID: id, Content: "<p>x</p>"}
	ts.posts.deleteErr = errors.New("connection refused")

	rec := ts.do(t, http.MethodDelete, "/blog-post/"+id.String(), nil, true)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	resp := decode[DeleteFailedResponse](t, rec)
	require.NotNil(t, resp.Report)
	assert.False(t, resp.Report.RecordDeleted)
	assert.Equal(t, "error", resp.Status)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestDeleteMissingBlogPost(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodDelete, "/blog-post/"+uuid.NewString(), nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartUpload(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "upload.bin")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/assets/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, "user-1", time.Hour))
	return req
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func TestUploadImageAndList(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, multipartUpload(t, map[string]string{"folder": "blog", "body": "<p>x</p>", "alt": "pic"}, pngBytes))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	result := decode[services.UploadResult](t, rec)
	assert.True(t, ts.mem.Has("images", result.Path))
	require.NotNil(t, result.Body)
	assert.Contains(t, *result.Body, result.URL)

	rec = ts.do(t, http.MethodGet, "/assets?prefix=blog/", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	objects := decode[[]storage.Object](t, rec)
	require.Len(t, objects, 1)
	assert.Equal(t, result.Path, objects[0].Name)
}

func TestUploadImageRejections(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, multipartUpload(t, map[string]string{"folder": "blog"}, []byte("plain text")))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, multipartUpload(t, map[string]string{"folder": "blog"}, make([]byte, 4096)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, multipartUpload(t, map[string]string{"folder": "blog"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrphanScanAndClean(t *testing.T) {
	ts := newTestServer(t)
	for _, p := range []string{"blog/used.png", "blog/orphan.png"} {
		_, err := ts.mem.Upload(context.Background(), "images", p, []byte("img"), "image/png")
		require.NoError(t, err)
	}
	id := uuid.New()
	ts.posts.posts[id] = models.BlogPost{ID: id, Content: fmt.Sprintf(`<img src="%s">`, storage.PublicURL(publicBase, "images", "blog/used.png"))}

	rec := ts.do(t, http.MethodGet, "/assets/orphans?prefix=blog/", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	scan := decode[OrphanScanResponse](t, rec)
	require.Equal(t, 1, scan.Total)
	assert.Equal(t, "blog/orphan.png", scan.Orphans[0].Name)

	rec = ts.do(t, http.MethodDelete, "/assets/orphans?prefix=blog/", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[OrphanCleanResponse](t, rec).Deleted)
	assert.False(t, ts.mem.Has("images", "blog/orphan.png"))
	assert.True(t, ts.mem.Has("images", "blog/used.png"))
}

func TestEditorCommands(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/editor/commands", EditorRequest{
		Body: "<p>hello</p>",
		Commands: []editor.Command{
			{Name: "bold"},
			{Name: "select", Block: 0, Start: 0, End: 5},
			{Name: "bold"},
			{Name: "heading", Level: 2},
		},
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[EditorResponse](t, rec)
	assert.Equal(t, "<h2><strong>hello</strong></h2>", resp.Body)
	assert.Equal(t, []bool{false, true, true, true}, resp.Applied)
	assert.Equal(t, 2, resp.Changes)

	rec = ts.do(t, http.MethodPost, "/editor/commands", EditorRequest{Commands: []editor.Command{{Name: "explode"}}}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// cancelledDuringWrite returns an authed request whose context is cancelled
// while the store is handling it, as when the client disconnects mid-call.
func (ts *testServer) cancelledDuringWrite(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts.posts.onWrite = cancel

	req := httptest.NewRequest(method, path, reader).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token(t, "user-1", time.Hour))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestDeleteCompletesWhenClientGoesAway(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.mem.Upload(context.Background(), "images", "blog/a.png", []byte("img"), "image/png")
	require.NoError(t, err)
	id := uuid.New()
	ts.posts.posts[id] = models.BlogPost{
		ID:      id,
		Content: fmt.Sprintf(`<img src="%s">`, storage.PublicURL(publicBase, "images", "blog/a.png")),
	}

	rec := ts.cancelledDuringWrite(t, http.MethodDelete, "/blog-post/"+id.String(), nil)

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.NotContains(t, rec.Body.String(), "post deleted")
	assert.NotContains(t, ts.posts.posts, id)
	assert.False(t, ts.mem.Has("images", "blog/a.png"))
	require.Len(t, ts.logs.entries, 1)
	assert.True(t, ts.logs.entries[0].RecordDeleted)
}

func TestCreateCompletesWhenClientGoesAway(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.cancelledDuringWrite(t, http.MethodPost, "/blog-post", map[string]any{
		"title": "Hello", "categoryId": uuid.New(), "content": "<p>body</p>",
	})

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Hello")
	require.Len(t, ts.posts.posts, 1)
	for _, p := range ts.posts.posts {
		assert.Equal(t, "Hello", p.Title)
		assert.Equal(t, "user-1", p.AuthorID)
	}
}

func TestDatabaseTimeoutAsksClientToRetry(t *testing.T) {
	ts := newTestServer(t)
	ts.posts.findErr = fmt.Errorf("select post: %w", context.DeadlineExceeded)

	rec := ts.do(t, http.MethodGet, "/blog-post/"+uuid.NewString(), nil, false)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))

	ts.posts.findErr = nil
	rec = ts.do(t, http.MethodGet, "/blog-post/"+uuid.NewString(), nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestUnknownRouteIsJSONNotFound(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/nope", nil, false)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", decode[ErrorResponse](t, rec).Error)
}

func TestUnexpectedErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponder(zerolog.Nop()).WriteError(rec, errors.New("dial tcp 10.0.0.5:5432: secret"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "An unexpected error occurred", body.Details)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
