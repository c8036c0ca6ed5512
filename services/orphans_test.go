package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/consulting-site-backend/models"
	"github.com/rpupo63/consulting-site-backend/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrphanFixture(t *testing.T) (*OrphanScanner, *storage.MemoryStorage) {
	t.Helper()
	mem := storage.NewMemoryStorage(publicBase)
	ctx := context.Background()

	mem.SetClock(fixedClock(now.Add(-48 * time.Hour)))
	for _, p := range []string{"blog/used.png", "blog/cover.png", "blog/stale.png", "courses/stale.png"} {
		_, err := mem.Upload(ctx, "images", p, []byte("img"), "image/png")
		require.NoError(t, err)
	}
	mem.SetClock(fixedClock(now.Add(-time.Hour)))
	_, err := mem.Upload(ctx, "images", "blog/fresh.png", []byte("img"), "image/png")
	require.NoError(t, err)

	posts := newFakePostStore()
	require.NoError(t, posts.Add(ctx, &models.BlogPost{
		ID:            uuid.New(),
		Content:       fmt.Sprintf(`<img src="%s"><img src="https://ext.example.com/x.png">`, assetURL("blog/used.png")),
		CoverImageURL: assetURL("blog/cover.png"),
	}))

	scanner := NewOrphanScanner(posts, storage.NewAssetStore(mem, "images", time.Second), storage.NewResolver(publicBase, "images"), 24*time.Hour)
	scanner.now = fixedClock(now)
	return scanner, mem
}

func names(objects []storage.Object) []string {
	out := make([]string, len(objects))
	for i, o := range objects {
		out[i] = o.Name
	}
	return out
}

func TestScanFindsUnreferencedObjectsPastGracePeriod(t *testing.T) {
	scanner, _ := newOrphanFixture(t)

	orphans, err := scanner.Scan(context.Background(), "blog/")
	require.NoError(t, err)
	assert.Equal(t, []string{"blog/stale.png"}, names(orphans))

	orphans, err = scanner.Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"blog/stale.png", "courses/stale.png"}, names(orphans))
}

func TestCleanDeletesOnlyOrphans(t *testing.T) {
	scanner, mem := newOrphanFixture(t)

	outcomes, err := scanner.Clean(context.Background(), "blog/")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, AssetOutcome{Bucket: "images", Path: "blog/stale.png", Status: AssetDeleted}, outcomes[0])

	assert.False(t, mem.Has("images", "blog/stale.png"))
	for _, p := range []string{"blog/used.png", "blog/cover.png", "blog/fresh.png", "courses/stale.png"} {
		assert.True(t, mem.Has("images", p), p)
	}

	outcomes, err = scanner.Clean(context.Background(), "blog/")
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}
