package services

import (
	"context"
	"time"

	"github.com/rpupo63/consulting-site-backend/content"
	"github.com/rpupo63/consulting-site-backend/errs"
	"github.com/rpupo63/consulting-site-backend/models"
	"github.com/rpupo63/consulting-site-backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BodySource lists the fields of every post that may reference an asset.
type BodySource interface {
	FindBodies(ctx context.Context) ([]*models.BlogPost, error)
}

// BucketAssets is the managed bucket as seen by the scanner.
type BucketAssets interface {
	Bucket() string
	ListFiles(ctx context.Context, prefix string) ([]storage.Object, error)
	Delete(ctx context.Context, bucket string, paths []string) storage.RemoveResult
}

// OrphanScanner finds objects in the managed bucket that no post references,
// which is where a partially failed delete leaves its stragglers.
type OrphanScanner struct {
	posts    BodySource
	assets   BucketAssets
	resolver storage.Resolver
	minAge   time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

func NewOrphanScanner(posts BodySource, assets BucketAssets, resolver storage.Resolver, minAge time.Duration) *OrphanScanner {
	return &OrphanScanner{
		posts:    posts,
		assets:   assets,
		resolver: resolver,
		minAge:   minAge,
		now:      time.Now,
		logger:   log.With().Str("component", "OrphanScanner").Logger(),
	}
}

// Scan returns the unreferenced objects under prefix that are older than the
// grace period. Younger objects may belong to a post that is still being written.
func (s *OrphanScanner) Scan(ctx context.Context, prefix string) ([]storage.Object, error) {
	posts, err := s.posts.FindBodies(ctx)
	if err != nil {
		return nil, errs.NewDatabaseError("list", "blog posts", err)
	}
	objects, err := s.assets.ListFiles(ctx, prefix)
	if err != nil {
		return nil, errs.NewStorageError("list", err)
	}

	bucket := s.assets.Bucket()
	referenced := make(map[string]struct{})
	for _, p := range posts {
		urls := content.ExtractAssetURLs(p.Content)
		if p.CoverImageURL != "" {
			urls = append(urls, p.CoverImageURL)
		}
		for _, u := range urls {
			if loc, ok := s.resolver.Resolve(u); ok && loc.Bucket == bucket {
				referenced[loc.Path] = struct{}{}
			}
		}
	}

	cutoff := s.now().Add(-s.minAge)
	orphans := []storage.Object{}
	for _, obj := range objects {
		if _, ok := referenced[obj.Name]; ok {
			continue
		}
		if !obj.LastModified.IsZero() && obj.LastModified.After(cutoff) {
			continue
		}
		orphans = append(orphans, obj)
	}
	s.logger.Debug().Str("prefix", prefix).Int("objects", len(objects)).Int("orphans", len(orphans)).Msg("orphan scan finished")
	return orphans, nil
}

// Clean deletes what Scan finds and reports each path's outcome.
func (s *OrphanScanner) Clean(ctx context.Context, prefix string) ([]AssetOutcome, error) {
	orphans, err := s.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(orphans) == 0 {
		return []AssetOutcome{}, nil
	}

	bucket := s.assets.Bucket()
	paths := make([]string, len(orphans))
	for i, o := range orphans {
		paths[i] = o.Name
	}
	result := s.assets.Delete(ctx, bucket, paths)

	outcomes := make([]AssetOutcome, 0, len(paths))
	for _, p := range result.Deleted {
		outcomes = append(outcomes, AssetOutcome{Bucket: bucket, Path: p, Status: AssetDeleted})
	}
	for _, f := range result.Failed {
		reason := "unknown error"
		if f.Err != nil {
			reason = f.Err.Error()
		}
		outcomes = append(outcomes, AssetOutcome{Bucket: bucket, Path: f.Path, Status: AssetFailed, Reason: reason})
		s.logger.Warn().Str("path", f.Path).Str("reason", reason).Msg("orphan delete failed")
	}
	s.logger.Info().Int("deleted", len(result.Deleted)).Int("failed", len(result.Failed)).Msg("orphan clean finished")
	return outcomes, nil
}
