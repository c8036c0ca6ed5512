package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rpupo63/consulting-site-backend/content"
	"github.com/rpupo63/consulting-site-backend/errs"
	"github.com/rpupo63/consulting-site-backend/models"
	"github.com/rpupo63/consulting-site-backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// PostStore is the record store for posts.
type PostStore interface {
	Add(ctx context.Context, post *models.BlogPost) error
	Update(ctx context.Context, post *models.BlogPost) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DeletionLogger persists the outcome of a delete.
type DeletionLogger interface {
	Add(ctx context.Context, entry *models.PostDeletionLog) error
}

// AssetDeleter removes objects from a bucket and reports each path's outcome.
type AssetDeleter interface {
	Delete(ctx context.Context, bucket string, paths []string) storage.RemoveResult
}

// PostLifecycleConfig wires the collaborators of a PostLifecycle. Zero
// DeleteConcurrency, RecordTimeout and Now fall back to 4, 15s and time.Now.
// Operator and DeletionLog are optional.
type PostLifecycleConfig struct {
	Posts       PostStore
	DeletionLog DeletionLogger
	Operator    OperatorNotifier
	Assets      AssetDeleter
	Resolver    storage.Resolver
	Text        content.TextExtractor

	SummaryMaxChars   int
	DeleteConcurrency int
	// RecordTimeout bounds each record store call made by Save and Delete.
	RecordTimeout time.Duration
	Now           func() time.Time
}

// PostLifecycle creates, updates and deletes posts together with the assets
// their bodies reference.
type PostLifecycle struct {
	posts       PostStore
	deletionLog DeletionLogger
	operator    OperatorNotifier
	assets      AssetDeleter
	resolver    storage.Resolver
	text        content.TextExtractor
	validate    *validator.Validate

	summaryMaxChars   int
	deleteConcurrency int
	recordTimeout     time.Duration
	now               func() time.Time
	logger            zerolog.Logger
}

func NewPostLifecycle(cfg PostLifecycleConfig) *PostLifecycle {
	l := &PostLifecycle{
		posts:             cfg.Posts,
		deletionLog:       cfg.DeletionLog,
		operator:          cfg.Operator,
		assets:            cfg.Assets,
		resolver:          cfg.Resolver,
		text:              cfg.Text,
		validate:          newValidator(),
		summaryMaxChars:   cfg.SummaryMaxChars,
		deleteConcurrency: cfg.DeleteConcurrency,
		recordTimeout:     cfg.RecordTimeout,
		now:               cfg.Now,
		logger:            log.With().Str("component", "PostLifecycle").Logger(),
	}
	if l.deleteConcurrency <= 0 {
		l.deleteConcurrency = 4
	}
	if l.recordTimeout <= 0 {
		l.recordTimeout = 15 * time.Second
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// SaveInput is what an author submits. Summary, cover image and publish time
// are derived and cannot be supplied.
type SaveInput struct {
	Title      string    `json:"title" validate:"required,max=300"`
	CategoryID uuid.UUID `json:"categoryId" validate:"required"`
	Content    string    `json:"content" validate:"required"`
}

// Validate trims the input and checks it, returning the first problem as a
// field error.
func (l *PostLifecycle) Validate(in *SaveInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)

	err := l.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errs.NewMalformedPayloadError("blog post", err)
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return errs.NewMissingRequiredFieldError(fe.Field())
	}
	return errs.NewInvalidFieldError(fe.Field(), fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param()))
}

// Derive computes the summary and cover image of body. It is a pure function
// of body: saving the same body twice yields the same values.
func (l *PostLifecycle) Derive(body string) (summary, coverImageURL string) {
	return content.Summary(l.text, body, l.summaryMaxChars), content.CoverImageURL(body)
}

// Save creates a post when id is uuid.Nil and updates post id otherwise.
func (l *PostLifecycle) Save(ctx context.Context, id uuid.UUID, in SaveInput, actorID string) (*models.BlogPost, error) {
	if id == uuid.Nil {
		return l.Create(ctx, in, actorID)
	}
	return l.Update(ctx, id, in)
}

// Create validates in, derives the computed fields and inserts a new post
// owned by authorID.
func (l *PostLifecycle) Create(ctx context.Context, in SaveInput, authorID string) (*models.BlogPost, error) {
	if strings.TrimSpace(authorID) == "" {
		return nil, errs.NewMissingRequiredFieldError("authorId")
	}
	post, err := l.build(in)
	if err != nil {
		return nil, err
	}
	post.AuthorID = authorID

	ctx, cancel := context.WithTimeout(ctx, l.recordTimeout)
	defer cancel()
	if err := l.posts.Add(ctx, post); err != nil {
		return nil, errs.NewDatabaseError("create", "blog post", err)
	}
	l.logger.Info().Str("postId", post.ID.String()).Str("coverImageUrl", post.CoverImageURL).Msg("blog post created")
	return post, nil
}

// Update replaces the post id with in. The author of the existing post is kept
// and publishedAt moves to now.
func (l *PostLifecycle) Update(ctx context.Context, id uuid.UUID, in SaveInput) (*models.BlogPost, error) {
	post, err := l.build(in)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.recordTimeout)
	defer cancel()

	existing, err := l.posts.FindByID(ctx, id)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "blog post", err)
	}
	post.ID = existing.ID
	post.AuthorID = existing.AuthorID

	if err := l.posts.Update(ctx, post); err != nil {
		return nil, errs.NewDatabaseError("update", "blog post", err)
	}
	l.logger.Info().Str("postId", post.ID.String()).Str("coverImageUrl", post.CoverImageURL).Msg("blog post updated")
	return post, nil
}

func (l *PostLifecycle) build(in SaveInput) (*models.BlogPost, error) {
	if err := l.Validate(&in); err != nil {
		return nil, err
	}
	body := content.Sanitize(in.Content)
	if strings.TrimSpace(body) == "" {
		return nil, errs.NewInvalidFieldError("content", "nothing left after sanitizing")
	}
	summary, cover := l.Derive(body)
	return &models.BlogPost{
		Title:         in.Title,
		CategoryID:    in.CategoryID,
		Content:       body,
		Summary:       summary,
		CoverImageURL: cover,
		PublishedAt:   l.now().UTC(),
	}, nil
}

type AssetStatus string

const (
	AssetDeleted AssetStatus = "deleted"
	AssetFailed  AssetStatus = "failed"
	AssetSkipped AssetStatus = "skipped"
)

// AssetOutcome is what happened to one candidate URL of a deleted post.
type AssetOutcome struct {
	URL    string      `json:"url"`
	Bucket string      `json:"bucket,omitempty"`
	Path   string      `json:"path,omitempty"`
	Status AssetStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// DeleteReport is the full account of a delete. It is returned even when the
// record delete failed, since some assets may already be gone by then.
type DeleteReport struct {
	PostID        uuid.UUID      `json:"postId"`
	Assets        []AssetOutcome `json:"assets"`
	Deleted       int            `json:"deleted"`
	Failed        int            `json:"failed"`
	Skipped       int            `json:"skipped"`
	RecordDeleted bool           `json:"recordDeleted"`
	RecordError   string         `json:"recordError,omitempty"`
	Message       string         `json:"message"`
}

// Summary renders the counts, e.g. "2 assets deleted, 1 failed, 1 skipped, post deleted".
func (r *DeleteReport) Summary() string {
	noun := "assets"
	if r.Deleted == 1 {
		noun = "asset"
	}
	record := "post deleted"
	if !r.RecordDeleted {
		record = "post NOT deleted"
	}
	return fmt.Sprintf("%d %s deleted, %d failed, %d skipped, %s", r.Deleted, noun, r.Failed, r.Skipped, record)
}

func (r *DeleteReport) tally() {
	r.Deleted, r.Failed, r.Skipped = 0, 0, 0
	for _, a := range r.Assets {
		switch a.Status {
		case AssetDeleted:
			r.Deleted++
		case AssetFailed:
			r.Failed++
		case AssetSkipped:
			r.Skipped++
		}
	}
	r.Message = r.Summary()
}

// DeleteByID loads the post and runs Delete on it.
func (l *PostLifecycle) DeleteByID(ctx context.Context, id uuid.UUID, actorID string) (*DeleteReport, error) {
	findCtx, cancel := context.WithTimeout(ctx, l.recordTimeout)
	post, err := l.posts.FindByID(findCtx, id)
	cancel()
	if err != nil {
		return nil, errs.NewDatabaseError("find", "blog post", err)
	}
	return l.Delete(ctx, post, actorID)
}

// Delete removes every asset post references, then the post record.
//
// Each candidate URL gets its own outcome and no asset failure stops the
// others or the record delete. A failed record delete is the only error
// returned, together with the report, because the post is still visible
// while some of its assets may already be gone. Caller cancellation is not
// propagated: once started, the steps run to completion so the report stays
// accurate.
func (l *PostLifecycle) Delete(ctx context.Context, post *models.BlogPost, actorID string) (*DeleteReport, error) {
	ctx = context.WithoutCancel(ctx)
	logger := l.logger.With().Str("postId", post.ID.String()).Logger()

	report := &DeleteReport{PostID: post.ID, Assets: l.deleteAssets(ctx, logger, post)}

	recordCtx, cancel := context.WithTimeout(ctx, l.recordTimeout)
	recordErr := l.posts.Delete(recordCtx, post.ID)
	cancel()

	report.RecordDeleted = recordErr == nil
	report.tally()

	var err error
	if recordErr != nil {
		dbErr := errs.NewDatabaseError("delete", "blog post", recordErr)
		report.RecordError = dbErr.Error()
		err = errs.NewPostDeleteFailedError(post.ID.String(), report.Deleted, dbErr)
		logger.Error().Err(recordErr).Int("assetsDeleted", report.Deleted).Msg("post record delete failed after asset cleanup")
		l.alertOperator(ctx, logger, post, report)
	} else {
		logger.Info().Msg(report.Message)
	}

	l.writeLog(ctx, logger, post, actorID, report)
	return report, err
}

// deleteAssets plans and runs the asset side of the saga. The cover is a copy
// of the first body image and only adds a candidate when the body no longer
// contains it. Distinct locations are deleted concurrently; repeats of one
// location run in order so the first attempt deletes and the later ones
// report the object as already gone.
func (l *PostLifecycle) deleteAssets(ctx context.Context, logger zerolog.Logger, post *models.BlogPost) []AssetOutcome {
	candidates := content.ExtractAssetURLs(post.Content)
	if post.CoverImageURL != "" && !slices.Contains(candidates, post.CoverImageURL) {
		candidates = append(candidates, post.CoverImageURL)
	}
	outcomes := make([]AssetOutcome, len(candidates))

	groups := make(map[storage.Location][]int)
	var order []storage.Location
	for i, url := range candidates {
		loc, err := l.resolver.Check(url)
		if err != nil {
			outcomes[i] = AssetOutcome{URL: url, Status: AssetSkipped, Reason: err.Error()}
			logger.Debug().Str("url", url).Str("reason", err.Error()).Msg("asset skipped")
			continue
		}
		outcomes[i] = AssetOutcome{URL: url, Bucket: loc.Bucket, Path: loc.Path}
		if _, seen := groups[loc]; !seen {
			order = append(order, loc)
		}
		groups[loc] = append(groups[loc], i)
	}

	g := new(errgroup.Group)
	g.SetLimit(l.deleteConcurrency)
	for _, loc := range order {
		g.Go(func() error {
			for _, i := range groups[loc] {
				l.deleteOne(ctx, logger, &outcomes[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (l *PostLifecycle) deleteOne(ctx context.Context, logger zerolog.Logger, outcome *AssetOutcome) {
	result := l.assets.Delete(ctx, outcome.Bucket, []string{outcome.Path})
	switch {
	case len(result.Deleted) > 0:
		outcome.Status = AssetDeleted
	case len(result.Failed) > 0 && result.Failed[0].Err != nil:
		outcome.Status = AssetFailed
		outcome.Reason = result.Failed[0].Err.Error()
	default:
		outcome.Status = AssetFailed
		outcome.Reason = "storage reported no outcome"
	}
	if outcome.Status == AssetFailed {
		logger.Warn().Str("bucket", outcome.Bucket).Str("path", outcome.Path).Str("reason", outcome.Reason).Msg("asset delete failed")
	}
}

func (l *PostLifecycle) alertOperator(ctx context.Context, logger zerolog.Logger, post *models.BlogPost, report *DeleteReport) {
	if l.operator == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, l.recordTimeout)
	defer cancel()
	if err := l.operator.NotifyDeleteFailed(ctx, post, report); err != nil {
		logger.Warn().Err(err).Msg("could not alert operator about failed delete")
	}
}

func (l *PostLifecycle) writeLog(ctx context.Context, logger zerolog.Logger, post *models.BlogPost, actorID string, report *DeleteReport) {
	if l.deletionLog == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		logger.Warn().Err(err).Msg("could not encode deletion report")
		return
	}
	entry := &models.PostDeletionLog{
		ID:            uuid.New(),
		PostID:        post.ID,
		PostTitle:     post.Title,
		ActorID:       actorID,
		AssetsDeleted: report.Deleted,
		AssetsFailed:  report.Failed,
		AssetsSkipped: report.Skipped,
		RecordDeleted: report.RecordDeleted,
		Report:        datatypes.JSON(raw),
		CreatedAt:     l.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, l.recordTimeout)
	defer cancel()
	if err := l.deletionLog.Add(ctx, entry); err != nil {
		logger.Warn().Err(err).Msg("could not write deletion log")
	}
}
