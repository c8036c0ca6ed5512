package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rpupo63/consulting-site-backend/services"
)

const seedConcurrency = 8

type seeder struct {
	lifecycle  *services.PostLifecycle
	uploader   *services.ImageUploader
	authorID   string
	withImages bool
}

// Seed creates numPosts fake posts through the normal save path and returns
// how many were created.
func (s seeder) Seed(ctx context.Context, numPosts int) int {
	categories := make([]uuid.UUID, 3)
	for i := range categories {
		categories[i] = uuid.New()
	}

	var created atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)

	for i := 0; i < numPosts; i++ {
		g.Go(func() error {
			input, err := s.fakePost(ctx, categories[i%len(categories)])
			if err != nil {
				log.Error().Err(err).Msgf("Preparing post %d/%d failed", i+1, numPosts)
				return nil
			}

			post, err := s.lifecycle.Create(ctx, input, s.authorID)
			if err != nil {
				log.Error().Err(err).Str("title", input.Title).Msgf("Creating post %d/%d failed", i+1, numPosts)
				return nil
			}
			created.Add(1)
			log.Info().Str("postId", post.ID.String()).Str("title", post.Title).Msgf("Created post %d/%d", i+1, numPosts)
			return nil
		})
	}
	_ = g.Wait()
	return int(created.Load())
}

func (s seeder) fakePost(ctx context.Context, categoryID uuid.UUID) (services.SaveInput, error) {
	html := "<h2>" + gofakeit.HipsterSentence(4) + "</h2>"
	if s.withImages {
		result, err := s.uploader.Upload(ctx, services.UploadInput{
			Folder: "blog",
			Data:   gofakeit.ImagePng(320, 180),
			Alt:    gofakeit.Noun(),
			Body:   &html,
		})
		if err != nil {
			return services.SaveInput{}, err
		}
		html = *result.Body
	}

	var body strings.Builder
	body.WriteString(html)
	for _, p := range strings.Split(gofakeit.Paragraph(3, 4, 18, "\n"), "\n") {
		body.WriteString("<p>" + p + "</p>")
	}
	// a hot-linked image the delete saga has to skip
	body.WriteString(fmt.Sprintf(`<img src="%s/placeholder.png" alt="external">`, gofakeit.URL()))

	return services.SaveInput{
		Title:      gofakeit.Sentence(gofakeit.Number(4, 9)),
		CategoryID: categoryID,
		Content:    body.String(),
	}, nil
}
