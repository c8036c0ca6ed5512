package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/consulting-site-backend/config"
	"github.com/rpupo63/consulting-site-backend/content"
	"github.com/rpupo63/consulting-site-backend/database"
	"github.com/rpupo63/consulting-site-backend/models"
	"github.com/rpupo63/consulting-site-backend/services"
	"github.com/rpupo63/consulting-site-backend/storage"
)

func main() {
	numPosts := flag.Int("n", 20, "number of posts to create")
	withImages := flag.Bool("images", true, "upload a generated image into every post")
	authorID := flag.String("author", "seeder", "author id stored on the posts")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx := context.Background()
	cfg, err := config.WithSSM(ctx, config.Load())
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration from SSM")
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	if err := models.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Error migrating database")
	}
	currentDB := database.New(db)

	var objectStorage storage.ObjectStorage
	if config.GetString(cfg, "STORAGE_DRIVER", "s3") == "memory" {
		objectStorage = storage.NewMemoryStorage(storage.PublicBase(cfg))
	} else if objectStorage, err = storage.NewS3StorageFromConfig(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Error initializing object storage")
	}

	bucket := config.GetString(cfg, "STORAGE_BUCKET", "images")
	assets := storage.NewAssetStore(objectStorage, bucket, config.GetSeconds(cfg, "STORAGE_CALL_TIMEOUT_SECONDS", 15))

	s := seeder{
		lifecycle: services.NewPostLifecycle(services.PostLifecycleConfig{
			Posts:           currentDB.BlogPostRepo(),
			Assets:          assets,
			Resolver:        storage.NewResolver(storage.PublicBase(cfg), bucket),
			Text:            content.HTML2Text{},
			SummaryMaxChars: config.GetInt(cfg, "SUMMARY_MAX_CHARS", 200),
		}),
		uploader:   services.NewImageUploader(assets, []string{"blog"}, int64(config.GetInt(cfg, "MAX_UPLOAD_BYTES", 5<<20))),
		authorID:   *authorID,
		withImages: *withImages,
	}
	created := s.Seed(ctx, *numPosts)
	log.Info().Int("created", created).Int("requested", *numPosts).Msg("Seeding finished")
}
