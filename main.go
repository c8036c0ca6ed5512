package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	api "github.com/rpupo63/consulting-site-backend/api"
	"github.com/rpupo63/consulting-site-backend/config"
	"github.com/rpupo63/consulting-site-backend/content"
	"github.com/rpupo63/consulting-site-backend/database"
	"github.com/rpupo63/consulting-site-backend/models"
	"github.com/rpupo63/consulting-site-backend/services"
	"github.com/rpupo63/consulting-site-backend/storage"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Info().Msg("Initializing app...")

	ctx := context.Background()
	cfg, err := config.WithSSM(ctx, config.Load())
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration from SSM")
	}

	level, err := zerolog.ParseLevel(config.GetString(cfg, "LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}

	// If generating models, run generation and exit
	if config.GetBool(cfg, "GENERATE_MODELS", false) {
		log.Info().Msg("Generating models and query helpers...")
		if err := models.GenerateModels(db); err != nil {
			log.Fatal().Err(err).Msg("Error generating models")
		}
		return
	}

	// If generating column mismatch report, run report and exit
	if config.GetBool(cfg, "GENERATE_COLUMN_REPORT", false) {
		printColumnReport(db)
		return
	}

	if err := models.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Error migrating database")
	}

	currentDB := database.New(db)

	objectStorage, err := newObjectStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing object storage")
	}

	bucket := config.GetString(cfg, "STORAGE_BUCKET", "images")
	assets := storage.NewAssetStore(objectStorage, bucket, config.GetSeconds(cfg, "STORAGE_CALL_TIMEOUT_SECONDS", 15))
	resolver := storage.NewResolver(storage.PublicBase(cfg), bucket)

	var operator services.OperatorNotifier
	if n := services.NewResendNotifierFromConfig(cfg); n != nil {
		operator = n
	}

	svc := api.Services{
		Posts:        currentDB.BlogPostRepo(),
		DeletionLogs: currentDB.DeletionLogRepo(),
		Lifecycle: services.NewPostLifecycle(services.PostLifecycleConfig{
			Posts:             currentDB.BlogPostRepo(),
			DeletionLog:       currentDB.DeletionLogRepo(),
			Operator:          operator,
			Assets:            assets,
			Resolver:          resolver,
			Text:              content.HTML2Text{},
			SummaryMaxChars:   config.GetInt(cfg, "SUMMARY_MAX_CHARS", 200),
			DeleteConcurrency: config.GetInt(cfg, "DELETE_CONCURRENCY", 4),
			RecordTimeout:     config.GetSeconds(cfg, "DB_CALL_TIMEOUT_SECONDS", 15),
		}),
		Uploader: services.NewImageUploader(
			assets,
			config.GetList(cfg, "ASSET_FOLDERS", []string{"blog", "courses", "reviews"}),
			int64(config.GetInt(cfg, "MAX_UPLOAD_BYTES", 5<<20)),
		),
		Assets: assets,
		Orphans: services.NewOrphanScanner(
			currentDB.BlogPostRepo(),
			assets,
			resolver,
			time.Duration(config.GetInt(cfg, "ORPHAN_MIN_AGE_HOURS", 24))*time.Hour,
		),
	}

	errChannel := make(chan error)
	defer close(errChannel)

	server, err := api.NewServer(svc, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
}

// newObjectStorage picks the object storage backend from STORAGE_DRIVER.
func newObjectStorage(ctx context.Context, cfg map[string]string) (storage.ObjectStorage, error) {
	switch driver := config.GetString(cfg, "STORAGE_DRIVER", "s3"); driver {
	case "s3":
		return storage.NewS3StorageFromConfig(ctx, cfg)
	case "memory":
		log.Warn().Msg("Using in-memory object storage, uploads are lost on restart")
		return storage.NewMemoryStorage(storage.PublicBase(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}
}

func printColumnReport(db *gorm.DB) {
	log.Info().Msg("Generating column mismatch report...")
	report, err := models.ColumnMismatchReport(db)
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating column report")
	}
	if len(report) == 0 {
		log.Info().Msg("All tables match their models")
		return
	}
	for _, m := range report {
		if m.Missing {
			log.Warn().Str("table", m.Table).Msg("table does not exist")
			continue
		}
		log.Warn().Str("table", m.Table).Strs("columns", m.Columns).Msg("columns without a model field")
	}
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
