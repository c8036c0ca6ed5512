package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rpupo63/consulting-site-backend/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

type Database struct {
	blogPostRepo    *BlogPostRepo
	deletionLogRepo *DeletionLogRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		blogPostRepo:    NewBlogPostRepo(db),
		deletionLogRepo: NewDeletionLogRepo(db),
	}
}

func (d Database) BlogPostRepo() *BlogPostRepo {
	return d.blogPostRepo
}

func (d Database) DeletionLogRepo() *DeletionLogRepo {
	return d.deletionLogRepo
}

// Open connects to the Supabase Postgres instance described by cfg. When
// SUPABASE_DB_REPLICA_HOST is set, reads are routed to it through dbresolver.
func Open(cfg map[string]string) (*gorm.DB, error) {
	host := config.GetString(cfg, "SUPABASE_DB_HOST", "")
	if host == "" {
		return nil, fmt.Errorf("SUPABASE_DB_HOST is not set")
	}
	primary := dsn(cfg, host)

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  primary,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt: false,
		Logger:      newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if replicaHost := config.GetString(cfg, "SUPABASE_DB_REPLICA_HOST", ""); replicaHost != "" {
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.New(postgres.Config{
				DSN:                  dsn(cfg, replicaHost),
				PreferSimpleProtocol: true,
			})},
			Policy: dbresolver.RandomPolicy{},
		})
		if err := db.Use(resolver); err != nil {
			return nil, fmt.Errorf("register read replica: %w", err)
		}
	}

	// Test database connection
	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("test database connection: %w", err)
	}

	return db, nil
}

func dsn(cfg map[string]string, host string) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
		host,
		config.GetString(cfg, "SUPABASE_DB_USER", ""),
		config.GetString(cfg, "SUPABASE_DB_PASSWORD", ""),
		config.GetString(cfg, "SUPABASE_DB_NAME", "postgres"),
		config.GetString(cfg, "SUPABASE_DB_PORT", "5432"),
	)
}
