package models

import (
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// All lists every model owned by this service, in migration order.
func All() []any {
	return []any{&BlogPost{}, &PostDeletionLog{}}
}

// Migrate creates or updates the tables for every model.
func Migrate(db *gorm.DB) error {
	migrateDB := db.Session(&gorm.Session{
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})
	if err := migrateDB.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// GenerateModels migrates the schema and writes typed query helpers to ./generated.
// Run it with GENERATE_MODELS=true.
func GenerateModels(db *gorm.DB) error {
	verbose := db.Session(&gorm.Session{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{LogLevel: logger.Info, Colorful: true},
		),
	})

	if err := Migrate(verbose); err != nil {
		return err
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./generated",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(verbose)
	g.ApplyBasic(BlogPost{}, PostDeletionLog{})
	g.Execute()
	return nil
}

// ColumnMismatch lists database columns with no matching model field.
type ColumnMismatch struct {
	Table   string
	Columns []string
	Missing bool // table does not exist yet
}

// ColumnMismatchReport compares information_schema with the parsed gorm schema
// of every model. Run it with GENERATE_COLUMN_REPORT=true.
func ColumnMismatchReport(db *gorm.DB) ([]ColumnMismatch, error) {
	cache := &sync.Map{}
	var report []ColumnMismatch

	for _, model := range All() {
		s, err := schema.Parse(model, cache, db.NamingStrategy)
		if err != nil {
			return nil, fmt.Errorf("parse schema: %w", err)
		}

		var columns []string
		err = db.Raw(`
			SELECT column_name
			FROM information_schema.columns
			WHERE table_name = ? AND table_schema = CURRENT_SCHEMA()
			ORDER BY ordinal_position`, s.Table).Scan(&columns).Error
		if err != nil {
			return nil, fmt.Errorf("query columns for %s: %w", s.Table, err)
		}

		entry := ColumnMismatch{Table: s.Table, Missing: len(columns) == 0}
		for _, col := range columns {
			if _, ok := s.FieldsByDBName[col]; !ok {
				entry.Columns = append(entry.Columns, col)
			}
		}
		sort.Strings(entry.Columns)
		report = append(report, entry)
	}
	return report, nil
}
