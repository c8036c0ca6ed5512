package database

import (
	"context"

	"github.com/rpupo63/consulting-site-backend/models"
	"gorm.io/gorm"
)

type DeletionLogRepo struct {
	db *gorm.DB
}

func NewDeletionLogRepo(db *gorm.DB) *DeletionLogRepo {
	return &DeletionLogRepo{db}
}

func (r *DeletionLogRepo) Add(ctx context.Context, entry *models.PostDeletionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindRecent returns up to limit entries, newest first
func (r *DeletionLogRepo) FindRecent(ctx context.Context, limit int) ([]*models.PostDeletionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []*models.PostDeletionLog
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
