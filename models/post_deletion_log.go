package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PostDeletionLog keeps the outcome of every delete so an operator can find
// assets left behind when cleanup or the record delete failed.
type PostDeletionLog struct {
	ID            uuid.UUID      `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	PostID        uuid.UUID      `json:"postId" db:"post_id" gorm:"type:uuid;not null;index:idx_post_deletion_log_post"`
	PostTitle     string         `json:"postTitle" db:"post_title" gorm:"type:text;not null"`
	ActorID       string         `json:"actorId" db:"actor_id" gorm:"type:text;not null"`
	AssetsDeleted int            `json:"assetsDeleted" db:"assets_deleted" gorm:"type:integer;not null;default:0"`
	AssetsFailed  int            `json:"assetsFailed" db:"assets_failed" gorm:"type:integer;not null;default:0"`
	AssetsSkipped int            `json:"assetsSkipped" db:"assets_skipped" gorm:"type:integer;not null;default:0"`
	RecordDeleted bool           `json:"recordDeleted" db:"record_deleted" gorm:"type:boolean;not null"`
	Report        datatypes.JSON `json:"report" db:"report" gorm:"type:jsonb;not null"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (PostDeletionLog) TableName() string {
	return "post_deletion_logs"
}
