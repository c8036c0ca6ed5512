package models

import (
	"time"

	"github.com/google/uuid"
)

// BlogPost is a published article. Summary and CoverImageURL are derived from
// Content on every save and are never edited directly.
type BlogPost struct {
	ID            uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	Title         string    `json:"title" db:"title" gorm:"type:text;not null"`
	CategoryID    uuid.UUID `json:"categoryId" db:"category_id" gorm:"type:uuid;not null;index:idx_blog_post_category"`
	Content       string    `json:"content" db:"content" gorm:"type:text;not null"`
	Summary       string    `json:"summary" db:"summary" gorm:"type:text;not null;default:''"`
	CoverImageURL string    `json:"coverImageUrl" db:"cover_image_url" gorm:"type:text;not null;default:''"`
	PublishedAt   time.Time `json:"publishedAt" db:"published_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP;index:idx_blog_post_published_at,sort:desc"`
	AuthorID      string    `json:"authorId" db:"author_id" gorm:"type:text;not null"`
}

func (BlogPost) TableName() string {
	return "blog_posts"
}
