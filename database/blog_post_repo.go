package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/rpupo63/consulting-site-backend/models"
	"gorm.io/gorm"
)

type BlogPostRepo struct {
	db *gorm.DB
}

func NewBlogPostRepo(db *gorm.DB) *BlogPostRepo {
	return &BlogPostRepo{db}
}

// FindAll returns all blog posts, newest first
func (r *BlogPostRepo) FindAll(ctx context.Context) ([]*models.BlogPost, error) {
	var blogPosts []*models.BlogPost
	err := r.db.WithContext(ctx).Order("published_at DESC").Find(&blogPosts).Error
	return blogPosts, err
}

// FindBodies returns only the columns that can reference assets, for every post
func (r *BlogPostRepo) FindBodies(ctx context.Context) ([]*models.BlogPost, error) {
	var blogPosts []*models.BlogPost
	err := r.db.WithContext(ctx).Select("id", "content", "cover_image_url").Find(&blogPosts).Error
	return blogPosts, err
}

// FindByID returns a blog post by its ID
func (r *BlogPostRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	var blogPost models.BlogPost
	err := r.db.WithContext(ctx).First(&blogPost, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &blogPost, nil
}

// Add inserts a new blog post; the id is assigned here when the caller left it empty
func (r *BlogPostRepo) Add(ctx context.Context, blogPost *models.BlogPost) error {
	if blogPost.ID == uuid.Nil {
		blogPost.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(blogPost).Error
}

// Update replaces an existing blog post
func (r *BlogPostRepo) Update(ctx context.Context, blogPost *models.BlogPost) error {
	result := r.db.WithContext(ctx).Model(&models.BlogPost{}).Where("id = ?", blogPost.ID).
		Select("*").Omit("id").Updates(blogPost)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a blog post from the database by id
func (r *BlogPostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.BlogPost{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

