package repository

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostScope narrows a post listing. Zero fields are ignored; at most one is
// expected to be set by callers.
type PostScope struct {
	GroupID    uint
	AuthorID   uint
	FollowerID uint
}

// UpdatePostFields carries the editable columns of a post.
type UpdatePostFields struct {
	Text    string
	GroupID *uint
	// Image replaces the stored image key when non-nil.
	Image *string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, id, requesterID uint, fields UpdatePostFields) (*models.Post, error)
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context, scope PostScope) (int64, error)
	List(ctx context.Context, scope PostScope, limit, offset int) ([]*models.Post, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if strings.TrimSpace(post.Text) == "" {
		return models.NewFieldError("text", "This field is required.")
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return wrapWriteError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// Update rewrites the editable columns of a post. The author column is set to
// requesterID on every edit; ownership is the caller's concern.
func (r *postRepository) Update(ctx context.Context, id, requesterID uint, fields UpdatePostFields) (*models.Post, error) {
	if strings.TrimSpace(fields.Text) == "" {
		return nil, models.NewFieldError("text", "This field is required.")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return err
		}

		post.Text = fields.Text
		post.GroupID = fields.GroupID
		post.AuthorID = requesterID
		if fields.Image != nil {
			post.Image = *fields.Image
		}
		return tx.Omit(clause.Associations).Save(&post).Error
	})
	if err != nil {
		return nil, wrapWriteError(err)
	}

	return r.GetByID(ctx, id)
}

// Delete removes a post together with its comments.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Post{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		return wrapWriteError(err)
	}
	return nil
}

func (r *postRepository) Count(ctx context.Context, scope PostScope) (int64, error) {
	var count int64
	if err := r.scoped(ctx, scope).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// List returns a window of posts, newest first. Ties on created_at fall back
// to the higher id first so pages stay stable.
func (r *postRepository) List(ctx context.Context, scope PostScope, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.scoped(ctx, scope).
		Preload("Author").
		Preload("Group").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) scoped(ctx context.Context, scope PostScope) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	switch {
	case scope.FollowerID != 0:
		q = q.Joins("JOIN follows ON follows.author_id = posts.author_id").
			Where("follows.user_id = ?", scope.FollowerID)
	case scope.GroupID != 0:
		q = q.Where("posts.group_id = ?", scope.GroupID)
	case scope.AuthorID != 0:
		q = q.Where("posts.author_id = ?", scope.AuthorID)
	}
	return q
}

// wrapWriteError keeps AppErrors raised by hooks or lookups and hides
// everything else behind an internal error.
func wrapWriteError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewInternalError(err)
}
