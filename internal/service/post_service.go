package service

import (
	"context"
	"log/slog"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxPostTextLen = 50000

type PostService struct {
	postRepo  repository.PostRepository
	groupRepo repository.GroupRepository
	images    *ImageService
}

// CreatePostInput is the validated-on-entry payload of the post form.
type CreatePostInput struct {
	AuthorID  uint
	Text      string
	GroupID   *uint
	ImageName string
	Image     []byte
}

// UpdatePostInput edits a post on behalf of RequesterID. Ownership is checked
// by the caller; the post is reassigned to the requester.
type UpdatePostInput struct {
	RequesterID uint
	PostID      uint
	Text        string
	GroupID     *uint
	ImageName   string
	Image       []byte
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	images *ImageService,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		groupRepo: groupRepo,
		images:    images,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "post.create", attribute.Int("author_id", int(in.AuthorID)))
	post, err := s.createPost(ctx, in)
	span.End(err)
	return post, err
}

func (s *PostService) createPost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostText(in.Text); err != nil {
		return nil, err
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:     in.Text,
		AuthorID: in.AuthorID,
		GroupID:  in.GroupID,
	}

	if len(in.Image) > 0 {
		key, err := s.images.Store(ctx, in.ImageName, in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = key
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.discardImage(ctx, post.Image)
		return nil, err
	}

	observability.RecordWrite("post", "create")
	s.decorate(post)
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.decorate(post)
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	if err := validatePostText(in.Text); err != nil {
		return nil, err
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	fields := repository.UpdatePostFields{
		Text:    in.Text,
		GroupID: in.GroupID,
	}
	var previous string
	if len(in.Image) > 0 {
		current, err := s.postRepo.GetByID(ctx, in.PostID)
		if err != nil {
			return nil, err
		}
		previous = current.Image

		key, err := s.images.Store(ctx, in.ImageName, in.Image)
		if err != nil {
			return nil, err
		}
		fields.Image = &key
	}

	post, err := s.postRepo.Update(ctx, in.PostID, in.RequesterID, fields)
	if err != nil {
		if fields.Image != nil {
			s.discardImage(ctx, *fields.Image)
		}
		return nil, err
	}
	if fields.Image != nil && previous != "" && previous != *fields.Image {
		s.discardImage(ctx, previous)
	}

	observability.RecordWrite("post", "update")
	s.decorate(post)
	return post, nil
}

// DeletePost removes the post, its comments and its stored image.
func (s *PostService) DeletePost(ctx context.Context, id uint) error {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}
	observability.RecordWrite("post", "delete")
	s.discardImage(ctx, post.Image)
	return nil
}

func (s *PostService) checkGroup(ctx context.Context, groupID *uint) error {
	if groupID == nil {
		return nil
	}
	if _, err := s.groupRepo.GetByID(ctx, *groupID); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewFieldError("group", "Select a valid choice. That choice is not one of the available choices.")
		}
		return err
	}
	return nil
}

func (s *PostService) discardImage(ctx context.Context, key string) {
	if err := s.images.Remove(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove post image",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PostService) decorate(post *models.Post) {
	decoratePosts(s.images, post)
}

func decoratePosts(images *ImageService, posts ...*models.Post) {
	for _, p := range posts {
		if p != nil {
			p.ImageURL = images.URL(p.Image)
		}
	}
}

func validatePostText(text string) error {
	if strings.TrimSpace(text) == "" {
		return models.NewFieldError("text", "This field is required.")
	}
	if len(text) > maxPostTextLen {
		return models.NewFieldError("text", "Ensure this value has at most 50000 characters.")
	}
	return nil
}
