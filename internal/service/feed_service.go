package service

import (
	"context"

	"inkwell/internal/feed"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// GroupFeed is a group with one page of its posts.
type GroupFeed struct {
	Group *models.Group `json:"group"`
	Page  *feed.Page    `json:"page"`
}

// ProfileFeed is an author with one page of their posts. Following is only
// meaningful for an authenticated viewer.
type ProfileFeed struct {
	Author         *models.User `json:"author"`
	Page           *feed.Page   `json:"page"`
	Following      bool         `json:"following"`
	FollowerCount  int64        `json:"follower_count"`
	FollowingCount int64        `json:"following_count"`
}

// FeedService builds the paginated listings: everything, one group, one
// author, and the authors a user follows.
type FeedService struct {
	postRepo   repository.PostRepository
	groupRepo  repository.GroupRepository
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	follows    *FollowService
	composer   *feed.Composer
	images     *ImageService
}

func NewFeedService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	composer *feed.Composer,
	images *ImageService,
) *FeedService {
	if composer == nil {
		composer = feed.NewComposer(feed.DefaultPerPage)
	}
	return &FeedService{
		postRepo:   postRepo,
		groupRepo:  groupRepo,
		userRepo:   userRepo,
		followRepo: followRepo,
		follows:    NewFollowService(userRepo, followRepo),
		composer:   composer,
		images:     images,
	}
}

func (s *FeedService) Index(ctx context.Context, rawPage string) (*feed.Page, error) {
	return s.compose(ctx, "feed.index", repository.PostScope{}, rawPage)
}

func (s *FeedService) Group(ctx context.Context, slug, rawPage string) (*GroupFeed, error) {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	page, err := s.compose(ctx, "feed.group", repository.PostScope{GroupID: group.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Page: page}, nil
}

// Profile lists the posts of username. viewerID is zero for anonymous viewers.
func (s *FeedService) Profile(ctx context.Context, username string, viewerID uint, rawPage string) (*ProfileFeed, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	page, err := s.compose(ctx, "feed.profile", repository.PostScope{AuthorID: author.ID}, rawPage)
	if err != nil {
		return nil, err
	}

	out := &ProfileFeed{Author: author, Page: page}
	if out.FollowerCount, err = s.followRepo.CountFollowers(ctx, author.ID); err != nil {
		return nil, err
	}
	if out.FollowingCount, err = s.followRepo.CountFollowing(ctx, author.ID); err != nil {
		return nil, err
	}
	if out.Following, err = s.follows.IsFollowing(ctx, viewerID, author.ID); err != nil {
		return nil, err
	}
	return out, nil
}

// Following lists posts by every author userID follows.
func (s *FeedService) Following(ctx context.Context, userID uint, rawPage string) (*feed.Page, error) {
	return s.compose(ctx, "feed.following", repository.PostScope{FollowerID: userID}, rawPage)
}

func (s *FeedService) compose(ctx context.Context, name string, scope repository.PostScope, rawPage string) (*feed.Page, error) {
	ctx, span := observability.StartSpan(ctx, name, attribute.String("page", rawPage))
	page, err := s.composer.Compose(ctx, s.source(scope), rawPage)
	if err == nil {
		span.AddAttributes(attribute.Int("page.number", page.Number), attribute.Int64("page.count", page.Count))
		decoratePosts(s.images, page.Posts...)
	}
	span.End(err)
	return page, err
}

func (s *FeedService) source(scope repository.PostScope) feed.Source {
	return feed.SourceFunc{
		CountFunc: func(ctx context.Context) (int64, error) {
			return s.postRepo.Count(ctx, scope)
		},
		FetchFunc: func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.postRepo.List(ctx, scope, limit, offset)
		},
	}
}
