package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"inkwell/internal/feed"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedService_ScopesAndDecorates(t *testing.T) {
	t.Parallel()

	var scopes []repository.PostScope
	posts := noopPostRepo()
	posts.countFn = func(_ context.Context, scope repository.PostScope) (int64, error) {
		scopes = append(scopes, scope)
		return 1, nil
	}
	posts.listFn = func(_ context.Context, _ repository.PostScope, limit, offset int) ([]*models.Post, error) {
		assert.Equal(t, 10, limit)
		assert.Equal(t, 0, offset)
		return []*models.Post{{ID: 1, Text: "t", Image: "posts/a.gif"}}, nil
	}
	groups := noopGroupRepo()
	groups.getBySlugFn = func(_ context.Context, slug string) (*models.Group, error) {
		return &models.Group{ID: 4, Slug: slug}, nil
	}
	users := usersByName(&models.User{ID: 6, Username: "leo"})
	images := NewImageService(testutil.NewMemoryBlobStore(), nil)
	svc := NewFeedService(posts, groups, users, noopFollowRepo(), feed.NewComposer(10), images)
	ctx := context.Background()

	page, err := svc.Index(ctx, "")
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "/media/posts/a.gif", page.Posts[0].ImageURL)

	gf, err := svc.Group(ctx, "cats", "1")
	require.NoError(t, err)
	assert.Equal(t, "cats", gf.Group.Slug)

	_, err = svc.Profile(ctx, "leo", 0, "1")
	require.NoError(t, err)

	_, err = svc.Following(ctx, 9, "1")
	require.NoError(t, err)

	assert.Equal(t, []repository.PostScope{
		{},
		{GroupID: 4},
		{AuthorID: 6},
		{FollowerID: 9},
	}, scopes)
}

func TestFeedService_UnknownGroupAndProfile(t *testing.T) {
	t.Parallel()

	groups := noopGroupRepo()
	groups.getBySlugFn = func(_ context.Context, slug string) (*models.Group, error) {
		return nil, models.NewNotFoundError("Group", slug)
	}
	svc := NewFeedService(noopPostRepo(), groups, usersByName(), noopFollowRepo(), nil, nil)

	_, err := svc.Group(context.Background(), "nope", "1")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = svc.Profile(context.Background(), "ghost", 0, "1")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestFeedService_ProfileFollowing(t *testing.T) {
	t.Parallel()

	follows := noopFollowRepo()
	existsCalls := 0
	follows.existsFn = func(_ context.Context, userID, authorID uint) (bool, error) {
		existsCalls++
		return userID == 1 && authorID == 6, nil
	}
	follows.countFollowersFn = func(_ context.Context, _ uint) (int64, error) { return 3, nil }
	follows.countFollowingFn = func(_ context.Context, _ uint) (int64, error) { return 2, nil }
	svc := NewFeedService(noopPostRepo(), noopGroupRepo(), usersByName(&models.User{ID: 6, Username: "leo"}), follows, nil, nil)
	ctx := context.Background()

	pf, err := svc.Profile(ctx, "leo", 1, "")
	require.NoError(t, err)
	assert.True(t, pf.Following)
	assert.Equal(t, int64(3), pf.FollowerCount)
	assert.Equal(t, int64(2), pf.FollowingCount)
	assert.Equal(t, 1, pf.Page.NumPages)

	pf, err = svc.Profile(ctx, "leo", 0, "")
	require.NoError(t, err)
	assert.False(t, pf.Following)

	pf, err = svc.Profile(ctx, "leo", 6, "")
	require.NoError(t, err)
	assert.False(t, pf.Following)
	assert.Equal(t, 1, existsCalls)
}

// A grouped post shows up in every feed it belongs to, and the followed feed
// only carries followed authors.
func TestFeedService_AgainstStore(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	posts := repository.NewPostRepository(db)
	follows := repository.NewFollowRepository(db)

	mk := func(name string) *models.User {
		u := &models.User{Username: name, Email: name + "@example.com", Password: "x"}
		require.NoError(t, users.Create(ctx, u))
		return u
	}
	author, reader, stranger := mk("author"), mk("reader"), mk("stranger")
	group := &models.Group{Title: "Cats", Slug: "cats"}
	other := &models.Group{Title: "Dogs", Slug: "dogs"}
	require.NoError(t, groups.Create(ctx, group))
	require.NoError(t, groups.Create(ctx, other))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		p := &models.Post{Text: fmt.Sprintf("filler %d", i), AuthorID: stranger.ID, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, posts.Create(ctx, p))
	}
	grouped := &models.Post{Text: "grouped", AuthorID: author.ID, GroupID: &group.ID, CreatedAt: time.Now()}
	require.NoError(t, posts.Create(ctx, grouped))
	require.NoError(t, follows.Create(ctx, reader.ID, author.ID))

	svc := NewFeedService(posts, groups, users, follows, feed.NewComposer(10), nil)

	index, err := svc.Index(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(13), index.Count)
	assert.Equal(t, 2, index.NumPages)
	assert.Len(t, index.Posts, 10)
	assert.Equal(t, grouped.ID, index.Posts[0].ID)

	last, err := svc.Index(ctx, "2")
	require.NoError(t, err)
	assert.Len(t, last.Posts, 3)

	gf, err := svc.Group(ctx, "cats", "")
	require.NoError(t, err)
	require.Len(t, gf.Page.Posts, 1)
	assert.Equal(t, grouped.ID, gf.Page.Posts[0].ID)

	empty, err := svc.Group(ctx, "dogs", "")
	require.NoError(t, err)
	assert.Empty(t, empty.Page.Posts)

	pf, err := svc.Profile(ctx, "author", reader.ID, "")
	require.NoError(t, err)
	require.Len(t, pf.Page.Posts, 1)
	assert.True(t, pf.Following)

	followed, err := svc.Following(ctx, reader.ID, "")
	require.NoError(t, err)
	require.Len(t, followed.Posts, 1)
	assert.Equal(t, grouped.ID, followed.Posts[0].ID)

	none, err := svc.Following(ctx, stranger.ID, "")
	require.NoError(t, err)
	assert.Empty(t, none.Posts)
}
