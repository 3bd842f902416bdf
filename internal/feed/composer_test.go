package feed

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	posts   []*models.Post
	fetches int
}

func (s *sliceSource) Count(context.Context) (int64, error) { return int64(len(s.posts)), nil }

func (s *sliceSource) Fetch(_ context.Context, limit, offset int) ([]*models.Post, error) {
	s.fetches++
	if offset >= len(s.posts) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.posts) {
		end = len(s.posts)
	}
	return s.posts[offset:end], nil
}

func makePosts(n int) []*models.Post {
	posts := make([]*models.Post, n)
	for i := range posts {
		posts[i] = &models.Post{ID: uint(n - i), Text: "post"}
	}
	return posts
}

func TestParsePage(t *testing.T) {
	tests := map[string]int{
		"":                     1,
		"abc":                  1,
		"2.5":                  1,
		"3":                    3,
		" 4 ":                  4,
		"0":                    0,
		"-2":                   -2,
		"1e3":                  1,
		"last":                 1,
		"99999999999999999999": -1,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ParsePage(raw), "raw=%q", raw)
	}
}

func TestCompose_PageSizes(t *testing.T) {
	c := NewComposer(10)
	src := &sliceSource{posts: makePosts(13)}

	first, err := c.Compose(context.Background(), src, "1")
	require.NoError(t, err)
	assert.Len(t, first.Posts, 10)
	assert.Equal(t, 2, first.NumPages)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrevious)
	assert.Equal(t, 2, first.NextPage)
	assert.Zero(t, first.PreviousPage)

	second, err := c.Compose(context.Background(), src, "2")
	require.NoError(t, err)
	assert.Len(t, second.Posts, 3)
	assert.False(t, second.HasNext)
	assert.True(t, second.HasPrevious)
	assert.Equal(t, 1, second.PreviousPage)
	assert.Equal(t, uint(3), second.Posts[0].ID)
}

func TestCompose_PageLengthFormula(t *testing.T) {
	for _, n := range []int{1, 9, 10, 11, 25, 30} {
		for _, per := range []int{1, 3, 10} {
			c := NewComposer(per)
			src := &sliceSource{posts: makePosts(n)}
			pages := NumPages(int64(n), per)
			for k := 1; k <= pages; k++ {
				page, err := c.Compose(context.Background(), src, strconv.Itoa(k))
				require.NoError(t, err)
				want := per
				if rest := n - (k-1)*per; rest < per {
					want = rest
				}
				assert.Len(t, page.Posts, want, "n=%d per=%d k=%d", n, per, k)
			}
		}
	}
}

func TestCompose_Clamping(t *testing.T) {
	c := NewComposer(10)
	src := &sliceSource{posts: makePosts(13)}

	for _, raw := range []string{"99", "0", "-1", "99999999999999999999", "-99999999999999999999"} {
		page, err := c.Compose(context.Background(), src, raw)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Number, "raw=%q", raw)
		assert.Len(t, page.Posts, 3)
	}

	page, err := c.Compose(context.Background(), src, "nope")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
}

func TestCompose_EmptySource(t *testing.T) {
	c := NewComposer(0)
	src := &sliceSource{}

	page, err := c.Compose(context.Background(), src, "5")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 1, page.NumPages)
	assert.Equal(t, DefaultPerPage, page.PerPage)
	assert.NotNil(t, page.Posts)
	assert.Empty(t, page.Posts)
	assert.False(t, page.HasNext)
	assert.Zero(t, src.fetches)
}

func TestCompose_PropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	c := NewComposer(10)

	_, err := c.Compose(context.Background(), SourceFunc{
		CountFunc: func(context.Context) (int64, error) { return 0, boom },
	}, "1")
	assert.ErrorIs(t, err, boom)

	_, err = c.Compose(context.Background(), SourceFunc{
		CountFunc: func(context.Context) (int64, error) { return 3, nil },
		FetchFunc: func(context.Context, int, int) ([]*models.Post, error) { return nil, boom },
	}, "1")
	assert.ErrorIs(t, err, boom)
}
