package server

import (
	"fmt"
	"net/url"
	"strconv"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_NewestFirstAndPaginated(t *testing.T) {
	ts := newTestServer(t)
	leo, _ := ts.user(t, "leo")
	for i := 1; i <= 13; i++ {
		ts.post(t, leo, "post "+strconv.Itoa(i), nil)
	}

	first := decodeBody(t, ts.get(t, "/", ""))
	posts := pagePosts(t, first)
	require.Len(t, posts, 10)
	assert.Equal(t, "post 13", posts[0].(map[string]interface{})["text"])

	second := decodeBody(t, ts.get(t, "/?page=2", ""))
	assert.Len(t, pagePosts(t, second), 3)

	// Out-of-range and junk page numbers still render a page.
	assert.Len(t, pagePosts(t, decodeBody(t, ts.get(t, "/?page=99", ""))), 3)
	assert.Len(t, pagePosts(t, decodeBody(t, ts.get(t, "/?page=abc", ""))), 10)
}

func TestIndex_CachedUntilCleared(t *testing.T) {
	ts := newTestServer(t)
	leo, token := ts.user(t, "leo")
	p := ts.post(t, leo, "soon gone", nil)

	miss := ts.get(t, "/", "")
	assert.Equal(t, "MISS", miss.Header.Get("X-Cache"))
	require.Len(t, pagePosts(t, decodeBody(t, miss)), 1)

	resp := ts.postForm(t, fmt.Sprintf("/posts/%d/delete/", p.ID), token, url.Values{})
	assertRedirect(t, resp, "/profile/leo/")

	stale := ts.get(t, "/", "")
	assert.Equal(t, "HIT", stale.Header.Get("X-Cache"))
	assert.Len(t, pagePosts(t, decodeBody(t, stale)), 1)

	require.NoError(t, ts.PageCache().Clear(t.Context()))
	fresh := ts.get(t, "/", "")
	assert.Equal(t, "MISS", fresh.Header.Get("X-Cache"))
	assert.Empty(t, pagePosts(t, decodeBody(t, fresh)))
}

func TestGroupPosts(t *testing.T) {
	ts := newTestServer(t)
	leo, _ := ts.user(t, "leo")
	books := ts.group(t, "books")
	ts.group(t, "films")
	ts.post(t, leo, "in books", books)
	ts.post(t, leo, "no group", nil)

	resp := ts.get(t, "/group/books/", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "books", body["group"].(map[string]interface{})["slug"])
	posts := pagePosts(t, body)
	require.Len(t, posts, 1)
	assert.Equal(t, "in books", posts[0].(map[string]interface{})["text"])

	assert.Empty(t, pagePosts(t, decodeBody(t, ts.get(t, "/group/films/", ""))))
	assert.Equal(t, fiber.StatusNotFound, ts.get(t, "/group/nope/", "").StatusCode)
}

func TestProfile(t *testing.T) {
	ts := newTestServer(t)
	leo, _ := ts.user(t, "leo")
	_, readerToken := ts.user(t, "reader")
	ts.post(t, leo, "mine", nil)

	resp := ts.get(t, "/profile/leo/", readerToken)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "leo", body["author"].(map[string]interface{})["username"])
	assert.Equal(t, false, body["following"])
	assert.Len(t, pagePosts(t, body), 1)

	assert.Equal(t, fiber.StatusNotFound, ts.get(t, "/profile/ghost/", "").StatusCode)
}

func TestPostDetail(t *testing.T) {
	ts := newTestServer(t)
	leo, _ := ts.user(t, "leo")
	p := ts.post(t, leo, "detail", nil)
	ts.post(t, leo, "another", nil)
	require.NoError(t, ts.db.Create(&models.Comment{PostID: p.ID, AuthorID: leo.ID, Text: "first"}).Error)

	resp := ts.get(t, fmt.Sprintf("/posts/%d/", p.ID), "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "detail", body["post"].(map[string]interface{})["text"])
	assert.Len(t, body["comments"], 1)
	assert.Equal(t, float64(2), body["author_post_count"])
	assert.Equal(t, map[string]interface{}{"text": ""}, body["form"])

	assert.Equal(t, fiber.StatusNotFound, ts.get(t, "/posts/999/", "").StatusCode)
	assert.Equal(t, fiber.StatusNotFound, ts.get(t, "/posts/abc/", "").StatusCode)
}

func TestCreatePost_AnonymousRedirectsToLogin(t *testing.T) {
	ts := newTestServer(t)

	assertRedirect(t, ts.get(t, "/create/", ""), "/auth/login/?next=/create/")
	resp := ts.postForm(t, "/create/", "", url.Values{"text": {"hello"}})
	assertRedirect(t, resp, "/auth/login/?next=/create/")

	var count int64
	require.NoError(t, ts.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePostForm_ListsGroups(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user(t, "leo")
	ts.group(t, "books")

	resp := ts.get(t, "/create/", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Len(t, body["groups"], 1)
}

func TestCreatePost(t *testing.T) {
	ts := newTestServer(t)
	leo, token := ts.user(t, "leo")
	books := ts.group(t, "books")

	resp := ts.postForm(t, "/create/", token, url.Values{
		"text":  {"a new post"},
		"group": {strconv.Itoa(int(books.ID))},
	})
	assertRedirect(t, resp, "/profile/leo/")

	var post models.Post
	require.NoError(t, ts.db.First(&post).Error)
	assert.Equal(t, "a new post", post.Text)
	assert.Equal(t, leo.ID, post.AuthorID)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, books.ID, *post.GroupID)
}

func TestCreatePost_JSON(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user(t, "leo")

	resp := ts.postJSON(t, "/create/", token, map[string]interface{}{"text": "json post", "group": nil})
	assertRedirect(t, resp, "/profile/leo/")
}

func TestCreatePost_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user(t, "leo")

	tests := []struct {
		name  string
		form  url.Values
		field string
	}{
		{"blank text", url.Values{"text": {"   "}}, "text"},
		{"unknown group", url.Values{"text": {"hi"}, "group": {"42"}}, "group"},
		{"malformed group", url.Values{"text": {"hi"}, "group": {"books"}}, "group"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.postForm(t, "/create/", token, tt.form)
			require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			body := decodeBody(t, resp)
			errs := body["errors"].(map[string]interface{})
			assert.Contains(t, errs, tt.field)
			assert.Equal(t, tt.form.Get("text"), body["form"].(map[string]interface{})["text"])
		})
	}

	var count int64
	require.NoError(t, ts.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePost_WithImage(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user(t, "leo")

	resp := ts.postMultipart(t, "/create/", token, map[string]string{"text": "with picture"}, "small.gif", testutil.SmallGIF)
	assertRedirect(t, resp, "/profile/leo/")

	var post models.Post
	require.NoError(t, ts.db.First(&post).Error)
	assert.Equal(t, "posts/small.gif", post.Image)
	assert.Contains(t, ts.blobs.Keys("posts/"), "posts/small.gif")

	body := decodeBody(t, ts.get(t, fmt.Sprintf("/posts/%d/", post.ID), ""))
	assert.Equal(t, "/media/posts/small.gif", body["post"].(map[string]interface{})["image_url"])
}

func TestCreatePost_RejectsNonImage(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user(t, "leo")

	resp := ts.postMultipart(t, "/create/", token, map[string]string{"text": "bad file"}, "notes.txt", []byte("plain text"))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["errors"], "image")
	assert.Empty(t, ts.blobs.Keys(""))
}

func TestEditPost(t *testing.T) {
	ts := newTestServer(t)
	leo, leoToken := ts.user(t, "leo")
	_, otherToken := ts.user(t, "other")
	p := ts.post(t, leo, "original", nil)
	editURL := fmt.Sprintf("/posts/%d/edit/", p.ID)
	detailURL := fmt.Sprintf("/posts/%d/", p.ID)

	t.Run("anonymous", func(t *testing.T) {
		assertRedirect(t, ts.get(t, editURL, ""), "/auth/login/?next="+editURL)
	})

	t.Run("non-author is sent to detail unchanged", func(t *testing.T) {
		assertRedirect(t, ts.get(t, editURL, otherToken), detailURL)
		resp := ts.postForm(t, editURL, otherToken, url.Values{"text": {"hijacked"}})
		assertRedirect(t, resp, detailURL)

		var post models.Post
		require.NoError(t, ts.db.First(&post, p.ID).Error)
		assert.Equal(t, "original", post.Text)
	})

	t.Run("author sees prefilled form", func(t *testing.T) {
		resp := ts.get(t, editURL, leoToken)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, true, body["is_edit"])
		assert.Equal(t, "original", body["form"].(map[string]interface{})["text"])
	})

	t.Run("author blank edit", func(t *testing.T) {
		resp := ts.postForm(t, editURL, leoToken, url.Values{"text": {""}})
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, true, decodeBody(t, resp)["is_edit"])
	})

	t.Run("author edit keeps id and created_at", func(t *testing.T) {
		resp := ts.postForm(t, editURL, leoToken, url.Values{"text": {"edited"}})
		assertRedirect(t, resp, detailURL)

		var post models.Post
		require.NoError(t, ts.db.First(&post, p.ID).Error)
		assert.Equal(t, "edited", post.Text)
		assert.Equal(t, p.CreatedAt.Unix(), post.CreatedAt.Unix())
	})

	t.Run("missing post", func(t *testing.T) {
		assert.Equal(t, fiber.StatusNotFound, ts.get(t, "/posts/999/edit/", leoToken).StatusCode)
	})
}

func TestDeletePost(t *testing.T) {
	ts := newTestServer(t)
	leo, leoToken := ts.user(t, "leo")
	_, otherToken := ts.user(t, "other")
	p := ts.post(t, leo, "to delete", nil)
	deleteURL := fmt.Sprintf("/posts/%d/delete/", p.ID)

	assertRedirect(t, ts.postForm(t, deleteURL, otherToken, url.Values{}), fmt.Sprintf("/posts/%d/", p.ID))
	assertRedirect(t, ts.postForm(t, deleteURL, leoToken, url.Values{}), "/profile/leo/")

	var count int64
	require.NoError(t, ts.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}
