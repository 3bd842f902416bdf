package server

import (
	"fmt"
	"net/url"
	"testing"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment(t *testing.T) {
	ts := newTestServer(t)
	leo, _ := ts.user(t, "leo")
	reader, readerToken := ts.user(t, "reader")
	p := ts.post(t, leo, "commentable", nil)
	commentURL := fmt.Sprintf("/posts/%d/comment/", p.ID)
	detailURL := fmt.Sprintf("/posts/%d/", p.ID)

	countComments := func() int64 {
		var n int64
		require.NoError(t, ts.db.Model(&models.Comment{}).Count(&n).Error)
		return n
	}

	t.Run("anonymous goes to login", func(t *testing.T) {
		resp := ts.postForm(t, commentURL, "", url.Values{"text": {"hi"}})
		assertRedirect(t, resp, "/auth/login/?next="+commentURL)
		assert.Zero(t, countComments())
	})

	t.Run("blank comment is dropped", func(t *testing.T) {
		resp := ts.postForm(t, commentURL, readerToken, url.Values{"text": {"  "}})
		assertRedirect(t, resp, detailURL)
		assert.Zero(t, countComments())
	})

	t.Run("comment is stored", func(t *testing.T) {
		resp := ts.postForm(t, commentURL, readerToken, url.Values{"text": {"nice post"}})
		assertRedirect(t, resp, detailURL)

		var c models.Comment
		require.NoError(t, ts.db.First(&c).Error)
		assert.Equal(t, "nice post", c.Text)
		assert.Equal(t, reader.ID, c.AuthorID)
		assert.Equal(t, p.ID, c.PostID)
	})

	t.Run("JSON body", func(t *testing.T) {
		resp := ts.postJSON(t, commentURL, readerToken, map[string]string{"text": "from json"})
		assertRedirect(t, resp, detailURL)
		assert.Equal(t, int64(2), countComments())
	})

	t.Run("missing post", func(t *testing.T) {
		resp := ts.postForm(t, "/posts/999/comment/", readerToken, url.Values{"text": {"hello"}})
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
