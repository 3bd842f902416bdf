package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"inkwell/internal/access"
	"inkwell/internal/feed"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postForm is the decoded body of the create and edit forms.
type postForm struct {
	Text      string
	GroupID   *uint
	ImageName string
	Image     []byte

	rawGroup string
}

func (f postForm) values() fiber.Map {
	return fiber.Map{"text": f.Text, "group": f.rawGroup}
}

// readPostForm accepts JSON, urlencoded and multipart bodies. The image is
// only read from multipart bodies.
func readPostForm(c *fiber.Ctx) (postForm, error) {
	var form postForm

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEApplicationJSON) {
		var body struct {
			Text  string          `json:"text"`
			Group json.RawMessage `json:"group"`
		}
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return form, models.NewValidationError("Invalid request body")
		}
		form.Text = body.Text
		form.rawGroup = strings.Trim(strings.TrimSpace(string(body.Group)), `"`)
		if form.rawGroup == "null" {
			form.rawGroup = ""
		}
	} else {
		form.Text = c.FormValue("text")
		form.rawGroup = strings.TrimSpace(c.FormValue("group"))
	}

	if form.rawGroup != "" {
		id, err := strconv.ParseUint(form.rawGroup, 10, 32)
		if err != nil || id == 0 {
			return form, models.NewFieldError("group",
				"Select a valid choice. That choice is not one of the available choices.")
		}
		gid := uint(id)
		form.GroupID = &gid
	}

	if mf, err := c.MultipartForm(); err == nil {
		if files := mf.File["image"]; len(files) > 0 {
			content, err := readUpload(files[0])
			if err != nil {
				return form, models.NewFieldError("image", "Upload a valid image.")
			}
			form.ImageName = files[0].Filename
			form.Image = content
		}
	}
	return form, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// pageResponse wraps a bare feed page.
type pageResponse struct {
	Page *feed.Page `json:"page"`
}

// Index handles GET /
// @Summary Global feed
// @Tags feeds
// @Produce json
// @Param page query string false "Page number"
// @Success 200 {object} pageResponse
// @Router / [get]
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.feedService.Index(c.UserContext(), c.Query("page"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(pageResponse{Page: page})
}

// GroupPosts handles GET /group/:slug
// @Summary Group feed
// @Tags feeds
// @Produce json
// @Param slug path string true "Group slug"
// @Param page query string false "Page number"
// @Success 200 {object} service.GroupFeed
// @Failure 404 {object} models.ErrorResponse
// @Router /group/{slug}/ [get]
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	res, err := s.feedService.Group(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}

// Profile handles GET /profile/:username
// @Summary Author profile and posts
// @Tags profiles
// @Produce json
// @Param username path string true "Username"
// @Param page query string false "Page number"
// @Success 200 {object} service.ProfileFeed
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/ [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	res, err := s.feedService.Profile(c.UserContext(), c.Params("username"),
		viewerID(identityFrom(c)), c.Query("page"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}

// PostDetail handles GET /posts/:id
// @Summary Post with its comments
// @Tags posts
// @Produce json
// @Param id path int true "Post id"
// @Success 200
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/ [get]
func (s *Server) PostDetail(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return respond(c, err)
	}
	comments, err := s.commentService.ListComments(ctx, id)
	if err != nil {
		return respond(c, err)
	}
	count, err := s.postRepo.Count(ctx, repository.PostScope{AuthorID: post.AuthorID})
	if err != nil {
		return respond(c, err)
	}

	return c.JSON(fiber.Map{
		"post":              post,
		"comments":          comments,
		"form":              fiber.Map{"text": ""},
		"author_post_count": count,
	})
}

// CreatePostForm handles GET /create
// @Summary Empty post form with group choices
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200
// @Router /create/ [get]
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
	if done, err := s.decisionResponse(c, s.guard.RequireAuthenticated(identityFrom(c)), 0); done {
		return err
	}
	groups, err := s.groupRepo.List(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"form":   fiber.Map{"text": "", "group": ""},
		"groups": groups,
	})
}

// CreatePost handles POST /create
// @Summary Create a post
// @Tags posts
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Security BearerAuth
// @Param text formData string true "Post text"
// @Param group formData int false "Group id"
// @Param image formData file false "GIF, PNG, JPEG or WebP image"
// @Success 302 "Redirect to the author's profile"
// @Failure 400 {object} models.ErrorResponse
// @Router /create/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := identityFrom(c)
	if done, err := s.decisionResponse(c, s.guard.RequireAuthenticated(id), 0); done {
		return err
	}

	form, err := readPostForm(c)
	if err != nil {
		return respondForm(c, err, form.values(), nil)
	}

	_, err = s.postService.CreatePost(ctx, service.CreatePostInput{
		AuthorID:  id.UserID,
		Text:      form.Text,
		GroupID:   form.GroupID,
		ImageName: form.ImageName,
		Image:     form.Image,
	})
	if err != nil {
		return respondForm(c, err, form.values(), nil)
	}

	username := id.Username
	if username == "" {
		user, err := s.userRepo.GetByID(ctx, id.UserID)
		if err != nil {
			return respond(c, err)
		}
		username = user.Username
	}
	return c.Redirect(profileURL(username), fiber.StatusFound)
}

// loadEditable resolves the post named by the route and checks that the
// requester may change it. A nil post with a nil error means a response has
// already been written.
func (s *Server) loadEditable(c *fiber.Ctx, check func(*access.Identity, *models.Post) access.Decision) (*models.Post, *access.Identity, error) {
	id := identityFrom(c)
	if id == nil {
		return nil, nil, s.redirectToLogin(c)
	}
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil, nil, nil
	}
	post, err := s.postService.GetPost(c.UserContext(), postID)
	if err != nil {
		return nil, nil, respond(c, err)
	}
	if done, err := s.decisionResponse(c, check(id, post), post.ID); done {
		return nil, nil, err
	}
	return post, id, nil
}

// EditPostForm handles GET /posts/:id/edit
// @Summary Prefilled edit form
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post id"
// @Success 200
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/edit/ [get]
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	post, _, err := s.loadEditable(c, s.guard.CanEditPost)
	if post == nil {
		return err
	}
	groups, err := s.groupRepo.List(c.UserContext())
	if err != nil {
		return respond(c, err)
	}

	group := ""
	if post.GroupID != nil {
		group = fmt.Sprint(*post.GroupID)
	}
	return c.JSON(fiber.Map{
		"post":    post,
		"form":    fiber.Map{"text": post.Text, "group": group},
		"groups":  groups,
		"is_edit": true,
	})
}

// EditPost handles POST /posts/:id/edit
// @Summary Edit a post
// @Tags posts
// @Accept json,x-www-form-urlencoded,mpfd
// @Security BearerAuth
// @Param id path int true "Post id"
// @Param text formData string true "Post text"
// @Param group formData int false "Group id"
// @Param image formData file false "Replacement image"
// @Success 302 "Redirect to the post"
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/{id}/edit/ [post]
func (s *Server) EditPost(c *fiber.Ctx) error {
	post, id, err := s.loadEditable(c, s.guard.CanEditPost)
	if post == nil {
		return err
	}

	editExtra := fiber.Map{"is_edit": true}
	form, err := readPostForm(c)
	if err != nil {
		return respondForm(c, err, form.values(), editExtra)
	}

	_, err = s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		RequesterID: id.UserID,
		PostID:      post.ID,
		Text:        form.Text,
		GroupID:     form.GroupID,
		ImageName:   form.ImageName,
		Image:       form.Image,
	})
	if err != nil {
		return respondForm(c, err, form.values(), editExtra)
	}
	return c.Redirect(postDetailURL(post.ID), fiber.StatusFound)
}

// DeletePost handles POST /posts/:id/delete
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post id"
// @Success 302 "Redirect to the author's profile"
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/delete/ [post]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	post, id, err := s.loadEditable(c, s.guard.CanDeletePost)
	if post == nil {
		return err
	}
	if err := s.postService.DeletePost(c.UserContext(), post.ID); err != nil {
		return respond(c, err)
	}

	username := id.Username
	if username == "" {
		username = post.Author.Username
	}
	return c.Redirect(profileURL(username), fiber.StatusFound)
}
