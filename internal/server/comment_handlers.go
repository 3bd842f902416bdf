package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddComment handles POST /posts/:id/comment. Invalid comments are dropped
// and the visitor lands back on the post either way.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id := identityFrom(c)
	if done, err := s.decisionResponse(c, s.guard.RequireAuthenticated(id), 0); done {
		return err
	}

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text" form:"text"`
	}
	// An unreadable body is treated as an empty comment.
	_ = c.BodyParser(&req)

	_, err = s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		AuthorID: id.UserID,
		PostID:   postID,
		Text:     req.Text,
	})
	if err != nil && !models.IsCode(err, models.CodeValidation) {
		return respond(c, err)
	}
	return c.Redirect(postDetailURL(postID), fiber.StatusFound)
}
