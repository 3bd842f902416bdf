package server

import (
	"inkwell/internal/access"

	"github.com/gofiber/fiber/v2"
)

// FollowIndex handles GET /follow, the posts of every author the requester
// follows.
// @Summary Posts by followed authors
// @Tags feeds
// @Produce json
// @Security BearerAuth
// @Param page query string false "Page number"
// @Success 200 {object} pageResponse
// @Success 302 "Login required"
// @Router /follow/ [get]
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	id := identityFrom(c)
	if done, err := s.decisionResponse(c, s.guard.RequireAuthenticated(id), 0); done {
		return err
	}
	page, err := s.feedService.Following(c.UserContext(), id.UserID, c.Query("page"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(pageResponse{Page: page})
}

// ProfileFollow handles GET /profile/:username/follow
// @Summary Follow an author
// @Tags profiles
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 302 "Redirect to the profile"
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/follow/ [get]
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	return s.changeFollow(c, true)
}

// ProfileUnfollow handles GET /profile/:username/unfollow
// @Summary Unfollow an author
// @Tags profiles
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 302 "Redirect to the profile"
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/unfollow/ [get]
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	return s.changeFollow(c, false)
}

func (s *Server) changeFollow(c *fiber.Ctx, follow bool) error {
	ctx := c.UserContext()
	id := identityFrom(c)
	if id == nil {
		return s.redirectToLogin(c)
	}

	username := c.Params("username")
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return respond(c, err)
	}

	if s.guard.CanFollow(id, author) == access.Allow {
		if follow {
			_, err = s.followService.Follow(ctx, id.UserID, author.Username)
		} else {
			_, err = s.followService.Unfollow(ctx, id.UserID, author.Username)
		}
		if err != nil {
			return respond(c, err)
		}
	}
	return c.Redirect(profileURL(author.Username), fiber.StatusFound)
}
