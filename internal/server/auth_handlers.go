package server

import (
	"time"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginPage handles GET /auth/login
// @Summary Login page data
// @Tags auth
// @Produce json
// @Param next query string false "Local path to return to"
// @Success 200
// @Router /auth/login/ [get]
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"form": fiber.Map{"username": "", "password": ""},
		"next": c.Query("next"),
	})
}

// Signup handles POST /auth/signup
// @Summary Register an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.SignupInput true "Signup data"
// @Success 201 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/signup/ [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.SignupInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.accountService.Signup(c.UserContext(), req)
	if err != nil {
		return respond(c, err)
	}

	s.setTokenCookie(c, res.Token)
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Login handles POST /auth/login. A safe next parameter turns the response
// into a redirect.
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param next query string false "Local path to return to"
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} service.AuthResult
// @Success 302 "Redirect to next"
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login/ [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.accountService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respond(c, err)
	}

	s.setTokenCookie(c, res.Token)
	if next := c.Query("next"); isLocalPath(next) {
		return c.Redirect(next, fiber.StatusFound)
	}
	return c.JSON(res)
}

// Logout handles POST /auth/logout
// @Summary Clear the token cookie
// @Tags auth
// @Success 204
// @Router /auth/logout/ [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(7 * 24 * time.Hour),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// isLocalPath rejects absolute and protocol-relative URLs so next cannot
// send the user off-site.
func isLocalPath(p string) bool {
	return len(p) > 0 && p[0] == '/' && (len(p) == 1 || (p[1] != '/' && p[1] != '\\'))
}
