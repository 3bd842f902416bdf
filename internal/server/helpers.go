package server

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"inkwell/internal/access"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// Route ids that are not positive integers never match a page, so on failure
// it writes a 404 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound,
			&models.AppError{Code: models.CodeNotFound, Message: "Invalid " + humanizeParam(param)})
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "postId" -> "post ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// respond writes err with the status its code maps to.
func respond(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// respondForm reports a rejected form submission with the values the client
// sent so the form can be shown again.
func respondForm(c *fiber.Ctx, err error, form fiber.Map, extra fiber.Map) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != models.CodeValidation {
		return respond(c, err)
	}

	body := fiber.Map{
		"error": appErr.Message,
		"code":  appErr.Code,
		"form":  form,
	}
	if appErr.Field != "" {
		body["errors"] = map[string][]string{appErr.Field: {appErr.Message}}
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}

// redirectToLogin sends an anonymous visitor to the login page, remembering
// where they were going.
func (s *Server) redirectToLogin(c *fiber.Ctx) error {
	return c.Redirect(loginRedirectURL(s.config.LoginURL, c.OriginalURL()), fiber.StatusFound)
}

func loginRedirectURL(loginURL, next string) string {
	if loginURL == "" {
		loginURL = defaultLoginURL
	}
	// Slashes are safe in a query value and keep the target readable.
	escaped := strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
	return loginURL + "?next=" + escaped
}

func postDetailURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

// decisionResponse writes the redirect a guard decision calls for. It returns
// false when the action may proceed.
func (s *Server) decisionResponse(c *fiber.Ctx, d access.Decision, detailID uint) (bool, error) {
	switch d {
	case access.RedirectLogin:
		return true, s.redirectToLogin(c)
	case access.RedirectDetail:
		return true, c.Redirect(postDetailURL(detailID), fiber.StatusFound)
	default:
		return false, nil
	}
}
