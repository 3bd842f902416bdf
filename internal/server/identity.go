package server

import (
	"strings"

	"inkwell/internal/access"
	"inkwell/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

const tokenCookieName = "access_token"

// ResolveIdentity attaches the requester to the request when a valid token
// is presented in the Authorization header or the access_token cookie.
// Missing or invalid tokens leave the request anonymous.
func (s *Server) ResolveIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Cookies(tokenCookieName)
		}
		if token == "" {
			return c.Next()
		}

		id, err := s.identities.Resolve(c.UserContext(), token)
		if err != nil {
			return c.Next()
		}
		c.Locals(middleware.IdentityLocal, id)
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// identityFrom returns the requester, or nil for an anonymous visitor.
func identityFrom(c *fiber.Ctx) *access.Identity {
	return middleware.IdentityFrom(c)
}

func viewerID(id *access.Identity) uint {
	if id == nil {
		return 0
	}
	return id.UserID
}
