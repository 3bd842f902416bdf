package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"inkwell/internal/models"
	"inkwell/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// ServeMedia handles GET /media/* from the blob store.
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	key, err := storage.CleanKey(c.Params("*"))
	if err != nil {
		return respond(c, models.NewNotFoundError("media", c.Params("*")))
	}

	rc, err := s.store.Open(c.UserContext(), key)
	if errors.Is(err, storage.ErrNotFound) {
		return respond(c, models.NewNotFoundError("media", key))
	}
	if err != nil {
		return respond(c, models.NewInternalError(err))
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return respond(c, models.NewInternalError(err))
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(data)
}
