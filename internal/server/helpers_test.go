package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"postId", "post ID"},
		{"authorUserId", "author user ID"},
		{"slug", "slug"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestParseID(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/posts/:id", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	tests := []struct {
		path   string
		status int
	}{
		{"/posts/7", fiber.StatusOK},
		{"/posts/0", fiber.StatusNotFound},
		{"/posts/-3", fiber.StatusNotFound},
		{"/posts/abc", fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestLoginRedirectURL(t *testing.T) {
	tests := []struct {
		name     string
		loginURL string
		next     string
		want     string
	}{
		{"default login page", "", "/create/", "/auth/login/?next=/create/"},
		{"custom login page", "/signin/", "/follow/", "/signin/?next=/follow/"},
		{"query string is escaped", "", "/follow/?page=2", "/auth/login/?next=/follow/%3Fpage%3D2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loginRedirectURL(tt.loginURL, tt.next))
		})
	}
}

func TestRespondForm(t *testing.T) {
	app := fiber.New()
	app.Post("/form", func(c *fiber.Ctx) error {
		return respondForm(c, models.NewFieldError("text", "This field is required."),
			fiber.Map{"text": ""}, fiber.Map{"is_edit": true})
	})
	app.Post("/missing", func(c *fiber.Ctx) error {
		return respondForm(c, models.NewNotFoundError("Post", 3), nil, nil)
	})
	app.Post("/boom", func(c *fiber.Ctx) error {
		return respondForm(c, errors.New("boom"), nil, nil)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/form", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeValidation, body["code"])
	assert.Equal(t, true, body["is_edit"])
	assert.Equal(t, []interface{}{"This field is required."}, body["errors"].(map[string]interface{})["text"])

	missing, err := app.Test(httptest.NewRequest(http.MethodPost, "/missing", nil))
	require.NoError(t, err)
	defer func() { _ = missing.Body.Close() }()
	assert.Equal(t, fiber.StatusNotFound, missing.StatusCode)

	boom, err := app.Test(httptest.NewRequest(http.MethodPost, "/boom", nil))
	require.NoError(t, err)
	defer func() { _ = boom.Body.Close() }()
	assert.Equal(t, fiber.StatusInternalServerError, boom.StatusCode)
}

func TestReadinessCheck_DatabaseDown(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	s := &Server{db: db}
	app := fiber.New()
	app.Get("/health/ready", s.ReadinessCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestPostDetail_DatabaseError(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts"`)).
		WillReturnError(errors.New("relation does not exist"))

	s, err := NewServerWithDeps(testConfig(), db, nil, testutil.NewMemoryBlobStore())
	require.NoError(t, err)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/posts/1/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeInternal, body.Code)
	assert.Empty(t, body.Details)
}
