package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"messageId", "message ID"},
		{"followedUserId", "followed user ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestParseID(t *testing.T) {
	app := fiber.New()
	app.Get("/items/:itemId", func(c *fiber.Ctx) error {
		id, err := parseID(c, "itemId")
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": id})
	})

	tests := []struct {
		path   string
		status int
	}{
		{"/items/42", http.StatusOK},
		{"/items/abc", http.StatusNotFound},
		{"/items/0", http.StatusNotFound},
		{"/items/-3", http.StatusNotFound},
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

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"fiber not found", fiber.ErrNotFound, http.StatusNotFound, "Page not found."},
		{"fiber forbidden", fiber.ErrForbidden, http.StatusForbidden, "Forbidden"},
		{"app not found", models.NewNotFoundError("User", 7), http.StatusNotFound, "User with ID 7 not found"},
		{"wrapped validation", fmt.Errorf("create: %w", models.NewValidationError("bad")), http.StatusBadRequest, "bad"},
		{"forbidden", models.ErrForbidden, http.StatusForbidden, "Access unauthorized."},
		{"wrong password", models.ErrWrongPassword, http.StatusUnauthorized, "Incorrect password."},
		{"integrity", models.ErrUsernameTaken, http.StatusConflict, "Username already taken"},
		{"internal", models.NewInternalError(errors.New("boom")), http.StatusInternalServerError, "Something went wrong."},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "Something went wrong."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestCookieKey_IsStableAESKey(t *testing.T) {
	a := cookieKey("secret")
	assert.Equal(t, a, cookieKey("secret"))
	assert.NotEqual(t, a, cookieKey("other"))
	assert.Len(t, a, 44)
}
