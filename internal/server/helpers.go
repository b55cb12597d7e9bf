package server

import (
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"warbler/internal/forms"
	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

// render fills in the layout's shared data and renders name inside the base layout.
func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	user := currentUser(c)
	data["CurrentUser"] = user
	data["CurrentUserID"] = uint(0)
	if user != nil {
		data["CurrentUserID"] = user.ID
	}
	data["Flashes"] = popFlashes(c)
	if token, ok := c.Locals(csrfContextKey).(string); ok {
		data["CSRFToken"] = token
	}
	if _, ok := data["Title"]; !ok {
		data["Title"] = "Warbler"
	}
	return c.Status(status).Render(name, data)
}

// renderForm re-renders a form page with its current values and field errors.
func (s *Server) renderForm(c *fiber.Ctx, name, title string, form any, errs forms.FieldErrors) error {
	if errs == nil {
		errs = forms.FieldErrors{}
	}
	return s.render(c, fiber.StatusOK, name, fiber.Map{
		"Title":  title,
		"Form":   form,
		"Errors": errs,
	})
}

// parseID extracts a route parameter by name as a positive uint.
// Anything else is a 404, matching an unknown id.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, "Invalid "+humanizeParam(param))
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "messageId" -> "message ID".
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
	return append(words, s[start:])
}

// errorStatus maps an error to the status code and message shown on the error page.
func errorStatus(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code == fiber.StatusNotFound {
			return fe.Code, "Page not found."
		}
		return fe.Code, fe.Message
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeNotFound:
			return fiber.StatusNotFound, appErr.Message
		case models.CodeValidation:
			return fiber.StatusBadRequest, appErr.Message
		case models.CodeUnauthorized:
			return fiber.StatusUnauthorized, appErr.Message
		case models.CodeForbidden:
			return fiber.StatusForbidden, appErr.Message
		}
	}

	var integrity *models.IntegrityError
	if errors.As(err, &integrity) {
		return fiber.StatusConflict, integrity.Message
	}

	return fiber.StatusInternalServerError, "Something went wrong."
}

// handleError is the app's ErrorHandler: log server faults, then render the error page.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, message := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}

	rerr := s.render(c, status, "error", fiber.Map{
		"Title":   "Warbler | Error",
		"Status":  status,
		"Message": message,
	})
	if rerr != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "failed to render error page", slog.String("error", rerr.Error()))
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(status).SendString(message)
	}
	return nil
}
