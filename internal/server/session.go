package server

import (
	"context"
	"fmt"
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	// currUserKey is the session key holding the logged-in user's id.
	currUserKey = "curr_user"
	flashKey    = "_flashes"

	localSession   = "session"
	localUser      = "currentUser"
	csrfContextKey = "csrf"
)

// Flash categories used by the templates.
const (
	flashSuccess = "success"
	flashDanger  = "danger"
	flashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

// SessionMiddleware loads the session, resolves curr_user into a *models.User
// and saves the session once the handler chain is done.
func (s *Server) SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := s.sessions.Get(c)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		c.Locals(localSession, sess)

		if id, ok := sess.Get(currUserKey).(uint); ok {
			user, err := s.userService.GetUser(c.UserContext(), id)
			switch {
			case err == nil:
				setCurrentUser(c, user)
			case models.HasCode(err, models.CodeNotFound):
				// Account deleted elsewhere
				sess.Delete(currUserKey)
			default:
				return err
			}
		}

		err = c.Next()

		// Save releases the session; the error handler runs later and must not see it.
		c.Locals(localSession, nil)
		if !sess.Fresh() || len(sess.Keys()) > 0 {
			if serr := sess.Save(); serr != nil {
				middleware.Logger.ErrorContext(c.UserContext(), "failed to save session", slog.String("error", serr.Error()))
				if err == nil {
					err = serr
				}
			}
		}
		return err
	}
}

func setCurrentUser(c *fiber.Ctx, user *models.User) {
	c.Locals(localUser, user)
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID))
}

// currentUser returns the logged-in user or nil.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}

func sessionFrom(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals(localSession).(*session.Session)
	return sess
}

// login starts a new session id for user.
func (s *Server) login(c *fiber.Ctx, user *models.User) error {
	sess := sessionFrom(c)
	if sess == nil {
		return fmt.Errorf("login: no session")
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	sess.Set(currUserKey, user.ID)
	setCurrentUser(c, user)
	return nil
}

// logout forgets the user and rotates the session id. Pending flashes survive.
func (s *Server) logout(c *fiber.Ctx) error {
	c.Locals(localUser, nil)
	sess := sessionFrom(c)
	if sess == nil {
		return nil
	}
	sess.Delete(currUserKey)
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	return nil
}

func flash(c *fiber.Ctx, category, message string) {
	sess := sessionFrom(c)
	if sess == nil {
		return
	}
	flashes, _ := sess.Get(flashKey).([]Flash)
	sess.Set(flashKey, append(flashes, Flash{Category: category, Message: message}))
}

func popFlashes(c *fiber.Ctx) []Flash {
	sess := sessionFrom(c)
	if sess == nil {
		return nil
	}
	flashes, _ := sess.Get(flashKey).([]Flash)
	if len(flashes) > 0 {
		sess.Delete(flashKey)
	}
	return flashes
}

// denyAccess is the single answer for "not logged in" and "not yours".
func (s *Server) denyAccess(c *fiber.Ctx) error {
	flash(c, flashDanger, models.ErrForbidden.Message)
	return c.Redirect("/")
}

// requireLogin redirects anonymous visitors home.
func (s *Server) requireLogin(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		return s.denyAccess(c)
	}
	return c.Next()
}
