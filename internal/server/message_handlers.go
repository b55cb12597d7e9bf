package server

import (
	"fmt"

	"warbler/internal/forms"
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

const newMessageTemplate = "messages/new"

// NewMessagePage renders the compose form.
func (s *Server) NewMessagePage(c *fiber.Ctx) error {
	return s.renderForm(c, newMessageTemplate, "New message", forms.MessageForm{}, nil)
}

// CreateMessage posts a warble and returns to the author's profile.
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	var form forms.MessageForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}
	errs := form.Validate()
	if !errs.Valid() {
		return s.renderForm(c, newMessageTemplate, "New message", form, errs)
	}

	me := currentUser(c)
	if _, err := s.messageService.Create(c.UserContext(), me.ID, form.Text); err != nil {
		if models.HasCode(err, models.CodeValidation) {
			_, message := errorStatus(err)
			errs.Add("text", message)
			return s.renderForm(c, newMessageTemplate, "New message", form, errs)
		}
		return err
	}

	s.metrics.IncMessageCreated()
	return c.Redirect(fmt.Sprintf("/users/%d", me.ID))
}

// ShowMessage renders a single message.
func (s *Server) ShowMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "messageId")
	if err != nil {
		return err
	}
	msg, err := s.messageService.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	me := currentUser(c)
	return s.render(c, fiber.StatusOK, "messages/show", fiber.Map{
		"Title":   "Warbler | @" + msg.User.Username,
		"Message": msg,
		"IsOwner": me != nil && me.ID == msg.UserID,
	})
}

// DeleteMessage removes one of the current user's messages.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "messageId")
	if err != nil {
		return err
	}
	me := currentUser(c)

	if err := s.messageService.Delete(c.UserContext(), me.ID, id); err != nil {
		if models.HasCode(err, models.CodeForbidden) {
			return s.denyAccess(c)
		}
		return err
	}
	return c.Redirect(fmt.Sprintf("/users/%d", me.ID))
}

// ToggleLike likes or unlikes a message, then goes back where the user came from.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := parseID(c, "messageId")
	if err != nil {
		return err
	}
	me := currentUser(c)

	liked, err := s.messageService.ToggleLike(c.UserContext(), me.ID, id)
	if err != nil {
		if models.HasCode(err, models.CodeForbidden) {
			return s.denyAccess(c)
		}
		return err
	}
	s.metrics.IncLikeToggle(liked)
	return c.RedirectBack("/")
}
