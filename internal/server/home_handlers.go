package server

import (
	"warbler/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// Home shows the timeline to a logged-in user and the landing page otherwise.
func (s *Server) Home(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return s.render(c, fiber.StatusOK, "home-anon", nil)
	}

	ctx := c.UserContext()
	profile, err := s.userService.ProfileStats(ctx, user.ID)
	if err != nil {
		return err
	}
	messages, err := s.messageService.Timeline(ctx, user.ID, repository.DefaultTimelineLimit)
	if err != nil {
		return err
	}
	liked, err := s.messageService.LikedIDs(ctx, user.ID)
	if err != nil {
		return err
	}

	return s.render(c, fiber.StatusOK, "home", fiber.Map{
		"Profile":  profile,
		"Messages": messages,
		"Liked":    liked,
	})
}
