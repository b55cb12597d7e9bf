package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"warbler/internal/forms"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

const editTemplate = "users/edit"

// ListUsers shows every user, or those whose username contains ?q=.
func (s *Server) ListUsers(c *fiber.Ctx) error {
	search := strings.TrimSpace(c.Query("q"))
	users, err := s.userService.ListUsers(c.UserContext(), search)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "users/index", fiber.Map{
		"Title":  "Warbler | Users",
		"Users":  users,
		"Search": search,
	})
}

// ShowUser renders a profile with its counters and messages.
func (s *Server) ShowUser(c *fiber.Ctx) error {
	id, err := parseID(c, "userId")
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	profile, err := s.userService.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	data, err := s.profileData(c, profile)
	if err != nil {
		return err
	}
	data["Messages"] = profile.Messages
	return s.render(c, fiber.StatusOK, "users/show", data)
}

// profileData is the shared binding of the pages drawn under the profile header.
func (s *Server) profileData(c *fiber.Ctx, profile *service.Profile) (fiber.Map, error) {
	data := fiber.Map{
		"Title":   "Warbler | @" + profile.User.Username,
		"Profile": profile,
	}
	me := currentUser(c)
	if me == nil {
		return data, nil
	}

	data["IsOwnProfile"] = me.ID == profile.User.ID
	following, err := s.userService.IsFollowing(c.UserContext(), me.ID, profile.User.ID)
	if err != nil {
		return nil, err
	}
	data["IsFollowing"] = following

	liked, err := s.messageService.LikedIDs(c.UserContext(), me.ID)
	if err != nil {
		return nil, err
	}
	data["Liked"] = liked
	return data, nil
}

// ownProfile parses :userId and reports whether it names the logged-in user.
func (s *Server) ownProfile(c *fiber.Ctx) (uint, bool, error) {
	id, err := parseID(c, "userId")
	if err != nil {
		return 0, false, err
	}
	me := currentUser(c)
	return id, me != nil && me.ID == id, nil
}

// ShowFollowing lists who the user follows. Owner only.
func (s *Server) ShowFollowing(c *fiber.Ctx) error {
	return s.showRelations(c, "users/following", s.userService.Following)
}

// ShowFollowers lists the user's followers. Owner only.
func (s *Server) ShowFollowers(c *fiber.Ctx) error {
	return s.showRelations(c, "users/followers", s.userService.Followers)
}

func (s *Server) showRelations(
	c *fiber.Ctx,
	name string,
	list func(ctx context.Context, id uint) ([]models.User, error),
) error {
	id, own, err := s.ownProfile(c)
	if err != nil {
		return err
	}
	if !own {
		return s.denyAccess(c)
	}

	profile, err := s.userService.ProfileStats(c.UserContext(), id)
	if err != nil {
		return err
	}
	users, err := list(c.UserContext(), id)
	if err != nil {
		return err
	}
	data, err := s.profileData(c, profile)
	if err != nil {
		return err
	}
	data["Users"] = users
	return s.render(c, fiber.StatusOK, name, data)
}

// ShowLikes lists the messages a user has liked.
func (s *Server) ShowLikes(c *fiber.Ctx) error {
	id, err := parseID(c, "userId")
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	profile, err := s.userService.ProfileStats(ctx, id)
	if err != nil {
		return err
	}
	messages, err := s.userService.Likes(ctx, id)
	if err != nil {
		return err
	}
	data, err := s.profileData(c, profile)
	if err != nil {
		return err
	}
	data["Messages"] = messages
	return s.render(c, fiber.StatusOK, "users/likes", data)
}

// Follow makes the current user follow :userId.
func (s *Server) Follow(c *fiber.Ctx) error {
	return s.changeFollow(c, "follow", s.userService.Follow)
}

// StopFollowing makes the current user unfollow :userId.
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	return s.changeFollow(c, "unfollow", s.userService.Unfollow)
}

func (s *Server) changeFollow(
	c *fiber.Ctx,
	action string,
	apply func(ctx context.Context, followerID, followedID uint) error,
) error {
	id, err := parseID(c, "userId")
	if err != nil {
		return err
	}
	me := currentUser(c)

	if err := apply(c.UserContext(), me.ID, id); err != nil {
		if errors.Is(err, models.ErrSelfFollow) {
			flash(c, flashDanger, models.ErrSelfFollow.Message)
			return c.Redirect(fmt.Sprintf("/users/%d", id))
		}
		return err
	}
	s.metrics.IncFollowChange(action)
	return c.Redirect(fmt.Sprintf("/users/%d/following", me.ID))
}

// EditProfilePage renders the edit form pre-filled from the stored profile.
func (s *Server) EditProfilePage(c *fiber.Ctx) error {
	return s.renderForm(c, editTemplate, "Edit profile", forms.EditFormFor(currentUser(c)), nil)
}

// UpdateProfile applies the edit once the current password checks out.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var form forms.UserEditForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}
	if errs := form.Validate(); !errs.Valid() {
		form.Password = ""
		return s.renderForm(c, editTemplate, "Edit profile", form, errs)
	}

	me := currentUser(c)
	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:         me.ID,
		Username:       form.Username,
		Email:          form.Email,
		ImageURL:       form.ImageURL,
		HeaderImageURL: form.HeaderImageURL,
		Bio:            form.Bio,
		Location:       form.Location,
		Password:       form.Password,
	})
	if err != nil {
		var integrity *models.IntegrityError
		switch {
		case errors.Is(err, models.ErrWrongPassword):
			flash(c, flashDanger, "Wrong password, please try again.")
			return c.Redirect("/")
		case errors.As(err, &integrity):
			flash(c, flashDanger, integrity.Message)
			form.Password = ""
			return s.renderForm(c, editTemplate, "Edit profile", form, nil)
		}
		return err
	}

	flash(c, flashSuccess, "Profile updated.")
	return c.Redirect(fmt.Sprintf("/users/%d", user.ID))
}

// DeleteAccount removes the current user and everything they own.
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	me := currentUser(c)
	if err := s.userService.DeleteUser(c.UserContext(), me.ID); err != nil {
		return err
	}
	if err := s.logout(c); err != nil {
		return err
	}
	flash(c, flashInfo, "Your account has been deleted.")
	return c.Redirect("/signup")
}
