package server

import (
	"errors"
	"fmt"

	"warbler/internal/forms"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	signupTemplate = "users/signup"
	loginTemplate  = "users/login"
)

// SignupPage renders the empty signup form.
func (s *Server) SignupPage(c *fiber.Ctx) error {
	return s.renderForm(c, signupTemplate, "Sign up", forms.UserAddForm{}, nil)
}

// Signup creates the account, logs it in and redirects home.
// A taken username or email re-renders the form with a flash.
func (s *Server) Signup(c *fiber.Ctx) error {
	var form forms.UserAddForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}
	if errs := form.Validate(); !errs.Valid() {
		return s.renderForm(c, signupTemplate, "Sign up", form, errs)
	}

	user, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		ImageURL: form.ImageURL,
	})
	if err != nil {
		var integrity *models.IntegrityError
		if errors.As(err, &integrity) {
			flash(c, flashDanger, integrity.Message)
			return s.renderForm(c, signupTemplate, "Sign up", form, nil)
		}
		return err
	}

	if err := s.login(c, user); err != nil {
		return err
	}
	s.metrics.IncSignup()
	return c.Redirect("/")
}

// LoginPage renders the empty login form.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return s.renderForm(c, loginTemplate, "Log in", forms.LoginForm{}, nil)
}

// Login checks the credentials and greets the user on the home page.
func (s *Server) Login(c *fiber.Ctx) error {
	var form forms.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}
	if errs := form.Validate(); !errs.Valid() {
		return s.renderForm(c, loginTemplate, "Log in", form, errs)
	}

	user, err := s.authService.Authenticate(c.UserContext(), form.Username, form.Password)
	if err != nil {
		return err
	}
	if user == nil {
		s.metrics.IncLoginFailure()
		flash(c, flashDanger, "Invalid credentials.")
		return s.renderForm(c, loginTemplate, "Log in", forms.LoginForm{Username: form.Username}, nil)
	}

	if err := s.login(c, user); err != nil {
		return err
	}
	flash(c, flashSuccess, fmt.Sprintf("Hello, %s!", user.Username))
	return c.Redirect("/")
}

// Logout clears the session and sends the visitor to the login page.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.logout(c); err != nil {
		return err
	}
	flash(c, flashSuccess, "You have successfully logged out.")
	return c.Redirect("/login")
}
