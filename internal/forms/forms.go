// Package forms declares the HTML form schemas and their field-level checks.
// Forms are decoded by Fiber's BodyParser through the form tags.
package forms

import (
	"strings"

	"warbler/internal/models"
	"warbler/internal/validation"
)

// FieldErrors maps a form field to its messages. An empty map means the form is valid.
type FieldErrors map[string][]string

// Add appends a message for field.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Valid reports whether no field has an error.
func (fe FieldErrors) Valid() bool {
	return len(fe) == 0
}

// First returns the first message for field, or "".
func (fe FieldErrors) First(field string) string {
	if msgs := fe[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (fe FieldErrors) check(field string, err error) {
	if err != nil {
		fe.Add(field, err.Error())
	}
}

// MessageForm posts a new warble.
type MessageForm struct {
	Text string `form:"text"`
}

func (f *MessageForm) Validate() FieldErrors {
	fe := FieldErrors{}
	f.Text = strings.TrimSpace(f.Text)
	fe.check("text", validation.Required(f.Text))
	return fe
}

// UserAddForm is the signup form.
type UserAddForm struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Password string `form:"password"`
	ImageURL string `form:"image_url"`
}

func (f *UserAddForm) Validate() FieldErrors {
	fe := FieldErrors{}
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.ImageURL = strings.TrimSpace(f.ImageURL)

	fe.check("username", validation.ValidateUsername(f.Username))
	if err := validation.Required(f.Email); err != nil {
		fe.check("email", err)
	} else {
		fe.check("email", validation.ValidateEmail(f.Email))
	}
	fe.check("password", validation.ValidatePassword(f.Password))
	return fe
}

// LoginForm authenticates an existing user.
type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (f *LoginForm) Validate() FieldErrors {
	fe := FieldErrors{}
	f.Username = strings.TrimSpace(f.Username)
	fe.check("username", validation.Required(f.Username))
	fe.check("password", validation.ValidatePassword(f.Password))
	return fe
}

// UserEditForm edits the current user's profile. Password is the current
// password and is checked again by the service before anything is saved.
type UserEditForm struct {
	Username       string `form:"username"`
	Email          string `form:"email"`
	ImageURL       string `form:"image_url"`
	HeaderImageURL string `form:"header_image_url"`
	Bio            string `form:"bio"`
	Location       string `form:"location"`
	Password       string `form:"password"`
}

func (f *UserEditForm) Validate() FieldErrors {
	fe := FieldErrors{}
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	f.HeaderImageURL = strings.TrimSpace(f.HeaderImageURL)
	f.Bio = strings.TrimSpace(f.Bio)
	f.Location = strings.TrimSpace(f.Location)

	if f.Username != "" {
		fe.check("username", validation.ValidateUsername(f.Username))
	}
	if f.Email != "" {
		fe.check("email", validation.ValidateEmail(f.Email))
	}
	fe.check("bio", validation.MaxLength(f.Bio, models.MaxBioLength))
	fe.check("location", validation.MaxLength(f.Location, models.MaxLocationLength))
	fe.check("password", validation.ValidatePassword(f.Password))
	return fe
}

// EditFormFor pre-fills the edit form from the stored profile.
func EditFormFor(u *models.User) UserEditForm {
	return UserEditForm{
		Username:       u.Username,
		Email:          u.Email,
		ImageURL:       u.ImageURL,
		HeaderImageURL: u.HeaderImageURL,
		Bio:            u.Bio,
		Location:       u.Location,
	}
}
