package forms

import (
	"strings"
	"testing"

	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMessageForm(t *testing.T) {
	t.Parallel()

	f := MessageForm{Text: "  Hello  "}
	assert.True(t, f.Validate().Valid())
	assert.Equal(t, "Hello", f.Text)

	blank := MessageForm{Text: "   "}
	errs := blank.Validate()
	assert.False(t, errs.Valid())
	assert.Equal(t, "This field is required.", errs.First("text"))
}

func TestUserAddForm(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		form      UserAddForm
		badFields []string
	}{
		{"Valid", UserAddForm{Username: "testuser", Email: "test@test.com", Password: "HASHED_PASSWORD"}, nil},
		{"Valid With Image", UserAddForm{Username: "testuser", Email: "test@test.com", Password: "123456", ImageURL: "http://x/y.png"}, nil},
		{"Missing Username", UserAddForm{Email: "test@test.com", Password: "123456"}, []string{"username"}},
		{"Missing Email", UserAddForm{Username: "testuser", Password: "123456"}, []string{"email"}},
		{"Bad Email", UserAddForm{Username: "testuser", Email: "nope", Password: "123456"}, []string{"email"}},
		{"Short Password", UserAddForm{Username: "testuser", Email: "test@test.com", Password: "12345"}, []string{"password"}},
		{"Everything Wrong", UserAddForm{}, []string{"username", "email", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.form.Validate()
			assert.Len(t, errs, len(tt.badFields))
			for _, field := range tt.badFields {
				assert.NotEmpty(t, errs.First(field), field)
			}
		})
	}
}

func TestUserAddForm_RequiredEmailReportedOnce(t *testing.T) {
	t.Parallel()
	f := UserAddForm{Username: "testuser", Password: "123456"}
	errs := f.Validate()
	assert.Len(t, errs["email"], 1)
}

func TestLoginForm(t *testing.T) {
	t.Parallel()

	ok := LoginForm{Username: "testuser", Password: "123456"}
	assert.True(t, ok.Validate().Valid())

	bad := LoginForm{Username: " ", Password: "abc"}
	errs := bad.Validate()
	assert.NotEmpty(t, errs.First("username"))
	assert.NotEmpty(t, errs.First("password"))
}

func TestUserEditForm(t *testing.T) {
	t.Parallel()

	onlyPassword := UserEditForm{Password: "123456"}
	assert.True(t, onlyPassword.Validate().Valid(), "username and email are optional")

	tooLong := UserEditForm{
		Password: "123456",
		Bio:      strings.Repeat("b", models.MaxBioLength+1),
		Location: strings.Repeat("l", models.MaxLocationLength+1),
		Email:    "not-an-email",
	}
	errs := tooLong.Validate()
	assert.NotEmpty(t, errs.First("bio"))
	assert.NotEmpty(t, errs.First("location"))
	assert.NotEmpty(t, errs.First("email"))

	missingPassword := UserEditForm{Username: "new_name"}
	assert.NotEmpty(t, missingPassword.Validate().First("password"))
}

func TestEditFormFor(t *testing.T) {
	t.Parallel()
	u := &models.User{Username: "testuser", Email: "t@t.com", Bio: "hi", Location: "SF", ImageURL: "/a.png"}
	f := EditFormFor(u)
	assert.Equal(t, "testuser", f.Username)
	assert.Equal(t, "SF", f.Location)
	assert.Empty(t, f.Password)
}
