package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"warbler/internal/models"
	"warbler/internal/service"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fixtures is a hand-written data set, usually loaded from YAML.
// Messages, follows and likes refer to users by username; likes refer to
// messages by their position in Messages.
type Fixtures struct {
	Users    []UserFixture    `yaml:"users"`
	Messages []MessageFixture `yaml:"messages"`
	Follows  []FollowFixture  `yaml:"follows"`
	Likes    []LikeFixture    `yaml:"likes"`
}

type UserFixture struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	ImageURL string `yaml:"image_url"`
	Bio      string `yaml:"bio"`
	Location string `yaml:"location"`
}

type MessageFixture struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

type FollowFixture struct {
	Follower string `yaml:"follower"`
	Followed string `yaml:"followed"`
}

type LikeFixture struct {
	User    string `yaml:"user"`
	Message int    `yaml:"message"`
}

// LoadFixturesFile opens path and decodes it with LoadFixtures.
func LoadFixturesFile(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadFixtures(f)
}

// LoadFixtures decodes and validates a fixtures document. Unknown keys are rejected.
func LoadFixtures(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixtures
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks that every reference points at a declared user or message.
func (fx *Fixtures) Validate() error {
	users := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		switch {
		case u.Username == "":
			return fmt.Errorf("users[%d]: username is required", i)
		case u.Email == "":
			return fmt.Errorf("users[%d]: email is required", i)
		case u.Password == "":
			return fmt.Errorf("users[%d]: password is required", i)
		case users[u.Username]:
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		}
		users[u.Username] = true
	}

	for i, m := range fx.Messages {
		if !users[m.Author] {
			return fmt.Errorf("messages[%d]: unknown author %q", i, m.Author)
		}
		if m.Text == "" || len([]rune(m.Text)) > models.MaxMessageLength {
			return fmt.Errorf("messages[%d]: text must be 1 to %d characters", i, models.MaxMessageLength)
		}
	}

	for i, f := range fx.Follows {
		if !users[f.Follower] || !users[f.Followed] {
			return fmt.Errorf("follows[%d]: unknown user", i)
		}
		if f.Follower == f.Followed {
			return fmt.Errorf("follows[%d]: %q cannot follow themselves", i, f.Follower)
		}
	}

	for i, l := range fx.Likes {
		if !users[l.User] {
			return fmt.Errorf("likes[%d]: unknown user %q", i, l.User)
		}
		if l.Message < 0 || l.Message >= len(fx.Messages) {
			return fmt.Errorf("likes[%d]: message index %d out of range", i, l.Message)
		}
		if fx.Messages[l.Message].Author == l.User {
			return fmt.Errorf("likes[%d]: %q cannot like their own message", i, l.User)
		}
	}
	return nil
}

// ApplyFixtures inserts fx in a single transaction. Passwords are hashed at cost.
func ApplyFixtures(ctx context.Context, db *gorm.DB, fx *Fixtures, cost int) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make(map[string]*models.User, len(fx.Users))
		for _, uf := range fx.Users {
			hash, err := service.HashPassword(uf.Password, cost)
			if err != nil {
				return err
			}
			u := &models.User{
				Username: uf.Username,
				Email:    uf.Email,
				Password: hash,
				ImageURL: uf.ImageURL,
				Bio:      uf.Bio,
				Location: uf.Location,
			}
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("create user %q: %w", uf.Username, err)
			}
			users[uf.Username] = u
		}

		messages := make([]*models.Message, len(fx.Messages))
		for i, mf := range fx.Messages {
			m := &models.Message{Text: mf.Text, UserID: users[mf.Author].ID}
			if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
				return fmt.Errorf("create message %d: %w", i, err)
			}
			messages[i] = m
		}

		for _, ff := range fx.Follows {
			edge := models.Follow{
				UserFollowingID:     users[ff.Follower].ID,
				UserBeingFollowedID: users[ff.Followed].ID,
			}
			if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
				return fmt.Errorf("follow %s -> %s: %w", ff.Follower, ff.Followed, err)
			}
		}

		for _, lf := range fx.Likes {
			like := models.Like{UserID: users[lf.User].ID, MessageID: messages[lf.Message].ID}
			if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return fmt.Errorf("like by %s: %w", lf.User, err)
			}
		}
		return nil
	})
}
