// Package seed creates demo data for development and tests.
package seed

import (
	"fmt"
	"strings"
	"time"

	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every generated user.
const DefaultPassword = "password"

// Factory builds domain entities with fake content and persists them.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	hash  string
}

// NewFactory hashes DefaultPassword once at cost and seeds the faker.
// A zero randSeed picks a random one.
func NewFactory(db *gorm.DB, cost int, randSeed int64) (*Factory, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := service.HashPassword(DefaultPassword, cost)
	if err != nil {
		return nil, err
	}
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}
	return &Factory{db: db, faker: gofakeit.New(randSeed), hash: hash}, nil
}

// CreateUser persists a fake user. Overrides run before the insert.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	username := truncate(strings.ToLower(f.faker.Username()), models.MaxUsernameLength-4)
	username = fmt.Sprintf("%s%d", username, f.faker.Number(1000, 9999))

	user := &models.User{
		Username: username,
		Email:    username + "@" + f.faker.DomainName(),
		Password: f.hash,
		Bio:      truncate(f.faker.Sentence(8), models.MaxBioLength),
		Location: truncate(f.faker.City(), models.MaxLocationLength),
	}
	if f.faker.Bool() {
		user.ImageURL = fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID())
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %q: %w", user.Username, err)
	}
	return user, nil
}

// CreateMessage persists a fake warble by author, posted some time in the last 90 days.
func (f *Factory) CreateMessage(author *models.User, overrides ...func(*models.Message)) (*models.Message, error) {
	ago := time.Duration(f.faker.Number(0, 90*24*60)) * time.Minute
	msg := &models.Message{
		Text:      truncate(f.faker.HipsterSentence(f.faker.Number(4, 16)), models.MaxMessageLength),
		Timestamp: time.Now().UTC().Add(-ago),
		UserID:    author.ID,
	}
	for _, override := range overrides {
		override(msg)
	}

	if err := f.db.Omit(clause.Associations).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// Follow makes follower follow followed. Existing edges are left alone.
func (f *Factory) Follow(follower, followed *models.User) error {
	edge := models.Follow{UserFollowingID: follower.ID, UserBeingFollowedID: followed.ID}
	return f.db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error
}

// Like records user liking msg. Existing likes are left alone.
func (f *Factory) Like(user *models.User, msg *models.Message) error {
	like := models.Like{UserID: user.ID, MessageID: msg.ID}
	return f.db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n]))
}
