package seed

import (
	"context"
	"strings"
	"testing"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestFactory_CreateUser(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f, err := NewFactory(db, bcrypt.MinCost, 42)
	require.NoError(t, err)

	u, err := f.CreateUser(func(u *models.User) { u.Username = "override" })
	require.NoError(t, err)

	assert.NotZero(t, u.ID)
	assert.Equal(t, "override", u.Username)
	assert.LessOrEqual(t, len([]rune(u.Bio)), models.MaxBioLength)
	assert.LessOrEqual(t, len([]rune(u.Location)), models.MaxLocationLength)
	assert.NotEmpty(t, u.ImageURL)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(DefaultPassword)))
}

func TestFactory_CreateMessage(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f, err := NewFactory(db, bcrypt.MinCost, 7)
	require.NoError(t, err)
	u, err := f.CreateUser()
	require.NoError(t, err)

	m, err := f.CreateMessage(u)
	require.NoError(t, err)
	assert.Equal(t, u.ID, m.UserID)
	assert.NotEmpty(t, m.Text)
	assert.LessOrEqual(t, len([]rune(m.Text)), models.MaxMessageLength)
	assert.False(t, m.Timestamp.IsZero())
}

func TestFactory_FollowAndLikeAreIdempotent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f, err := NewFactory(db, bcrypt.MinCost, 1)
	require.NoError(t, err)
	a, err := f.CreateUser()
	require.NoError(t, err)
	b, err := f.CreateUser()
	require.NoError(t, err)
	m, err := f.CreateMessage(b)
	require.NoError(t, err)

	require.NoError(t, f.Follow(a, b))
	require.NoError(t, f.Follow(a, b))
	require.NoError(t, f.Like(a, m))
	require.NoError(t, f.Like(a, m))

	assert.Equal(t, int64(1), count(t, db, &models.Follow{}))
	assert.Equal(t, int64(1), count(t, db, &models.Like{}))
}

func TestSeed(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()

	sum, err := Seed(ctx, db, Options{Users: 5, Messages: 20, Follows: 8, Likes: 10, BcryptCost: bcrypt.MinCost, RandSeed: 99})
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Users)
	assert.Equal(t, 20, sum.Messages)
	assert.Equal(t, int64(5), count(t, db, &models.User{}))
	assert.Equal(t, int64(20), count(t, db, &models.Message{}))
	assert.Equal(t, int64(sum.Follows), count(t, db, &models.Follow{}))
	assert.Equal(t, int64(sum.Likes), count(t, db, &models.Like{}))
	assert.LessOrEqual(t, sum.Follows, 8)
	assert.LessOrEqual(t, sum.Likes, 10)

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("user_following_id = user_being_followed_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)

	var ownLikes int64
	require.NoError(t, db.Model(&models.Like{}).
		Joins("JOIN messages ON messages.id = likes.message_id").
		Where("messages.user_id = likes.user_id").
		Count(&ownLikes).Error)
	assert.Zero(t, ownLikes)
}

func TestSeed_CapsFollowsForTinyDataSets(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	sum, err := Seed(context.Background(), db, Options{Users: 2, Follows: 50, BcryptCost: bcrypt.MinCost, RandSeed: 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, sum.Follows, 2)
	assert.Zero(t, sum.Likes)
}

func TestSeed_Clean(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "leftover", "password")
	testutil.CreateMessage(t, db, u.ID, "old news")

	_, err := Seed(ctx, db, Options{Users: 2, Messages: 1, Clean: true, BcryptCost: bcrypt.MinCost, RandSeed: 5})
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "leftover").Count(&n).Error)
	assert.Zero(t, n)
	assert.Equal(t, int64(2), count(t, db, &models.User{}))
	assert.Equal(t, int64(1), count(t, db, &models.Message{}))
}

func TestClearAll(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	a := testutil.CreateUser(t, db, "alice", "password")
	b := testutil.CreateUser(t, db, "bob", "password")
	m := testutil.CreateMessage(t, db, a.ID, "hello")
	testutil.Follow(t, db, b.ID, a.ID)
	testutil.Like(t, db, b.ID, m.ID)

	require.NoError(t, ClearAll(context.Background(), db, nil))

	for _, model := range []any{&models.Like{}, &models.Follow{}, &models.Message{}, &models.User{}} {
		assert.Zero(t, count(t, db, model), "%T", model)
	}
}

func TestClearAll_EvictsCachedUsers(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	rdb, mr := testutil.NewRedis(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice", "password")
	b := testutil.CreateUser(t, db, "bob", "password")
	require.NoError(t, cache.SetJSON(ctx, rdb, cache.UserKey(a.ID), a, cache.UserTTL))
	require.NoError(t, cache.SetJSON(ctx, rdb, cache.UserKey(b.ID), b, cache.UserTTL))
	require.NoError(t, mr.Set("unrelated", "stays"))

	_, err := Seed(ctx, db, Options{Users: 1, Clean: true, Cache: rdb, BcryptCost: bcrypt.MinCost, RandSeed: 7})
	require.NoError(t, err)

	assert.False(t, mr.Exists(cache.UserKey(a.ID)))
	assert.False(t, mr.Exists(cache.UserKey(b.ID)))
	assert.True(t, mr.Exists("unrelated"))
}

const demoFixtures = `
users:
  - username: alice
    email: alice@example.com
    password: wonderland
    bio: Down the rabbit hole.
  - username: bob
    email: bob@example.com
    password: builder
    location: Bristol
messages:
  - author: alice
    text: Curiouser and curiouser!
  - author: bob
    text: Can we fix it?
follows:
  - follower: bob
    followed: alice
likes:
  - user: bob
    message: 0
`

func TestLoadAndApplyFixtures(t *testing.T) {
	fx, err := LoadFixtures(strings.NewReader(demoFixtures))
	require.NoError(t, err)
	require.Len(t, fx.Users, 2)

	db := testutil.NewSQLiteDB(t)
	require.NoError(t, ApplyFixtures(context.Background(), db, fx, bcrypt.MinCost))

	var alice models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&alice).Error)
	assert.Equal(t, "Down the rabbit hole.", alice.Bio)
	assert.Equal(t, models.DefaultImageURL, alice.ImageURL)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(alice.Password), []byte("wonderland")))

	assert.Equal(t, int64(2), count(t, db, &models.Message{}))
	assert.Equal(t, int64(1), count(t, db, &models.Follow{}))

	var like models.Like
	require.NoError(t, db.First(&like).Error)
	var liked models.Message
	require.NoError(t, db.First(&liked, like.MessageID).Error)
	assert.Equal(t, alice.ID, liked.UserID)
}

func TestApplyFixtures_RollsBackOnConflict(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	testutil.CreateUser(t, db, "bob", "password")

	fx, err := LoadFixtures(strings.NewReader(demoFixtures))
	require.NoError(t, err)
	require.Error(t, ApplyFixtures(context.Background(), db, fx, bcrypt.MinCost))

	assert.Equal(t, int64(1), count(t, db, &models.User{}))
	assert.Zero(t, count(t, db, &models.Message{}))
}

func TestLoadFixtures_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"unknown key", "users:\n  - username: a\n    nickname: b\n", "nickname"},
		{"missing password", "users:\n  - username: a\n    email: a@x.io\n", "password is required"},
		{"unknown author", "messages:\n  - author: ghost\n    text: boo\n", "unknown author"},
		{"self follow", "users:\n  - {username: a, email: a@x.io, password: p}\nfollows:\n  - {follower: a, followed: a}\n", "cannot follow themselves"},
		{"bad like index", "users:\n  - {username: a, email: a@x.io, password: p}\nlikes:\n  - {user: a, message: 3}\n", "out of range"},
		{"own like", "users:\n  - {username: a, email: a@x.io, password: p}\nmessages:\n  - {author: a, text: hi}\nlikes:\n  - {user: a, message: 0}\n", "own message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFixtures(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadFixtures_Empty(t *testing.T) {
	fx, err := LoadFixtures(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, fx.Users)
}
