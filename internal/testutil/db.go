// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"testing"

	"warbler/internal/database"
	"warbler/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NewSQLiteDB returns a migrated in-memory database that is closed with the test.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(context.Background(), db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// NewRedis starts a miniredis server and returns a client connected to it.
func NewRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

// CreateUser inserts a user whose password is the bcrypt hash of password.
func CreateUser(t testing.TB, db *gorm.DB, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		Username: username,
		Email:    username + "@test.com",
		Password: string(hash),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateMessage inserts a message authored by userID.
func CreateMessage(t testing.TB, db *gorm.DB, userID uint, text string) *models.Message {
	t.Helper()
	m := &models.Message{UserID: userID, Text: text}
	require.NoError(t, db.Create(m).Error)
	return m
}

// Follow records that followerID follows followedID.
func Follow(t testing.TB, db *gorm.DB, followerID, followedID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{UserFollowingID: followerID, UserBeingFollowedID: followedID}).Error)
}

// Like records that userID likes messageID.
func Like(t testing.TB, db *gorm.DB, userID, messageID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Like{UserID: userID, MessageID: messageID}).Error)
}
