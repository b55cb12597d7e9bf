package seed

import (
	"context"
	"fmt"
	"log/slog"

	"warbler/internal/cache"
	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options controls how much data Seed generates.
type Options struct {
	Users    int
	Messages int
	Follows  int
	Likes    int
	Clean    bool

	// BcryptCost and RandSeed are passed to NewFactory.
	BcryptCost int
	RandSeed   int64

	// Cache is the server's Redis; Clean evicts cached users from it. May be nil.
	Cache *redis.Client
}

// Summary reports what Seed created.
type Summary struct {
	Users    int
	Messages int
	Follows  int
	Likes    int
}

// Seed fills the database with fake users, messages, follows and likes.
// Follows never point at oneself and likes never target one's own message,
// so the requested counts are upper bounds on small data sets.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	if opts.Clean {
		if err := ClearAll(ctx, db, opts.Cache); err != nil {
			return nil, err
		}
	}

	sum := &Summary{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := NewFactory(tx, opts.BcryptCost, opts.RandSeed)
		if err != nil {
			return err
		}

		users := make([]*models.User, 0, opts.Users)
		for i := 0; i < opts.Users; i++ {
			u, err := f.CreateUser()
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		sum.Users = len(users)
		if len(users) == 0 {
			return nil
		}

		messages := make([]*models.Message, 0, opts.Messages)
		for i := 0; i < opts.Messages; i++ {
			m, err := f.CreateMessage(pick(f.faker, users))
			if err != nil {
				return err
			}
			messages = append(messages, m)
		}
		sum.Messages = len(messages)

		if sum.Follows, err = seedFollows(f, users, opts.Follows); err != nil {
			return err
		}
		sum.Likes, err = seedLikes(f, users, messages, opts.Likes)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	middleware.Logger.InfoContext(ctx, "database seeded",
		slog.Int("users", sum.Users),
		slog.Int("messages", sum.Messages),
		slog.Int("follows", sum.Follows),
		slog.Int("likes", sum.Likes))
	return sum, nil
}

type pair struct{ a, b uint }

func seedFollows(f *Factory, users []*models.User, n int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	limit := min(n, len(users)*(len(users)-1))
	seen := make(map[pair]bool, limit)
	for attempts := 0; len(seen) < limit && attempts < limit*10; attempts++ {
		follower, followed := pick(f.faker, users), pick(f.faker, users)
		key := pair{follower.ID, followed.ID}
		if follower.ID == followed.ID || seen[key] {
			continue
		}
		if err := f.Follow(follower, followed); err != nil {
			return len(seen), err
		}
		seen[key] = true
	}
	return len(seen), nil
}

func seedLikes(f *Factory, users []*models.User, messages []*models.Message, n int) (int, error) {
	if len(messages) == 0 || len(users) < 2 {
		return 0, nil
	}
	seen := make(map[pair]bool, n)
	for attempts := 0; len(seen) < n && attempts < n*10; attempts++ {
		user, msg := pick(f.faker, users), pick(f.faker, messages)
		key := pair{user.ID, msg.ID}
		if msg.UserID == user.ID || seen[key] {
			continue
		}
		if err := f.Like(user, msg); err != nil {
			return len(seen), err
		}
		seen[key] = true
	}
	return len(seen), nil
}

func pick[T any](faker *gofakeit.Faker, items []T) T {
	return items[faker.Number(0, len(items)-1)]
}

// ClearAll deletes every row, children first, then evicts the removed users
// from rdb, which may be nil.
func ClearAll(ctx context.Context, db *gorm.DB, rdb *redis.Client) error {
	var ids []uint
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		for _, m := range []any{&models.Like{}, &models.Follow{}, &models.Message{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clear %T: %w", m, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cache.UserKey(id))
	}
	if err := cache.Invalidate(ctx, rdb, keys...); err != nil {
		return fmt.Errorf("evict cached users: %w", err)
	}
	return nil
}
