// Command seed fills the Warbler database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"warbler/internal/bootstrap"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numMessages := flag.Int("messages", 100, "Number of messages to create")
	numFollows := flag.Int("follows", 60, "Number of follow edges to create")
	numLikes := flag.Int("likes", 150, "Number of likes to create")
	shouldClean := flag.Bool("clean", false, "Delete all users, messages, follows and likes first")
	fixtures := flag.String("fixtures", "", "Load this YAML fixture file instead of generating data")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Redis is only used to evict cached users on -clean; it may be nil.
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	ctx := context.Background()

	if *fixtures != "" {
		fx, err := seed.LoadFixturesFile(*fixtures)
		if err != nil {
			log.Fatalf("Failed to load fixtures: %v", err)
		}
		if *shouldClean {
			if err := seed.ClearAll(ctx, db, rdb); err != nil {
				log.Fatalf("Cleanup failed: %v", err)
			}
		}
		if err := seed.ApplyFixtures(ctx, db, fx, cfg.BcryptCost); err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
		log.Printf("Loaded %d users, %d messages, %d follows, %d likes from %s",
			len(fx.Users), len(fx.Messages), len(fx.Follows), len(fx.Likes), *fixtures)
		return
	}

	log.Printf("Target: %d users, %d messages, %d follows, %d likes, clean=%v",
		*numUsers, *numMessages, *numFollows, *numLikes, *shouldClean)

	sum, err := seed.Seed(ctx, db, seed.Options{
		Users:      *numUsers,
		Messages:   *numMessages,
		Follows:    *numFollows,
		Likes:      *numLikes,
		Clean:      *shouldClean,
		Cache:      rdb,
		BcryptCost: cfg.BcryptCost,
		RandSeed:   *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d messages, %d follows, %d likes",
		sum.Users, sum.Messages, sum.Follows, sum.Likes)
	log.Printf("All generated users have the password: %s", seed.DefaultPassword)
}
