// Command migrate inspects and changes the Warbler database schema.
//
//	migrate up             apply pending SQL migrations
//	migrate auto           run GORM AutoMigrate (refused in production)
//	migrate status         show the schema plan and migration state
//	migrate down VERSION   roll back one applied migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"warbler/internal/bootstrap"
	"warbler/internal/config"
	"warbler/internal/database"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate up | auto | status | down VERSION")

func main() {
	flag.Parse()
	if err := run(context.Background(), flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	switch args[0] {
	case "up":
		m, err := database.NewMigrator(db)
		if err != nil {
			return err
		}
		n, err := m.Up(ctx)
		if err != nil {
			return err
		}
		log.Printf("%d migration(s) applied", n)
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return err
		}
		log.Println("automigrate complete")
	case "status":
		return printStatus(ctx, db, cfg)
	case "down":
		if len(args) < 2 {
			return errUsage
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return err
		}
		log.Printf("rolled back %06d", version)
	default:
		return errUsage
	}
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "mode\t%s\nenv\t%s\ndialect\t%s\nsql migrations\t%t\nautomigrate\t%t\n\n",
		status.Mode, status.Environment, status.Dialect, status.SQL, status.AutoORM)
	for _, l := range status.Applied {
		_, _ = fmt.Fprintf(w, "%06d_%s\tapplied %s\n", l.Version, l.Name, l.AppliedAt.Format("2006-01-02 15:04"))
	}
	for _, m := range status.Pending {
		_, _ = fmt.Fprintf(w, "%s\tpending\n", m)
	}
	return w.Flush()
}
