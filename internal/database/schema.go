package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"warbler/internal/config"
	"warbler/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema will do for a configuration.
// Hybrid runs SQL migrations everywhere and AutoMigrate only outside
// production-like environments; auto is refused there.
type SchemaPlan struct {
	Mode    string
	SQL     bool
	AutoORM bool
}

// PlanSchema resolves DB_SCHEMA_MODE against APP_ENV.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	env := strings.ToLower(strings.TrimSpace(cfg.Env))
	live := env == "production" || env == "prod" || env == "staging" || env == "stage"

	plan := SchemaPlan{Mode: mode}
	switch mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeHybrid:
		plan.SQL, plan.AutoORM = true, !live
	case SchemaModeAuto:
		if live {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %s", env)
		}
		plan.AutoORM = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return plan, nil
}

// AutoMigrate lets GORM create or alter the tables of every persistent model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the database up to date according to the schema plan.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if plan.AutoORM {
		middleware.Logger.InfoContext(ctx, "running gorm automigrate", slog.String("mode", plan.Mode))
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
	}
	return nil
}

// SchemaStatus describes the plan and, when SQL migrations are part of it,
// which versions are recorded and which are still to run.
type SchemaStatus struct {
	SchemaPlan
	Environment string
	Dialect     string
	Applied     []MigrationLog
	Pending     []Migration
}

// GetSchemaStatus reports the schema state without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan, Environment: cfg.Env, Dialect: db.Dialector.Name()}
	if !plan.SQL {
		return status, nil
	}

	m, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}
	if status.Applied, err = m.Applied(ctx); err != nil {
		return nil, err
	}
	if status.Pending, err = m.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
