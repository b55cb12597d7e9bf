package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"warbler/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog is one row of migration_logs.
type MigrationLog struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:255;not null"`
	Checksum  string `gorm:"size:64"`
	AppliedAt time.Time
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// Migrator applies the embedded migrations of one dialect and records them
// in migration_logs. Each script runs in the same transaction as its log row.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator loads the migrations matching db's dialect.
func NewMigrator(db *gorm.DB) (*Migrator, error) {
	migrations, err := LoadMigrations(db.Dialector.Name())
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, migrations: migrations}, nil
}

// Applied returns the recorded migrations by version. A database that was
// never migrated has none.
func (m *Migrator) Applied(ctx context.Context) ([]MigrationLog, error) {
	db := m.db.WithContext(ctx)
	if !db.Migrator().HasTable(&MigrationLog{}) {
		return nil, nil
	}
	var logs []MigrationLog
	if err := db.Order("version").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	return logs, nil
}

// Pending returns the migrations not yet recorded, oldest first.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	logs, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(logs))
	for _, l := range logs {
		done[l.Version] = true
	}

	var pending []Migration
	for _, mig := range m.migrations {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration and returns how many ran. It refuses to
// run when the log holds versions this build does not know or scripts that
// changed after they were applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	db := m.db.WithContext(ctx)
	if err := db.AutoMigrate(&MigrationLog{}); err != nil {
		return 0, fmt.Errorf("create migration_logs: %w", err)
	}

	logs, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if err := checkHistory(logs, m.migrations); err != nil {
		return 0, err
	}

	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}
	for _, mig := range pending {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&MigrationLog{
				Version:   mig.Version,
				Name:      mig.Name,
				Checksum:  mig.Checksum(),
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return 0, fmt.Errorf("migration %s: %w", mig, err)
		}
		middleware.Logger.InfoContext(ctx, "migration applied", slog.String("migration", mig.String()))
	}
	return len(pending), nil
}

// Down runs the down script of an applied migration and forgets it.
func (m *Migrator) Down(ctx context.Context, version int) error {
	idx := slices.IndexFunc(m.migrations, func(mig Migration) bool { return mig.Version == version })
	if idx < 0 {
		return fmt.Errorf("migration version %d not found", version)
	}
	mig := m.migrations[idx]

	logs, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(logs, func(l MigrationLog) bool { return l.Version == version }) {
		return fmt.Errorf("migration %s has not been applied", mig)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return err
		}
		return tx.Delete(&MigrationLog{}, "version = ?", version).Error
	})
	if err != nil {
		return fmt.Errorf("roll back %s: %w", mig, err)
	}
	middleware.Logger.InfoContext(ctx, "migration rolled back", slog.String("migration", mig.String()))
	return nil
}

var errSchemaDrift = errors.New("migration history does not match this build")

func checkHistory(logs []MigrationLog, known []Migration) error {
	byVersion := make(map[int]Migration, len(known))
	for _, mig := range known {
		byVersion[mig.Version] = mig
	}

	var problems []string
	for _, l := range logs {
		mig, ok := byVersion[l.Version]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("%06d is unknown", l.Version))
		case l.Checksum != "" && l.Checksum != mig.Checksum():
			problems = append(problems, fmt.Sprintf("%s was edited after it was applied", mig))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", errSchemaDrift, strings.Join(problems, "; "))
}

// RunMigrations applies all pending migrations for db's dialect.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	m, err := NewMigrator(db)
	if err != nil {
		return err
	}
	_, err = m.Up(ctx)
	return err
}

// RollbackMigration reverts one applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m, err := NewMigrator(db)
	if err != nil {
		return err
	}
	return m.Down(ctx, version)
}
