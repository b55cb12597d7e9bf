package database

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"

	"warbler/internal/middleware"
)

//go:embed migrations
var migrationFS embed.FS

// Migration is a numbered schema change, NNNNNN_name.{up,down}.sql on disk.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

// Checksum fingerprints the up script so edits to applied migrations are caught.
func (m Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpScript))
	return hex.EncodeToString(sum[:])
}

// LoadMigrations returns the embedded migrations for a GORM dialect name
// ("postgres" or "sqlite") in version order.
func LoadMigrations(dialect string) ([]Migration, error) {
	return readMigrations(migrationFS, path.Join("migrations", dialect))
}

func readMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	ups, err := fs.Glob(fsys, path.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, err
	}
	if len(ups) == 0 {
		if _, statErr := fs.Stat(fsys, dir); statErr != nil {
			return nil, fmt.Errorf("no migrations for %s: %w", path.Base(dir), statErr)
		}
	}

	migrations := make([]Migration, 0, len(ups))
	for _, upPath := range ups {
		stem := strings.TrimSuffix(path.Base(upPath), ".up.sql")
		num, name, ok := strings.Cut(stem, "_")
		version, convErr := strconv.Atoi(num)
		if !ok || convErr != nil || name == "" {
			middleware.Logger.Warn("ignoring misnamed migration", slog.String("file", upPath))
			continue
		}

		up, err := fs.ReadFile(fsys, upPath)
		if err != nil {
			return nil, err
		}
		down, err := fs.ReadFile(fsys, path.Join(dir, stem+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", stem, err)
		}

		migrations = append(migrations, Migration{
			Version:    version,
			Name:       name,
			UpScript:   string(up),
			DownScript: string(down),
		})
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %06d", migrations[i].Version)
		}
	}
	return migrations, nil
}
