package repository

import (
	"errors"
	"strings"

	"warbler/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes mapped to integrity errors.
const (
	pgUniqueViolation  = "23505"
	pgNotNullViolation = "23502"
)

// mapWriteError turns driver constraint failures into typed integrity errors.
// Anything else is an internal error.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return models.NewDuplicateError(fieldFromConstraint(pgErr.ConstraintName), err)
		case pgNotNullViolation:
			ie := models.ErrRequiredField(pgErr.ColumnName)
			ie.Err = err
			return ie
		}
	}

	// SQLite reports duplicates through TranslateError without naming the column.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.NewDuplicateError("", err)
	}

	return models.NewInternalError(err)
}

// fieldFromConstraint recovers the column from names like uni_users_username or users_email_key.
func fieldFromConstraint(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "username"):
		return "username"
	case strings.Contains(name, "email"):
		return "email"
	default:
		return ""
	}
}

func notFoundOr(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// escapeLike escapes LIKE wildcards so a search term matches literally.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}
