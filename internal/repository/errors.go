package repository

import (
	"errors"
	"strings"

	"filmrental/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// translate maps driver errors onto the domain taxonomy.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFoundf("%s", what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.NewConflict("duplicate " + what + " (" + pgErr.ConstraintName + ")")
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
		return domain.NewConflict("duplicate " + what)
	}
	return err
}
