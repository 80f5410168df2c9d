package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prior-it/clientbook/core"
)

var ErrNotMigrated = errors.New("the clientbook_slots table does not exist, run the migrations first")

// convertPgError will convert known postgres errors to their core variant.
// Unknown or unhandled errors will be returned as-is.
// Converting nil will simply return nil.
func convertPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return errors.Join(core.ErrConflict, err)
		case pgerrcode.InvalidTextRepresentation, pgerrcode.InvalidJSONText:
			return errors.Join(core.ErrCorruptStorage, err)
		case pgerrcode.UndefinedTable:
			return errors.Join(ErrNotMigrated, err)
		default:
			return err
		}
	} else if errors.Is(err, pgx.ErrNoRows) {
		return errors.Join(core.ErrNotFound, err)
	}
	return err
}
