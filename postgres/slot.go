package postgres

import (
	"context"
	"fmt"

	"github.com/prior-it/clientbook/store"
)

// Slot stores the customer list as a single jsonb row in the clientbook_slots table.
type Slot struct {
	db   *DB
	name string
}

var _ store.Slot = &Slot{}

// NewSlot returns the slot with the specified name. The database must be migrated first.
func NewSlot(db *DB, name string) *Slot {
	return &Slot{db: db, name: name}
}

// Load implements store.Slot.Load
func (s *Slot) Load(ctx context.Context) ([]byte, error) {
	var value string
	err := s.db.QueryRow(
		ctx,
		"SELECT value::text FROM clientbook_slots WHERE name = $1",
		s.name,
	).Scan(&value)
	if err != nil {
		return nil, fmt.Errorf("cannot load slot %q: %w", s.name, convertPgError(err))
	}
	return []byte(value), nil
}

// Save implements store.Slot.Save
func (s *Slot) Save(ctx context.Context, data []byte) error {
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO clientbook_slots (name, value, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.name,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("cannot save slot %q: %w", s.name, convertPgError(err))
	}
	return nil
}

// Clear removes the slot, the next Load will return core.ErrNotFound.
func (s *Slot) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM clientbook_slots WHERE name = $1", s.name); err != nil {
		return fmt.Errorf("cannot clear slot %q: %w", s.name, convertPgError(err))
	}
	return nil
}
