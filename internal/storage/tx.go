package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ewhitmore/hearth/internal/reconcile"
)

// WithTx runs fn against a transactional view of the store. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(reconcile.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	txStore := &Store{db: s.db, q: tx}
	if err := fn(txStore); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var (
	_ reconcile.Repository = (*Store)(nil)
	_ querier              = (*sql.DB)(nil)
	_ querier              = (*sql.Tx)(nil)
)
