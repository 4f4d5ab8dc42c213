package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrTxAborted means a savepoint could not be rolled back and the
// surrounding transaction is no longer usable.
var ErrTxAborted = errors.New("transaction aborted")

// UpsertOutcome classifies what an idempotent upsert did to its row.
type UpsertOutcome int

const (
	Unchanged UpsertOutcome = iota
	Inserted
	Updated
)

func (o UpsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	}
	return "unchanged"
}

// OutcomeOf derives the outcome from whether the row existed before the
// statement and how many rows the guarded upsert touched.
func OutcomeOf(existed bool, affected int64) UpsertOutcome {
	switch {
	case !existed:
		return Inserted
	case affected > 0:
		return Updated
	}
	return Unchanged
}

type TxManager struct {
	DB *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{DB: db}
}

// WithinTx runs fn in a transaction, committing when fn returns nil.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := m.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Savepoint runs fn inside a named savepoint of tx. When fn fails only its
// own writes are undone and fn's error is returned; the transaction stays
// usable. If the rollback itself fails the returned error wraps ErrTxAborted.
func Savepoint(ctx context.Context, tx *sqlx.Tx, name string, fn func() error) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("%w: savepoint %s: %w", ErrTxAborted, name, err)
	}

	if err := fn(); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("%w: rollback to %s: %w (after %v)", ErrTxAborted, name, rbErr, err)
		}
		if _, relErr := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); relErr != nil {
			return fmt.Errorf("%w: release %s: %w", ErrTxAborted, name, relErr)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("%w: release %s: %w", ErrTxAborted, name, err)
	}
	return nil
}
