package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/database/dbtest"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsRepeatable(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, database.Migrate(context.Background(), db))
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db := dbtest.New(t)
	txm := database.NewTxManager(db)
	boom := errors.New("boom")

	err := txm.WithinTx(context.Background(), func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`INSERT INTO merchants (id, name) VALUES ('m-1', 'one')`)
		require.NoError(t, err)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, dbtest.Count(t, db, "merchants", ""))
}

func TestSavepointKeepsSiblingWrites(t *testing.T) {
	db := dbtest.New(t)
	txm := database.NewTxManager(db)
	ctx := context.Background()

	var failed error
	err := txm.WithinTx(ctx, func(tx *sqlx.Tx) error {
		for i, id := range []string{"m-1", "m-1", "m-2"} {
			err := database.Savepoint(ctx, tx, "rec", func() error {
				_, err := tx.Exec(`INSERT INTO merchants (id, name) VALUES (?, 'x')`, id)
				return err
			})
			if err != nil {
				require.Equal(t, 1, i)
				require.NotErrorIs(t, err, database.ErrTxAborted)
				failed = err
			}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Error(t, failed)
	assert.Equal(t, 2, dbtest.Count(t, db, "merchants", ""))
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, database.Inserted, database.OutcomeOf(false, 1))
	assert.Equal(t, database.Updated, database.OutcomeOf(true, 1))
	assert.Equal(t, database.Unchanged, database.OutcomeOf(true, 0))
	assert.Equal(t, "unchanged", database.Unchanged.String())
}
