package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const sentinelQuery = `SELECT to_regclass\('public.files'\) IS NOT NULL`

func TestEnsureMigrated(t *testing.T) {
	ctx := context.Background()

	t.Run("skips when table exists", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(sentinelQuery).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		core, logs := observer.New(zap.InfoLevel)
		require.NoError(t, EnsureMigrated(ctx, db, zap.New(core), "db"))
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, 1, logs.FilterField(zap.String("event", "db_migration_skip")).Len())
	})

	t.Run("runs every step", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(sentinelQuery).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS files").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_files_owner_id").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_files_uploaded_at").WillReturnResult(sqlmock.NewResult(0, 0))

		core, logs := observer.New(zap.InfoLevel)
		require.NoError(t, EnsureMigrated(ctx, db, zap.New(core), "db"))
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, len(steps), logs.FilterField(zap.String("event", "db_migration_step")).Len())
	})

	t.Run("step failure stops migration", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(sentinelQuery).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS files").WillReturnError(errors.New("permission denied"))

		err = EnsureMigrated(ctx, db, zap.NewNop(), "db")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create_table_files")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sentinel query failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(sentinelQuery).WillReturnError(errors.New("connection refused"))

		err = EnsureMigrated(ctx, db, zap.NewNop(), "db")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sentinel")
	})
}
