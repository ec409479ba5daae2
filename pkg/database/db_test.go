package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ContactsGo/pkg/logger"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_contacts_owner_email"}
	constraint, ok := IsUniqueViolation(fmt.Errorf("insert contact: %w", pgErr))
	assert.True(t, ok)
	assert.Equal(t, "uq_contacts_owner_email", constraint)

	_, ok = IsUniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok, "foreign key violation is not a unique violation")

	_, ok = IsUniqueViolation(errors.New("ERROR: duplicate key value (SQLSTATE 23505)"))
	assert.True(t, ok)

	_, ok = IsUniqueViolation(nil)
	assert.False(t, ok)
}

func TestPing(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT 1`).WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	require.NoError(t, Ping(context.Background(), mock))
	require.NoError(t, mock.ExpectationsWereMet())
}

func checksum(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}

func expectMigrationTable(mock pgxmock.PgxPoolIface, applied ...[2]string) {
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	rows := pgxmock.NewRows([]string{"version", "checksum"})
	for _, a := range applied {
		rows.AddRow(a[0], a[1])
	}
	mock.ExpectQuery(`SELECT version, COALESCE\(checksum, ''\) FROM schema_migrations`).WillReturnRows(rows)
}

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	const users, contacts, audit = "CREATE TABLE users (id BIGSERIAL)", "CREATE TABLE contacts (id BIGSERIAL)", "CREATE TABLE audit (id BIGSERIAL)"
	files := fstest.MapFS{
		"003_audit.up.sql":    {Data: []byte(audit)},
		"002_contacts.up.sql": {Data: []byte(contacts)},
		"001_users.up.sql":    {Data: []byte(users)},
		"001_users.down.sql":  {Data: []byte("DROP TABLE users")},
		"README.md":           {Data: []byte("docs")},
	}

	expectMigrationTable(mock, [2]string{"001_users.up.sql", checksum(users)})

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs(migrationLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("002_contacts.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`CREATE TABLE contacts`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs("002_contacts.up.sql", checksum(contacts)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	// A concurrent instance got to 003 first.
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs(migrationLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("003_audit.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	require.NoError(t, RunMigrations(context.Background(), mock, files, logger.Nop()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_RejectsEditedMigration(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	files := fstest.MapFS{
		"001_users.up.sql": {Data: []byte("CREATE TABLE users (id BIGSERIAL, email TEXT)")},
	}
	expectMigrationTable(mock, [2]string{"001_users.up.sql", checksum("CREATE TABLE users (id BIGSERIAL)")})

	err = RunMigrations(context.Background(), mock, files, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_users.up.sql was modified")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_LegacyRowWithoutChecksumIsTrusted(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	files := fstest.MapFS{"001_users.up.sql": {Data: []byte("CREATE TABLE users (id BIGSERIAL)")}}
	expectMigrationTable(mock, [2]string{"001_users.up.sql", ""})

	require.NoError(t, RunMigrations(context.Background(), mock, files, logger.Nop()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SQLErrorIsNotRetried(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	files := fstest.MapFS{
		"001_users.up.sql": {Data: []byte("CREAT TABLE users")},
	}

	expectMigrationTable(mock)
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs(migrationLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("001_users.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`CREAT TABLE users`).WillReturnError(errors.New(`syntax error at or near "CREAT"`))
	mock.ExpectRollback()

	err = RunMigrations(context.Background(), mock, files, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 001_users.up.sql")
	require.NoError(t, mock.ExpectationsWereMet())
}
