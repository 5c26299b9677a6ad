package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "leads_lifetime_id_key"}
	assert.True(t, isUniqueViolation(dup))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert lead: %w", dup)))
	assert.Equal(t, "leads_lifetime_id_key", constraintName(fmt.Errorf("x: %w", dup)))

	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.Empty(t, constraintName(errors.New("otro")))
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	v := nullIfEmpty("CUS-2026-0000ABCD")
	if assert.NotNil(t, v) {
		assert.Equal(t, "CUS-2026-0000ABCD", fromNull(v))
	}
	assert.Empty(t, fromNull(nil))
}

func TestMigrations_Embebidas(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.NotEmpty(t, entries)

	body, err := migrationsFS.ReadFile("migrations/0001_init.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(body), "leads_lifetime_id_key")
	assert.Contains(t, string(body), "role_permissions_key")
}
