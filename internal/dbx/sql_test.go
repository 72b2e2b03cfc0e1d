package dbx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("23505")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1", Placeholders(1, 1))
	assert.Equal(t, "$2, $3, $4", Placeholders(2, 3))
	assert.Equal(t, "", Placeholders(1, 0))
}

func TestInt64Args(t *testing.T) {
	assert.Equal(t, []any{int64(1), int64(5)}, Int64Args([]int64{1, 5}))
	assert.Empty(t, Int64Args(nil))
}
