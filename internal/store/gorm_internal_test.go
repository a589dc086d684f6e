package store

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestWrapMarksUniqueViolations(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"translated", gorm.ErrDuplicatedKey},
		{"driver", &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrap(tt.err, "create user")

			assert.True(t, errors.Is(err, ErrDuplicate))
			assert.False(t, errors.Is(err, ErrPersistence))
		})
	}

	other := wrap(&pgconn.PgError{Code: "23503"}, "create payment")
	assert.True(t, errors.Is(other, ErrPersistence))
	assert.False(t, errors.Is(other, ErrDuplicate))
}
