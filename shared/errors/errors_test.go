package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistence(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Persistence("op", nil))
	})

	t.Run("driver errors are wrapped", func(t *testing.T) {
		err := Persistence("GetBoard", sql.ErrConnDone)
		var pe *PersistenceError
		assert.True(t, errors.As(err, &pe))
		assert.Equal(t, "GetBoard", pe.Op)
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		err := Persistence("GetBoard", fmt.Errorf("lookup: %w", ErrBoardNotFound))
		assert.ErrorIs(t, err, ErrBoardNotFound)
		var pe *PersistenceError
		assert.False(t, errors.As(err, &pe))
	})

	t.Run("no double wrapping", func(t *testing.T) {
		inner := Persistence("inner", sql.ErrTxDone)
		outer := Persistence("outer", inner)
		assert.Same(t, inner, outer)
	})
}
