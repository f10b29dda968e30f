package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/autotrack"
	"github.com/fwojciec/autotrack/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryService_FindHistory(t *testing.T) {
	t.Parallel()

	t.Run("returns not found for unknown vehicle", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		_, err := sqlite.NewHistoryService(db).FindHistory(context.Background(), 7)
		require.Error(t, err)
		assert.Equal(t, autotrack.ENOTFOUND, autotrack.ErrorCode(err))
	})
}
