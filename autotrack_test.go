package autotrack_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/autotrack"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := autotrack.Errorf(autotrack.ENOTFOUND, "vehicle %q not found", "123")

	assert.Equal(t, autotrack.ENOTFOUND, autotrack.ErrorCode(err))
	assert.Equal(t, "vehicle \"123\" not found", autotrack.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, autotrack.ErrorCode(nil))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, autotrack.ErrorMessage(nil))
}

func TestErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("create vehicle: %w", autotrack.Errorf(autotrack.ECONFLICT, "duplicate"))

	assert.Equal(t, autotrack.ECONFLICT, autotrack.ErrorCode(err))
	assert.Equal(t, "duplicate", autotrack.ErrorMessage(err))
}

func TestErrorCode_NonApplicationError(t *testing.T) {
	t.Parallel()

	err := errors.New("disk on fire")

	assert.Equal(t, autotrack.EINTERNAL, autotrack.ErrorCode(err))
	assert.Equal(t, "Internal error.", autotrack.ErrorMessage(err))
}

func TestFetchError_Unwrap(t *testing.T) {
	t.Parallel()

	err := error(&autotrack.FetchError{Page: 3, Err: context.DeadlineExceeded})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "fetch page 3: context deadline exceeded", err.Error())

	var fe *autotrack.FetchError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, 3, fe.Page)
}
