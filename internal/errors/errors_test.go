package errors_test

import (
	"testing"

	"github.com/jrsteele09/taskflow-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	err := errors.Wrapf(errors.ErrCorruptState, "decode document version %d", 7)
	require.ErrorIs(t, err, errors.ErrCorruptState)
	require.Equal(t, "decode document version 7: corrupt local state", err.Error())

	require.NoError(t, errors.Wrapf(nil, "nothing to wrap"))
}

func TestJoin(t *testing.T) {
	err := errors.Join(errors.ErrNotRecoverable, errors.ErrRefreshRejected)
	require.True(t, errors.Is(err, errors.ErrNotRecoverable))
	require.True(t, errors.Is(err, errors.ErrRefreshRejected))
	require.Nil(t, errors.Join(nil, nil))
}
