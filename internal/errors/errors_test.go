package errors_test

import (
	"testing"

	apperrors "github.com/jrsteele09/go-idp-login/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "[pkg Func] step"))

	err := apperrors.Wrapf(apperrors.ErrConflict, "[pkg Func] state %s", "abc")
	require.EqualError(t, err, "[pkg Func] state abc: already exists")
	require.True(t, apperrors.Is(err, apperrors.ErrConflict))
	require.False(t, apperrors.Is(err, apperrors.ErrNotFound))
}
