package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestStoreError(t *testing.T) {
	cases := map[error]string{
		repository.ErrNotFound:         apperrors.CodeNotFound,
		repository.ErrVersionConflict:  apperrors.CodeConflict,
		repository.ErrDuplicate:        apperrors.CodeConflict,
		repository.ErrReferenced:       apperrors.CodeValidationFailed,
		context.DeadlineExceeded:       apperrors.CodeTimeout,
		errors.New("connection reset"): apperrors.CodeUpstream,
	}
	for in, want := range cases {
		assert.Equal(t, want, apperrors.KindOf(storeError(in, "ticket")), in.Error())
	}
	assert.NoError(t, storeError(nil, "ticket"))

	forbidden := apperrors.NewForbidden("no")
	assert.Same(t, forbidden, storeError(forbidden, "ticket"))
}

func TestReadWithRetry(t *testing.T) {
	t.Run("transient errors are retried", func(t *testing.T) {
		calls := 0
		got, err := readWithRetry(context.Background(), 3, func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("connection reset")
			}
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("not found is final", func(t *testing.T) {
		calls := 0
		_, err := readWithRetry(context.Background(), 3, func(context.Context) (int, error) {
			calls++
			return 0, repository.ErrNotFound
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("bounded", func(t *testing.T) {
		calls := 0
		_, err := readWithRetry(context.Background(), 2, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("down")
		})
		assert.Error(t, err)
		assert.Equal(t, 2, calls)
	})
}
