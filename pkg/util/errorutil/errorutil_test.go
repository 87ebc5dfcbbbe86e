package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), CodeInternal},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), CodeTimeout},
		{"wrapped domain", fmt.Errorf("ctx: %w", NewConflict("stale", nil)), CodeConflict},
		{"upstream", NewUpstream("suggestion service", errors.New("503")), CodeUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestToDomainErrorKeepsStatus(t *testing.T) {
	de := ToDomainError(NewInvalidOrExpiredToken())
	require.NotNil(t, de)
	assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)

	de = ToDomainError(NewInvalidTransition("no", nil))
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("assign: %w", NewForbidden("nope"))
	assert.True(t, errors.Is(err, NewForbidden("other message")))
	assert.False(t, errors.Is(err, NewConflict("x", nil)))
}

func TestInternalErrorHidesCause(t *testing.T) {
	de := ToDomainError(errors.New("pq: relation tickets does not exist"))
	assert.Equal(t, "internal server error", de.Message)
}
