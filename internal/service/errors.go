package service

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// storeError translates repository failures into the error kinds callers see.
func storeError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict(resource+" was modified concurrently", nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	case errors.Is(err, repository.ErrReferenced):
		return apperrors.NewValidationError(resource+" references a missing or protected record", nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.NewTimeout(err)
	}
	return apperrors.NewUpstream("storage", err)
}

// transient reports whether a read may be attempted again.
func transient(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return false
	}
	var domainErr *apperrors.DomainError
	return !errors.As(err, &domainErr)
}

// readWithRetry retries an idempotent read a bounded number of times with
// exponential backoff. Writes never go through here.
func readWithRetry[T any](ctx context.Context, attempts int, read func(context.Context) (T, error)) (T, error) {
	if attempts <= 1 {
		return read(ctx)
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(20*time.Millisecond))

	var out T
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := read(ctx)
		if err != nil {
			if transient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = v
		return nil
	})
	return out, err
}
