package service

import (
	"net/http"

	"github.com/spec-kit/helpdesk/internal/auth"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// decisionError turns a guard denial into the error the caller sees.
func decisionError(decision auth.Decision) error {
	if decision.Allowed {
		return nil
	}
	if decision.Reason == auth.ReasonNotAuthenticated {
		return apperrors.NewUnauthenticated("authentication required")
	}
	return forbidden(decision.Reason)
}

func forbidden(reason auth.DenyReason) error {
	return apperrors.NewDomainError(apperrors.CodeForbidden, "action not permitted", http.StatusForbidden,
		map[string]any{"reason": string(reason)})
}
