package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// RequireRole ensures the authenticated actor has one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAction runs the guard without a target ticket, for routes where the
// capability alone decides.
func RequireAction(action Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _ := ActorFromContext(c)
		decision := Can(actor, action, nil)
		if decision.Allowed {
			return c.Next()
		}
		if decision.Reason == ReasonNotAuthenticated {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return apperrors.NewForbidden(string(decision.Reason))
	}
}
