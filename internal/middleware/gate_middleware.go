package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/engine"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/utils/jwt"
)

// RequireEntitlement fast-fails requests the user is not entitled to make.
// The check is advisory: the controller still consumes quota through the
// ledger, which is where races are decided.
func RequireEntitlement(entitlements *engine.Entitlement, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		decision, err := entitlements.Check(claims.UserID, action)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not check entitlement",
			})
		}

		if !decision.Allowed {
			status := fiber.StatusForbidden
			if decision.Reason == engine.ReasonQuotaExhausted {
				status = fiber.StatusTooManyRequests
			}
			return c.Status(status).JSON(fiber.Map{
				"error":  "This action is not available on your current plan",
				"reason": decision.Reason,
			})
		}

		c.Locals("entitlement", decision)
		return c.Next()
	}
}
