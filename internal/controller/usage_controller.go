package controller

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/utils/jwt"
)

// GetUsage returns used/limit/remaining per resource for the current
// billing period.
func GetUsage(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	snapshot, err := ledger.Snapshot(claims.UserID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(snapshot)
}

// CheckEntitlement answers whether the user may perform an action right
// now. Advisory, for rendering UI state; the ledger still decides at the
// write.
func CheckEntitlement(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	action := c.Params("action")

	decision, err := entitlements.Check(claims.UserID, action)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(decision)
}
