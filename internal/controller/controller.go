package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/engine"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/payment"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/plan"
)

var (
	catalog      *plan.Catalog
	store        *engine.SubscriptionStore
	ledger       *engine.QuotaLedger
	entitlements *engine.Entitlement
	payments     *payment.Orchestrator
)

// InitEngine wires the controllers to the engine services. Called once
// from main before routes are registered.
func InitEngine(c *plan.Catalog, s *engine.SubscriptionStore, l *engine.QuotaLedger, e *engine.Entitlement, p *payment.Orchestrator) {
	catalog = c
	store = s
	ledger = l
	entitlements = e
	payments = p
}

// engineError maps tagged engine and payment errors to HTTP responses.
// Everything crossing the boundary carries a stable reason code.
func engineError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, engine.ErrUnknownPlan):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Subscription plan not found", "reason": "invalid_plan",
		})
	case errors.Is(err, engine.ErrUnknownResource), errors.Is(err, engine.ErrUnknownAction):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown action", "reason": "unknown_action",
		})
	case errors.Is(err, engine.ErrNoActiveSubscription):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "No active subscription found", "reason": "no_active_subscription",
		})
	case errors.Is(err, engine.ErrQuotaExhausted):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "You have reached your plan limit", "reason": "quota_exhausted",
		})
	case errors.Is(err, payment.ErrFreePlanNoGateway):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Free plans do not go through a payment gateway", "reason": "free_plan_no_gateway",
		})
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "This payment method is not available", "reason": "gateway_unavailable",
		})
	case errors.Is(err, payment.ErrGatewayTransient):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Payment provider is unavailable, please retry", "reason": "gateway_error",
		})
	case errors.Is(err, payment.ErrUnknownTransaction):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Payment transaction not found", "reason": "unknown_transaction",
		})
	case errors.Is(err, payment.ErrPendingMismatch):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Payment does not match your pending purchase", "reason": "pending_mismatch",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
