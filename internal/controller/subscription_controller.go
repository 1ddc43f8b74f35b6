package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/payment"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/database"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/email"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/utils/jwt"
)

type PurchaseInput struct {
	PlanKey string `json:"plan_key" validate:"required"`
	Gateway string `json:"gateway"`
}

func ListPlans(c *fiber.Ctx) error {
	type planView struct {
		Key          string   `json:"key"`
		DisplayName  string   `json:"display_name"`
		Price        float64  `json:"price"`
		Currency     string   `json:"currency"`
		DurationDays int      `json:"duration_days"`
		Features     []string `json:"features"`
	}

	plans := catalog.List()
	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, planView{
			Key:          p.Key,
			DisplayName:  p.DisplayName,
			Price:        p.Price,
			Currency:     p.Currency,
			DurationDays: p.DurationDays,
			Features:     p.Features,
		})
	}
	return c.JSON(views)
}

func GetMySubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	sub, err := store.ActiveFor(claims.UserID)
	if err != nil {
		return engineError(c, err)
	}
	if sub == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found", "reason": "no_active_subscription",
		})
	}

	return c.JSON(sub)
}

func GetSubscriptionHistory(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	subs, err := store.HistoryFor(claims.UserID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(subs)
}

// Purchase starts a plan purchase. Free plans activate immediately; paid
// plans come back with a gateway redirect URL.
func Purchase(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(PurchaseInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	result, err := payments.BeginPurchase(claims.UserID, input.PlanKey, input.Gateway)
	if err != nil {
		return engineError(c, err)
	}

	if result.SubscriptionID != nil {
		notifySubscriptionStarted(claims.UserID, *result.SubscriptionID)
	}
	return c.JSON(result)
}

func CancelSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	sub, err := store.Cancel(claims.UserID)
	if err != nil {
		return engineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":      "Subscription cancelled successfully",
		"subscription": sub,
	})
}

// HandlePaymentReturn is the gateway return callback for both gateway
// kinds. Safe to replay: duplicate callbacks resolve to the already-active
// subscription.
func HandlePaymentReturn(c *fiber.Ctx) error {
	gatewayKind := c.Query("gateway", model.PaymentMethodCardRedirect)

	params := payment.ConfirmParams{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		params[string(key)] = string(value)
	})

	outcome, err := payments.HandleReturn(gatewayKind, params)
	if err != nil {
		return engineError(c, err)
	}

	switch outcome.Outcome {
	case payment.OutcomeActivated:
		if outcome.SubscriptionID != nil {
			notifySubscriptionStarted(outcome.UserID, *outcome.SubscriptionID)
		}
	case payment.OutcomeFailed:
		notifyPaymentFailed(outcome.UserID, outcome.PlanKey)
	}

	return c.JSON(outcome)
}

// HandlePaymentCancelled closes out a purchase the user abandoned at the
// gateway. Like payment-return it is a bare redirect without auth context;
// the ref token minted at purchase identifies the pending transaction.
func HandlePaymentCancelled(c *fiber.Ctx) error {
	outcome, err := payments.CancelPendingByToken(c.Query("ref"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(outcome)
}

func notifySubscriptionStarted(userID, subscriptionID uint) {
	if email.GlobalEmailService == nil {
		return
	}

	var user model.User
	if err := database.GetDB().First(&user, userID).Error; err != nil {
		return
	}
	var sub model.Subscription
	if err := database.GetDB().First(&sub, subscriptionID).Error; err != nil {
		return
	}

	p, ok := catalog.Get(sub.PlanKey)
	if !ok {
		return
	}

	err := email.GlobalEmailService.SendSubscriptionStartedEmail(
		user.Email,
		user.GetFullName(),
		p.DisplayName,
		p.DurationDays,
		p.Price,
		p.Currency,
		sub.EndAt,
	)
	if err != nil {
		log.Printf("Could not send subscription email: %v", err)
	}
}

func notifyPaymentFailed(userID uint, planKey string) {
	if email.GlobalEmailService == nil || userID == 0 {
		return
	}

	var user model.User
	if err := database.GetDB().First(&user, userID).Error; err != nil {
		return
	}

	planName := planKey
	if p, ok := catalog.Get(planKey); ok {
		planName = p.DisplayName
	}

	if err := email.GlobalEmailService.SendPaymentFailedEmail(user.Email, user.GetFullName(), planName); err != nil {
		log.Printf("Could not send payment failed email: %v", err)
	}
}
