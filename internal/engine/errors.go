package engine

import "errors"

// Tagged error kinds. Controllers match these with errors.Is and map them
// to stable reason codes; nothing crosses the HTTP boundary unmapped.
var (
	ErrUnknownPlan          = errors.New("unknown plan")
	ErrUnknownResource      = errors.New("unknown resource")
	ErrUnknownAction        = errors.New("unknown action")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrQuotaExhausted       = errors.New("quota exhausted")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Reason codes returned by entitlement checks.
const (
	ReasonOK                   = "ok"
	ReasonAdmin                = "admin"
	ReasonNoActiveSubscription = "no_active_subscription"
	ReasonInvalidPlan          = "invalid_plan"
	ReasonQuotaExhausted       = "quota_exhausted"
	ReasonUnknownAction        = "unknown_action"
)
