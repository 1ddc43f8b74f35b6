package payment

import (
	"context"
	"errors"
)

// Normalized gateway statuses. Every adapter reduces its provider's state
// machine to one of these three.
type Status string

const (
	StatusAuthorized Status = "authorized"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

var (
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrGatewayTransient   = errors.New("gateway request failed")
	ErrUnknownTransaction = errors.New("unknown transaction")
	ErrPendingMismatch    = errors.New("pending payment mismatch")
	ErrFreePlanNoGateway  = errors.New("free plan does not use a gateway")
)

// CreateRequest describes the charge the gateway should set up.
type CreateRequest struct {
	Amount    float64
	Currency  string
	OrderRef  string
	ItemName  string
	ReturnURL string
	CancelURL string
}

// CreateResult is the gateway's handle on a newly created transaction.
type CreateResult struct {
	ExternalID  string
	RedirectURL string
}

// ConfirmParams carries the raw query parameters of a return callback.
type ConfirmParams map[string]string

// ConfirmResult is the gateway's final word on a transaction.
type ConfirmResult struct {
	Status     Status
	ExternalID string
	Raw        []byte
}

// Gateway abstracts one external payment provider. Create sets up the
// charge and yields a redirect URL, Confirm settles a return callback, and
// Lookup queries the provider's authoritative state for reconciliation.
type Gateway interface {
	Kind() string
	Create(ctx context.Context, req CreateRequest) (CreateResult, error)
	ExternalID(params ConfirmParams) string
	Confirm(ctx context.Context, params ConfirmParams) (ConfirmResult, error)
	Lookup(ctx context.Context, externalID string) (ConfirmResult, error)
}

// Registry maps gateway kind strings to adapters. A gateway whose
// credentials are absent from the environment is simply never registered,
// so availability checks reduce to a map lookup.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, gw := range gateways {
		r.gateways[gw.Kind()] = gw
	}
	return r
}

func (r *Registry) Get(kind string) (Gateway, bool) {
	gw, ok := r.gateways[kind]
	return gw, ok
}

// Available lists the kinds that can currently take payments.
func (r *Registry) Available() []string {
	kinds := make([]string, 0, len(r.gateways))
	for kind := range r.gateways {
		kinds = append(kinds, kind)
	}
	return kinds
}
