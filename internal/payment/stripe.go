package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
)

// StripeGateway is the redirect-based card gateway, implemented on Stripe
// Checkout. Create opens a hosted checkout session; the session id doubles
// as the external transaction id and comes back on the return URL.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) Kind() string {
	return model.PaymentMethodCardRedirect
}

func (g *StripeGateway) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	successURL := appendParam(req.ReturnURL, "token={CHECKOUT_SESSION_ID}")

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderRef),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					// CLP is a zero-decimal currency on Stripe.
					UnitAmount: stripe.Int64(int64(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ItemName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: %v", ErrGatewayTransient, err)
	}
	return CreateResult{ExternalID: sess.ID, RedirectURL: sess.URL}, nil
}

func (g *StripeGateway) ExternalID(params ConfirmParams) string {
	return params["token"]
}

func (g *StripeGateway) Confirm(ctx context.Context, params ConfirmParams) (ConfirmResult, error) {
	return g.Lookup(ctx, params["token"])
}

func (g *StripeGateway) Lookup(ctx context.Context, externalID string) (ConfirmResult, error) {
	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx

	sess, err := session.Get(externalID, getParams)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("%w: %v", ErrGatewayTransient, err)
	}

	raw, _ := json.Marshal(sess)
	result := ConfirmResult{ExternalID: sess.ID, Raw: raw}

	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		result.Status = StatusAuthorized
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		result.Status = StatusCancelled
	default:
		result.Status = StatusFailed
	}
	return result, nil
}

func appendParam(rawURL, param string) string {
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + param
	}
	return rawURL + "?" + param
}
