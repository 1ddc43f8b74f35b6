package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
)

const (
	paypalSandboxURL = "https://api.sandbox.paypal.com"
	paypalLiveURL    = "https://api.paypal.com"
)

// PayPalGateway is the approval-flow wallet gateway. PayPal charges in USD,
// so amounts are converted from the plan's native CLP with the configured
// rate; callers keep storing the CLP amount and the raw payload preserves
// what was actually charged.
type PayPalGateway struct {
	clientID   string
	secret     string
	baseURL    string
	clpUSDRate float64
	client     *http.Client
}

// NewPayPalGateway builds the adapter. environment selects the sandbox or
// live endpoint; clpUSDRate is how many CLP one USD buys.
func NewPayPalGateway(clientID, secret, environment string, clpUSDRate float64) *PayPalGateway {
	baseURL := paypalSandboxURL
	if environment == "production" {
		baseURL = paypalLiveURL
	}
	return &PayPalGateway{
		clientID:   clientID,
		secret:     secret,
		baseURL:    baseURL,
		clpUSDRate: clpUSDRate,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *PayPalGateway) Kind() string {
	return model.PaymentMethodWalletApproval
}

// usdAmount converts CLP to USD, rounding half-up to cents.
func (g *PayPalGateway) usdAmount(clp float64) string {
	usd := math.Round(clp/g.clpUSDRate*100) / 100
	return fmt.Sprintf("%.2f", usd)
}

func (g *PayPalGateway) accessToken(ctx context.Context) (string, error) {
	body := strings.NewReader(url.Values{"grant_type": {"client_credentials"}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/oauth2/token", body)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.clientID, g.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned %d", ErrGatewayTransient, resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayTransient, err)
	}
	return token.AccessToken, nil
}

func (g *PayPalGateway) call(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return 0, nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrGatewayTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrGatewayTransient, err)
	}
	if resp.StatusCode >= 500 {
		return resp.StatusCode, raw, fmt.Errorf("%w: paypal returned %d", ErrGatewayTransient, resp.StatusCode)
	}
	return resp.StatusCode, raw, nil
}

func (g *PayPalGateway) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	payload := map[string]interface{}{
		"intent": "sale",
		"payer":  map[string]string{"payment_method": "paypal"},
		"transactions": []map[string]interface{}{
			{
				"amount": map[string]string{
					"total":    g.usdAmount(req.Amount),
					"currency": "USD",
				},
				"description":    req.ItemName,
				"invoice_number": req.OrderRef,
			},
		},
		"redirect_urls": map[string]string{
			"return_url": req.ReturnURL,
			"cancel_url": req.CancelURL,
		},
	}

	status, raw, err := g.call(ctx, http.MethodPost, "/v1/payments/payment", payload)
	if err != nil {
		return CreateResult{}, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return CreateResult{}, fmt.Errorf("%w: create returned %d", ErrGatewayTransient, status)
	}

	var created struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return CreateResult{}, fmt.Errorf("%w: %v", ErrGatewayTransient, err)
	}

	result := CreateResult{ExternalID: created.ID}
	for _, link := range created.Links {
		if link.Rel == "approval_url" {
			result.RedirectURL = link.Href
		}
	}
	if result.RedirectURL == "" {
		return CreateResult{}, fmt.Errorf("%w: no approval url in response", ErrGatewayTransient)
	}
	return result, nil
}

func (g *PayPalGateway) ExternalID(params ConfirmParams) string {
	return params["paymentId"]
}

// Confirm executes an approved payment. Success is state == approved; a
// callback without a PayerID means the user backed out of the approval.
func (g *PayPalGateway) Confirm(ctx context.Context, params ConfirmParams) (ConfirmResult, error) {
	paymentID := params["paymentId"]
	payerID := params["PayerID"]
	if payerID == "" {
		return ConfirmResult{Status: StatusCancelled, ExternalID: paymentID}, nil
	}

	path := fmt.Sprintf("/v1/payments/payment/%s/execute", paymentID)
	status, raw, err := g.call(ctx, http.MethodPost, path, map[string]string{"payer_id": payerID})
	if err != nil {
		return ConfirmResult{}, err
	}
	return g.resultFromState(paymentID, status, raw)
}

// Lookup queries the payment without executing it, for reconciliation.
func (g *PayPalGateway) Lookup(ctx context.Context, externalID string) (ConfirmResult, error) {
	status, raw, err := g.call(ctx, http.MethodGet, "/v1/payments/payment/"+externalID, nil)
	if err != nil {
		return ConfirmResult{}, err
	}
	return g.resultFromState(externalID, status, raw)
}

func (g *PayPalGateway) resultFromState(externalID string, status int, raw []byte) (ConfirmResult, error) {
	if status == http.StatusNotFound {
		return ConfirmResult{Status: StatusFailed, ExternalID: externalID, Raw: raw}, nil
	}
	var payment struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(raw, &payment); err != nil {
		return ConfirmResult{}, fmt.Errorf("%w: %v", ErrGatewayTransient, err)
	}

	result := ConfirmResult{ExternalID: externalID, Raw: raw}
	switch payment.State {
	case "approved":
		result.Status = StatusAuthorized
	case "cancelled", "expired":
		result.Status = StatusCancelled
	default:
		result.Status = StatusFailed
	}
	return result, nil
}
