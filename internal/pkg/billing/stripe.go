package billing

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/aicser/aicser-studio/internal/pkg/env"
)

// CheckoutSessionInput describes one hosted checkout page to create.
type CheckoutSessionInput struct {
	CustomerID  string
	UserID      uint
	Tier        string
	ProductName string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// Provider is the billing provider surface used by the service. Kept small
// so tests can substitute a fake without touching the network.
type Provider interface {
	VerifyCustomer(ctx context.Context, customerID string) (bool, error)
	CreateCustomer(ctx context.Context, email, name string, userID uint) (string, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// StripeProvider implements Provider against the Stripe API. The client is
// constructed once and passed around explicitly rather than configured via
// the SDK's package-level key.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider creates a provider from explicit credentials.
func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	return &StripeProvider{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

// NewStripeProviderFromEnv creates a provider from STRIPE_SECRET_KEY and
// STRIPE_WEBHOOK_SECRET.
func NewStripeProviderFromEnv() *StripeProvider {
	return NewStripeProvider(
		strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
	)
}

// VerifyCustomer reports whether a stored customer id still resolves
// upstream. A missing or deleted customer is not an error.
func (p *StripeProvider) VerifyCustomer(ctx context.Context, customerID string) (bool, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cust, err := p.api.Customers.Get(customerID, params)
	if err != nil {
		var sErr *stripe.Error
		if errors.As(err, &sErr) && sErr.Code == stripe.ErrorCodeResourceMissing {
			return false, nil
		}
		return false, err
	}
	return cust != nil && !cust.Deleted, nil
}

// CreateCustomer mints a new billing customer tagged with the local user id.
func (p *StripeProvider) CreateCustomer(ctx context.Context, email, name string, userID uint) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatUint(uint64(userID), 10))
	cust, err := p.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

// CreateCheckoutSession creates a hosted checkout page for a monthly
// recurring charge. The session metadata carries user id and tier so the
// resulting webhook event can be attributed.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(in.CustomerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(in.Currency),
					UnitAmount: stripe.Int64(in.AmountCents),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
					},
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(in.ProductName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatUint(uint64(in.UserID), 10))
	params.AddMetadata("tier", in.Tier)
	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// CreatePortalSession creates a self-service billing portal page.
func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// ConstructEvent verifies the webhook signature and parses the envelope.
// API version mismatch is tolerated because payloads are decoded into local
// structs rather than the SDK's pinned types.
func (p *StripeProvider) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
