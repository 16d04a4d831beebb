package billing

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// Event is the closed set of billing notifications the reconciler understands.
// Each kind carries exactly the payload fields its transition needs, so a new
// kind is a compile-time-checked addition instead of a string branch.
type Event interface {
	Kind() string
}

// CheckoutCompleted signals a finished checkout for a user and tier.
type CheckoutCompleted struct {
	SessionID        string
	UserID           uint
	Tier             string
	CustomerID       string
	SubscriptionID   string
	PaymentReference string
	AmountCents      int64
	Currency         string
}

// SubscriptionUpdated carries the provider's current view of a subscription.
type SubscriptionUpdated struct {
	SubscriptionID string
	CustomerID     string
	ProviderStatus string
	CancelAt       *time.Time
}

// SubscriptionDeleted signals a subscription that no longer exists upstream.
type SubscriptionDeleted struct {
	SubscriptionID string
	CustomerID     string
}

// InvoicePaymentSucceeded signals a settled recurring invoice.
type InvoicePaymentSucceeded struct {
	InvoiceID        string
	CustomerID       string
	PaymentReference string
	AmountCents      int64
	Currency         string
}

// InvoicePaymentFailed signals a failed recurring charge.
type InvoicePaymentFailed struct {
	InvoiceID  string
	CustomerID string
}

// Unhandled wraps every event type the reconciler has no transition for.
// The provider sends many kinds irrelevant to this application; they are
// acknowledged and dropped.
type Unhandled struct {
	Type string
}

func (CheckoutCompleted) Kind() string       { return "checkout_completed" }
func (SubscriptionUpdated) Kind() string     { return "subscription_updated" }
func (SubscriptionDeleted) Kind() string     { return "subscription_deleted" }
func (InvoicePaymentSucceeded) Kind() string { return "invoice_payment_succeeded" }
func (InvoicePaymentFailed) Kind() string    { return "invoice_payment_failed" }
func (Unhandled) Kind() string               { return "unhandled" }

// providerRef accepts either a bare id string or an expanded object with an
// "id" field, which is how the provider serializes linked resources.
type providerRef string

func (r *providerRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = providerRef(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*r = providerRef(obj.ID)
	return nil
}

type checkoutSessionPayload struct {
	ID            string            `json:"id"`
	Customer      providerRef       `json:"customer"`
	Subscription  providerRef       `json:"subscription"`
	PaymentIntent providerRef       `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

type subscriptionPayload struct {
	ID       string      `json:"id"`
	Customer providerRef `json:"customer"`
	Status   string      `json:"status"`
	CancelAt int64       `json:"cancel_at"`
}

type invoicePayload struct {
	ID            string      `json:"id"`
	Customer      providerRef `json:"customer"`
	PaymentIntent providerRef `json:"payment_intent"`
	AmountPaid    int64       `json:"amount_paid"`
	Currency      string      `json:"currency"`
}

// ParseEvent maps a verified provider event onto the closed Event set.
// Field-level validation is left to the reconciler so that a recognized kind
// with a bad payload is still acknowledged instead of retried forever.
func ParseEvent(evt stripe.Event) (Event, error) {
	switch string(evt.Type) {
	case "checkout.session.completed":
		var p checkoutSessionPayload
		if err := json.Unmarshal(evt.Data.Raw, &p); err != nil {
			return nil, err
		}
		userID, _ := strconv.ParseUint(strings.TrimSpace(p.Metadata["user_id"]), 10, 64)
		return CheckoutCompleted{
			SessionID:        p.ID,
			UserID:           uint(userID),
			Tier:             strings.TrimSpace(p.Metadata["tier"]),
			CustomerID:       string(p.Customer),
			SubscriptionID:   string(p.Subscription),
			PaymentReference: string(p.PaymentIntent),
			AmountCents:      p.AmountTotal,
			Currency:         p.Currency,
		}, nil
	case "customer.subscription.updated":
		var p subscriptionPayload
		if err := json.Unmarshal(evt.Data.Raw, &p); err != nil {
			return nil, err
		}
		var cancelAt *time.Time
		if p.CancelAt > 0 {
			t := time.Unix(p.CancelAt, 0).UTC()
			cancelAt = &t
		}
		return SubscriptionUpdated{
			SubscriptionID: p.ID,
			CustomerID:     string(p.Customer),
			ProviderStatus: p.Status,
			CancelAt:       cancelAt,
		}, nil
	case "customer.subscription.deleted":
		var p subscriptionPayload
		if err := json.Unmarshal(evt.Data.Raw, &p); err != nil {
			return nil, err
		}
		return SubscriptionDeleted{
			SubscriptionID: p.ID,
			CustomerID:     string(p.Customer),
		}, nil
	case "invoice.payment_succeeded":
		var p invoicePayload
		if err := json.Unmarshal(evt.Data.Raw, &p); err != nil {
			return nil, err
		}
		return InvoicePaymentSucceeded{
			InvoiceID:        p.ID,
			CustomerID:       string(p.Customer),
			PaymentReference: string(p.PaymentIntent),
			AmountCents:      p.AmountPaid,
			Currency:         p.Currency,
		}, nil
	case "invoice.payment_failed":
		var p invoicePayload
		if err := json.Unmarshal(evt.Data.Raw, &p); err != nil {
			return nil, err
		}
		return InvoicePaymentFailed{
			InvoiceID:  p.ID,
			CustomerID: string(p.Customer),
		}, nil
	default:
		return Unhandled{Type: string(evt.Type)}, nil
	}
}
