package billing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82"
)

func stripeEvent(t *testing.T, eventType, raw string) stripe.Event {
	t.Helper()
	return stripe.Event{
		ID:   "evt_test",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func TestParseEventCheckoutCompleted(t *testing.T) {
	evt := stripeEvent(t, "checkout.session.completed", `{
		"id": "cs_1",
		"customer": "cus_123",
		"subscription": "sub_456",
		"payment_intent": "pi_789",
		"amount_total": 1999,
		"currency": "usd",
		"metadata": {"user_id": "7", "tier": "pro"}
	}`)

	parsed, err := ParseEvent(evt)
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	cc, ok := parsed.(CheckoutCompleted)
	if !ok {
		t.Fatalf("ParseEvent returned %T, want CheckoutCompleted", parsed)
	}
	if cc.UserID != 7 || cc.Tier != "pro" || cc.SubscriptionID != "sub_456" {
		t.Fatalf("unexpected event fields: %+v", cc)
	}
	if cc.PaymentReference != "pi_789" || cc.AmountCents != 1999 || cc.Currency != "usd" {
		t.Fatalf("unexpected payment fields: %+v", cc)
	}
}

func TestParseEventCheckoutCompletedBadMetadata(t *testing.T) {
	evt := stripeEvent(t, "checkout.session.completed", `{
		"id": "cs_1",
		"metadata": {"user_id": "not-a-number"}
	}`)

	parsed, err := ParseEvent(evt)
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	cc := parsed.(CheckoutCompleted)
	if cc.UserID != 0 {
		t.Fatalf("UserID = %d, want 0 for unparseable metadata", cc.UserID)
	}
}

func TestParseEventSubscriptionUpdated(t *testing.T) {
	evt := stripeEvent(t, "customer.subscription.updated", `{
		"id": "sub_456",
		"customer": {"id": "cus_123"},
		"status": "past_due",
		"cancel_at": 1767225600
	}`)

	parsed, err := ParseEvent(evt)
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	su, ok := parsed.(SubscriptionUpdated)
	if !ok {
		t.Fatalf("ParseEvent returned %T, want SubscriptionUpdated", parsed)
	}
	if su.CustomerID != "cus_123" {
		t.Fatalf("customer id = %q, want cus_123 from expanded object", su.CustomerID)
	}
	if su.ProviderStatus != "past_due" {
		t.Fatalf("status = %q, want past_due", su.ProviderStatus)
	}
	want := time.Unix(1767225600, 0).UTC()
	if su.CancelAt == nil || !su.CancelAt.Equal(want) {
		t.Fatalf("cancel at = %v, want %v", su.CancelAt, want)
	}
}

func TestParseEventSubscriptionUpdatedNoCancelAt(t *testing.T) {
	evt := stripeEvent(t, "customer.subscription.updated", `{
		"id": "sub_456",
		"customer": "cus_123",
		"status": "active"
	}`)

	parsed, err := ParseEvent(evt)
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	su := parsed.(SubscriptionUpdated)
	if su.CancelAt != nil {
		t.Fatalf("cancel at = %v, want nil", su.CancelAt)
	}
}

func TestParseEventInvoices(t *testing.T) {
	parsed, err := ParseEvent(stripeEvent(t, "invoice.payment_succeeded", `{
		"id": "in_1",
		"customer": "cus_123",
		"payment_intent": "pi_1",
		"amount_paid": 4999,
		"currency": "usd"
	}`))
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	ips, ok := parsed.(InvoicePaymentSucceeded)
	if !ok {
		t.Fatalf("ParseEvent returned %T, want InvoicePaymentSucceeded", parsed)
	}
	if ips.CustomerID != "cus_123" || ips.AmountCents != 4999 || ips.PaymentReference != "pi_1" {
		t.Fatalf("unexpected event fields: %+v", ips)
	}

	parsed, err = ParseEvent(stripeEvent(t, "invoice.payment_failed", `{
		"id": "in_2",
		"customer": "cus_123"
	}`))
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	if ipf, ok := parsed.(InvoicePaymentFailed); !ok || ipf.CustomerID != "cus_123" {
		t.Fatalf("ParseEvent returned %T (%+v), want InvoicePaymentFailed", parsed, parsed)
	}
}

func TestParseEventUnrecognizedKind(t *testing.T) {
	parsed, err := ParseEvent(stripeEvent(t, "customer.created", `{"id": "cus_123"}`))
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	u, ok := parsed.(Unhandled)
	if !ok {
		t.Fatalf("ParseEvent returned %T, want Unhandled", parsed)
	}
	if u.Type != "customer.created" {
		t.Fatalf("type = %q, want customer.created", u.Type)
	}
}

func TestParseEventMalformedPayload(t *testing.T) {
	if _, err := ParseEvent(stripeEvent(t, "checkout.session.completed", `{"id": `)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
