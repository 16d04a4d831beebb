package billing

import (
	"context"
	"testing"
	"time"

	"github.com/aicser/aicser-studio/app/models"
	"gorm.io/gorm"
)

type fakeRepo struct {
	users    map[uint]*models.User
	payments []models.Payment
	events   map[string]*models.BillingWebhookEvent
	nextID   uint
}

func newFakeRepo(users ...*models.User) *fakeRepo {
	r := &fakeRepo{
		users:  make(map[uint]*models.User),
		events: make(map[string]*models.BillingWebhookEvent),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeRepo) GetUserByID(id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeRepo) GetUserByCustomerID(customerID string) (*models.User, error) {
	for _, u := range r.users {
		if u.StripeCustomerID == customerID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) UpdateUserFields(id uint, fields map[string]interface{}) error {
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "subscription_tier":
			u.SubscriptionTier = value.(string)
		case "subscription_status":
			u.SubscriptionStatus = value.(string)
		case "stripe_customer_id":
			u.StripeCustomerID = value.(string)
		case "stripe_subscription_id":
			u.StripeSubscriptionID = value.(string)
		case "subscription_start_date":
			if value == nil {
				u.SubscriptionStartDate = nil
			} else {
				u.SubscriptionStartDate = value.(*time.Time)
			}
		case "subscription_end_date":
			if value == nil {
				u.SubscriptionEndDate = nil
			} else {
				u.SubscriptionEndDate = value.(*time.Time)
			}
		}
	}
	return nil
}

func (r *fakeRepo) CreatePayment(payment *models.Payment) error {
	for _, p := range r.payments {
		if p.StripePaymentIntentID == payment.StripePaymentIntentID {
			return nil
		}
	}
	r.nextID++
	payment.ID = r.nextID
	r.payments = append(r.payments, *payment)
	return nil
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + ":" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	r.nextID++
	event.ID = r.nextID
	r.events[key] = event
	return true, event, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func proUser() *models.User {
	return &models.User{
		ID:                   7,
		Name:                 "Dana",
		Email:                "dana@example.com",
		SubscriptionTier:     models.TierPro,
		SubscriptionStatus:   models.SubscriptionActive,
		StripeCustomerID:     "cus_123",
		StripeSubscriptionID: "sub_123",
	}
}

func TestApplyCheckoutCompleted(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 7, Name: "Dana", Email: "dana@example.com", SubscriptionTier: models.TierFree, SubscriptionStatus: models.SubscriptionInactive})
	svc := NewService(repo, nil)

	err := svc.Apply(context.Background(), CheckoutCompleted{
		SessionID:        "cs_1",
		UserID:           7,
		Tier:             "premium",
		SubscriptionID:   "sub_new",
		PaymentReference: "pi_1",
		AmountCents:      4999,
		Currency:         "usd",
	})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	u := repo.users[7]
	if u.SubscriptionTier != models.TierPremium {
		t.Fatalf("tier = %q, want premium", u.SubscriptionTier)
	}
	if u.SubscriptionStatus != models.SubscriptionActive {
		t.Fatalf("status = %q, want active", u.SubscriptionStatus)
	}
	if u.StripeSubscriptionID != "sub_new" {
		t.Fatalf("subscription id = %q, want sub_new", u.StripeSubscriptionID)
	}
	if u.SubscriptionStartDate == nil {
		t.Fatalf("expected start date to be set")
	}
	if u.SubscriptionEndDate != nil {
		t.Fatalf("expected end date to be cleared")
	}
	if len(repo.payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(repo.payments))
	}
	p := repo.payments[0]
	if p.Status != models.PaymentStatusSucceeded || p.AmountCents != 4999 || p.SubscriptionTier != models.TierPremium {
		t.Fatalf("unexpected payment row: %+v", p)
	}
}

func TestApplyCheckoutCompletedMissingIdentifiers(t *testing.T) {
	repo := newFakeRepo(proUser())
	svc := NewService(repo, nil)

	for _, evt := range []CheckoutCompleted{
		{SessionID: "cs_nouser", Tier: "pro", AmountCents: 1999, Currency: "usd"},
		{SessionID: "cs_badtier", UserID: 7, Tier: "platinum", AmountCents: 1999, Currency: "usd"},
	} {
		if err := svc.Apply(context.Background(), evt); err != nil {
			t.Fatalf("Apply(%s) returned error: %v", evt.SessionID, err)
		}
	}

	u := repo.users[7]
	if u.SubscriptionTier != models.TierPro || u.StripeSubscriptionID != "sub_123" {
		t.Fatalf("profile mutated by dropped events: %+v", u)
	}
	if len(repo.payments) != 0 {
		t.Fatalf("payments = %d, want 0", len(repo.payments))
	}
}

func TestApplySubscriptionDeleted(t *testing.T) {
	repo := newFakeRepo(proUser())
	svc := NewService(repo, nil)

	err := svc.Apply(context.Background(), SubscriptionDeleted{SubscriptionID: "sub_123", CustomerID: "cus_123"})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	u := repo.users[7]
	if u.SubscriptionTier != models.TierFree {
		t.Fatalf("tier = %q, want free", u.SubscriptionTier)
	}
	if u.SubscriptionStatus != models.SubscriptionCanceled {
		t.Fatalf("status = %q, want canceled", u.SubscriptionStatus)
	}
	if u.SubscriptionEndDate == nil {
		t.Fatalf("expected end date to be set")
	}
}

func TestApplySubscriptionUpdatedIdempotent(t *testing.T) {
	repo := newFakeRepo(proUser())
	svc := NewService(repo, nil)

	cancelAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	evt := SubscriptionUpdated{
		SubscriptionID: "sub_123",
		CustomerID:     "cus_123",
		ProviderStatus: "past_due",
		CancelAt:       &cancelAt,
	}

	if err := svc.Apply(context.Background(), evt); err != nil {
		t.Fatalf("first Apply returned error: %v", err)
	}
	first := *repo.users[7]
	if err := svc.Apply(context.Background(), evt); err != nil {
		t.Fatalf("second Apply returned error: %v", err)
	}
	second := *repo.users[7]

	if first.SubscriptionStatus != models.SubscriptionPastDue {
		t.Fatalf("status = %q, want past_due", first.SubscriptionStatus)
	}
	if first.SubscriptionEndDate == nil || !first.SubscriptionEndDate.Equal(cancelAt) {
		t.Fatalf("end date = %v, want %v", first.SubscriptionEndDate, cancelAt)
	}
	if second != first {
		t.Fatalf("state diverged on replay: first=%+v second=%+v", first, second)
	}
}

func TestApplySubscriptionUpdatedClearsEndDate(t *testing.T) {
	user := proUser()
	end := time.Now()
	user.SubscriptionEndDate = &end
	repo := newFakeRepo(user)
	svc := NewService(repo, nil)

	err := svc.Apply(context.Background(), SubscriptionUpdated{
		SubscriptionID: "sub_123",
		CustomerID:     "cus_123",
		ProviderStatus: "active",
	})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if repo.users[7].SubscriptionEndDate != nil {
		t.Fatalf("expected end date cleared when cancel_at absent")
	}
}

func TestApplyUnknownCustomer(t *testing.T) {
	repo := newFakeRepo(proUser())
	svc := NewService(repo, nil)

	events := []Event{
		SubscriptionUpdated{SubscriptionID: "sub_x", CustomerID: "cus_unknown", ProviderStatus: "canceled"},
		SubscriptionDeleted{SubscriptionID: "sub_x", CustomerID: "cus_unknown"},
		InvoicePaymentSucceeded{InvoiceID: "in_x", CustomerID: "cus_unknown", AmountCents: 1999, Currency: "usd"},
		InvoicePaymentFailed{InvoiceID: "in_x", CustomerID: "cus_unknown"},
	}
	for _, evt := range events {
		if err := svc.Apply(context.Background(), evt); err != nil {
			t.Fatalf("Apply(%s) returned error: %v", evt.Kind(), err)
		}
	}

	u := repo.users[7]
	if u.SubscriptionTier != models.TierPro || u.SubscriptionStatus != models.SubscriptionActive {
		t.Fatalf("profile mutated by unknown-customer events: %+v", u)
	}
	if len(repo.payments) != 0 {
		t.Fatalf("payments = %d, want 0", len(repo.payments))
	}
}

func TestApplyInvoicePaymentFailed(t *testing.T) {
	repo := newFakeRepo(proUser())
	svc := NewService(repo, nil)

	err := svc.Apply(context.Background(), InvoicePaymentFailed{InvoiceID: "in_1", CustomerID: "cus_123"})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	u := repo.users[7]
	if u.SubscriptionStatus != models.SubscriptionPastDue {
		t.Fatalf("status = %q, want past_due", u.SubscriptionStatus)
	}
	if u.SubscriptionTier != models.TierPro {
		t.Fatalf("tier = %q, want pro (unchanged)", u.SubscriptionTier)
	}
}

func TestApplyInvoicePaymentSucceeded(t *testing.T) {
	repo := newFakeRepo(proUser())
	svc := NewService(repo, nil)

	evt := InvoicePaymentSucceeded{
		InvoiceID:        "in_1",
		CustomerID:       "cus_123",
		PaymentReference: "pi_inv_1",
		AmountCents:      1999,
		Currency:         "usd",
	}
	if err := svc.Apply(context.Background(), evt); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	// Replay of the same upstream event must not double-record revenue.
	if err := svc.Apply(context.Background(), evt); err != nil {
		t.Fatalf("replayed Apply returned error: %v", err)
	}

	if len(repo.payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(repo.payments))
	}
	p := repo.payments[0]
	if p.SubscriptionTier != models.TierPro {
		t.Fatalf("payment tier = %q, want the profile's current tier", p.SubscriptionTier)
	}
	if p.Status != models.PaymentStatusSucceeded || p.AmountCents != 1999 {
		t.Fatalf("unexpected payment row: %+v", p)
	}
}

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "past_due", want: models.SubscriptionPastDue},
		{in: "canceled", want: models.SubscriptionCanceled},
		{in: "incomplete_expired", want: models.SubscriptionCanceled},
		{in: "active", want: models.SubscriptionActive},
		{in: "trialing", want: models.SubscriptionActive},
		{in: "unpaid", want: models.SubscriptionActive},
		{in: "", want: models.SubscriptionActive},
	}

	for _, tt := range tests {
		if got := mapProviderStatus(tt.in); got != tt.want {
			t.Fatalf("mapProviderStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	in := WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     `{"id":"evt_1"}`,
		SignatureValid:  true,
	}

	created, stored, err := svc.RecordWebhookEvent(context.Background(), in)
	if err != nil {
		t.Fatalf("RecordWebhookEvent returned error: %v", err)
	}
	if !created || stored == nil {
		t.Fatalf("expected first event to be created")
	}

	created, stored, err = svc.RecordWebhookEvent(context.Background(), in)
	if err != nil {
		t.Fatalf("RecordWebhookEvent returned error on replay: %v", err)
	}
	if created {
		t.Fatalf("expected replayed event to be reported as duplicate")
	}
	if stored == nil || stored.ProviderEventID != "evt_1" {
		t.Fatalf("expected stored event to be returned for duplicates")
	}
}
