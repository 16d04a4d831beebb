package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stripe/stripe-go/v82"

	"github.com/aicser/aicser-studio/app/models"
)

type fakeProvider struct {
	validCustomers   map[string]bool
	mintedCustomers  int
	checkoutSessions int
	portalSessions   int
	lastCheckout     CheckoutSessionInput
}

func newFakeProvider(valid ...string) *fakeProvider {
	p := &fakeProvider{validCustomers: make(map[string]bool)}
	for _, id := range valid {
		p.validCustomers[id] = true
	}
	return p
}

func (p *fakeProvider) VerifyCustomer(ctx context.Context, customerID string) (bool, error) {
	return p.validCustomers[customerID], nil
}

func (p *fakeProvider) CreateCustomer(ctx context.Context, email, name string, userID uint) (string, error) {
	p.mintedCustomers++
	id := fmt.Sprintf("cus_new_%d", p.mintedCustomers)
	p.validCustomers[id] = true
	return id, nil
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error) {
	p.checkoutSessions++
	p.lastCheckout = in
	return "https://checkout.example.com/" + in.CustomerID, nil
}

func (p *fakeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	p.portalSessions++
	return "https://portal.example.com/" + customerID, nil
}

func (p *fakeProvider) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return stripe.Event{}, errors.New("not implemented")
}

func TestCreateCheckoutSessionFreeTier(t *testing.T) {
	repo := newFakeRepo(proUser())
	provider := newFakeProvider("cus_123")
	svc := NewService(repo, provider)

	for _, tier := range []string{"free", "platinum", ""} {
		_, err := svc.CreateCheckoutSession(context.Background(), 7, tier, "https://app/success", "https://app/cancel")
		if !errors.Is(err, ErrInvalidTier) {
			t.Fatalf("CreateCheckoutSession(%q) error = %v, want ErrInvalidTier", tier, err)
		}
	}
	if provider.checkoutSessions != 0 {
		t.Fatalf("sessions created = %d, want 0", provider.checkoutSessions)
	}
}

func TestCreateCheckoutSessionKeepsValidCustomer(t *testing.T) {
	repo := newFakeRepo(proUser())
	provider := newFakeProvider("cus_123")
	svc := NewService(repo, provider)

	url, err := svc.CreateCheckoutSession(context.Background(), 7, "premium", "https://app/success", "https://app/cancel")
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}
	if url == "" {
		t.Fatalf("expected a session URL")
	}
	if provider.mintedCustomers != 0 {
		t.Fatalf("minted customers = %d, want 0", provider.mintedCustomers)
	}
	if repo.users[7].StripeCustomerID != "cus_123" {
		t.Fatalf("customer id changed to %q", repo.users[7].StripeCustomerID)
	}
	if provider.lastCheckout.Tier != "premium" || provider.lastCheckout.AmountCents != 4999 {
		t.Fatalf("unexpected checkout input: %+v", provider.lastCheckout)
	}
}

func TestCreateCheckoutSessionMintsCustomerWhenStale(t *testing.T) {
	repo := newFakeRepo(proUser())
	provider := newFakeProvider() // stored cus_123 no longer resolves upstream
	svc := NewService(repo, provider)

	_, err := svc.CreateCheckoutSession(context.Background(), 7, "pro", "https://app/success", "https://app/cancel")
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}
	if provider.mintedCustomers != 1 {
		t.Fatalf("minted customers = %d, want 1", provider.mintedCustomers)
	}
	if repo.users[7].StripeCustomerID != "cus_new_1" {
		t.Fatalf("customer id = %q, want overwritten with cus_new_1", repo.users[7].StripeCustomerID)
	}
}

func TestCreateCheckoutSessionMintsCustomerWhenAbsent(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 9, Name: "Lee", Email: "lee@example.com", SubscriptionTier: models.TierFree})
	provider := newFakeProvider()
	svc := NewService(repo, provider)

	_, err := svc.CreateCheckoutSession(context.Background(), 9, "pro", "https://app/success", "https://app/cancel")
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}
	if repo.users[9].StripeCustomerID == "" {
		t.Fatalf("expected new customer id persisted to profile")
	}
}

func TestCreateCheckoutSessionUnknownUser(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeProvider())

	_, err := svc.CreateCheckoutSession(context.Background(), 42, "pro", "https://app/success", "https://app/cancel")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("error = %v, want ErrProfileNotFound", err)
	}
}

func TestCreatePortalSessionNoCustomer(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 9, Name: "Lee", Email: "lee@example.com"})
	provider := newFakeProvider()
	svc := NewService(repo, provider)

	_, err := svc.CreatePortalSession(context.Background(), 9, "https://app/account")
	if !errors.Is(err, ErrNoBillingCustomer) {
		t.Fatalf("error = %v, want ErrNoBillingCustomer", err)
	}
	if provider.portalSessions != 0 {
		t.Fatalf("portal sessions = %d, want 0", provider.portalSessions)
	}
	if repo.users[9].StripeCustomerID != "" {
		t.Fatalf("profile mutated by failed portal request")
	}
}

func TestCreatePortalSessionStaleCustomer(t *testing.T) {
	repo := newFakeRepo(proUser())
	provider := newFakeProvider() // cus_123 no longer valid upstream
	svc := NewService(repo, provider)

	_, err := svc.CreatePortalSession(context.Background(), 7, "https://app/account")
	if !errors.Is(err, ErrNoBillingCustomer) {
		t.Fatalf("error = %v, want ErrNoBillingCustomer", err)
	}
}

func TestCreatePortalSession(t *testing.T) {
	repo := newFakeRepo(proUser())
	provider := newFakeProvider("cus_123")
	svc := NewService(repo, provider)

	url, err := svc.CreatePortalSession(context.Background(), 7, "https://app/account")
	if err != nil {
		t.Fatalf("CreatePortalSession returned error: %v", err)
	}
	if url != "https://portal.example.com/cus_123" {
		t.Fatalf("url = %q", url)
	}
}
