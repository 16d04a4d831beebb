package billing

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/aicser/aicser-studio/internal/pkg/products"
)

// CreateCheckoutSession validates the requested tier, ensures the user has a
// live billing customer and returns the hosted checkout URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uint, tier, successURL, cancelURL string) (string, error) {
	product, ok := products.ByTier(tier)
	if !ok || product.PriceCents == 0 {
		return "", ErrInvalidTier
	}

	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProfileNotFound
		}
		return "", err
	}

	customerID, err := s.ensureCustomer(ctx, user.ID, user.Email, user.Name, user.StripeCustomerID)
	if err != nil {
		return "", err
	}

	return s.provider.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerID:  customerID,
		UserID:      user.ID,
		Tier:        product.Tier,
		ProductName: product.Name,
		AmountCents: product.PriceCents,
		Currency:    "usd",
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
	})
}

// CreatePortalSession returns a self-service portal URL for a user with an
// upstream-verified billing customer.
func (s *Service) CreatePortalSession(ctx context.Context, userID uint, returnURL string) (string, error) {
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProfileNotFound
		}
		return "", err
	}
	if !user.HasBillingCustomer() {
		return "", ErrNoBillingCustomer
	}
	ok, err := s.provider.VerifyCustomer(ctx, user.StripeCustomerID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoBillingCustomer
	}
	return s.provider.CreatePortalSession(ctx, user.StripeCustomerID, returnURL)
}

// ensureCustomer returns a live billing customer id for the user. A stored
// id is verified upstream first; only an id the provider no longer knows is
// replaced, so a profile keeps a single stable customer across checkouts.
func (s *Service) ensureCustomer(ctx context.Context, userID uint, email, name, storedID string) (string, error) {
	if stored := strings.TrimSpace(storedID); stored != "" {
		ok, err := s.provider.VerifyCustomer(ctx, stored)
		if err != nil {
			return "", err
		}
		if ok {
			return stored, nil
		}
	}

	id, err := s.provider.CreateCustomer(ctx, email, name, userID)
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateUserFields(userID, map[string]interface{}{
		"stripe_customer_id": id,
	}); err != nil {
		return "", err
	}
	return id, nil
}
