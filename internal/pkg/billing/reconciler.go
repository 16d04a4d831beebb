package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/aicser/aicser-studio/app/models"
	"github.com/aicser/aicser-studio/internal/pkg/products"
)

// Apply reconciles one billing event into the profile store. Every mutation
// is an absolute set of named columns, so replaying an event yields the same
// final state. A profile that cannot be resolved is logged and dropped
// rather than failed, because a missing profile is usually a race with
// profile creation and must not trigger provider retries.
func (s *Service) Apply(ctx context.Context, evt Event) error {
	_ = ctx
	switch e := evt.(type) {
	case CheckoutCompleted:
		return s.applyCheckoutCompleted(e)
	case SubscriptionUpdated:
		return s.applySubscriptionUpdated(e)
	case SubscriptionDeleted:
		return s.applySubscriptionDeleted(e)
	case InvoicePaymentSucceeded:
		return s.applyInvoicePaymentSucceeded(e)
	case InvoicePaymentFailed:
		return s.applyInvoicePaymentFailed(e)
	case Unhandled:
		return nil
	default:
		return nil
	}
}

func (s *Service) applyCheckoutCompleted(e CheckoutCompleted) error {
	product, ok := products.ByTier(e.Tier)
	if e.UserID == 0 || !ok {
		fiberlog.Warnf("billing: dropping checkout event %s with missing identifiers (user_id=%d tier=%q)", e.SessionID, e.UserID, e.Tier)
		return nil
	}

	user, err := s.repo.GetUserByID(e.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fiberlog.Warnf("billing: dropping checkout event %s for unknown user %d", e.SessionID, e.UserID)
			return nil
		}
		return err
	}

	now := time.Now()
	if err := s.repo.UpdateUserFields(user.ID, map[string]interface{}{
		"subscription_tier":       product.Tier,
		"subscription_status":     models.SubscriptionActive,
		"stripe_subscription_id":  e.SubscriptionID,
		"subscription_start_date": &now,
		"subscription_end_date":   nil,
	}); err != nil {
		return err
	}

	ref := strings.TrimSpace(e.PaymentReference)
	if ref == "" {
		ref = "checkout:" + e.SessionID
	}
	return s.repo.CreatePayment(&models.Payment{
		UserID:                user.ID,
		StripePaymentIntentID: ref,
		AmountCents:           e.AmountCents,
		Currency:              e.Currency,
		Status:                models.PaymentStatusSucceeded,
		SubscriptionTier:      product.Tier,
	})
}

func (s *Service) applySubscriptionUpdated(e SubscriptionUpdated) error {
	user, ok, err := s.resolveCustomer(e.CustomerID, e.Kind())
	if err != nil || !ok {
		return err
	}
	return s.repo.UpdateUserFields(user.ID, map[string]interface{}{
		"subscription_status":   mapProviderStatus(e.ProviderStatus),
		"subscription_end_date": e.CancelAt,
	})
}

func (s *Service) applySubscriptionDeleted(e SubscriptionDeleted) error {
	user, ok, err := s.resolveCustomer(e.CustomerID, e.Kind())
	if err != nil || !ok {
		return err
	}
	now := time.Now()
	return s.repo.UpdateUserFields(user.ID, map[string]interface{}{
		"subscription_tier":     models.TierFree,
		"subscription_status":   models.SubscriptionCanceled,
		"subscription_end_date": &now,
	})
}

func (s *Service) applyInvoicePaymentSucceeded(e InvoicePaymentSucceeded) error {
	user, ok, err := s.resolveCustomer(e.CustomerID, e.Kind())
	if err != nil || !ok {
		return err
	}
	ref := strings.TrimSpace(e.PaymentReference)
	if ref == "" {
		ref = "invoice:" + e.InvoiceID
	}
	return s.repo.CreatePayment(&models.Payment{
		UserID:                user.ID,
		StripePaymentIntentID: ref,
		AmountCents:           e.AmountCents,
		Currency:              e.Currency,
		Status:                models.PaymentStatusSucceeded,
		SubscriptionTier:      user.SubscriptionTier,
	})
}

func (s *Service) applyInvoicePaymentFailed(e InvoicePaymentFailed) error {
	user, ok, err := s.resolveCustomer(e.CustomerID, e.Kind())
	if err != nil || !ok {
		return err
	}
	return s.repo.UpdateUserFields(user.ID, map[string]interface{}{
		"subscription_status": models.SubscriptionPastDue,
	})
}

// resolveCustomer maps a billing customer id to a local profile. An unknown
// customer yields (nil, false, nil) after a log line.
func (s *Service) resolveCustomer(customerID, kind string) (*models.User, bool, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		fiberlog.Warnf("billing: dropping %s event without customer id", kind)
		return nil, false, nil
	}
	user, err := s.repo.GetUserByCustomerID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fiberlog.Warnf("billing: dropping %s event for unknown customer %s", kind, id)
			return nil, false, nil
		}
		return nil, false, err
	}
	return user, true, nil
}

// mapProviderStatus folds the provider's status vocabulary into the local
// one. Anything not explicitly delinquent or terminal counts as active.
func mapProviderStatus(providerStatus string) string {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "past_due":
		return models.SubscriptionPastDue
	case "canceled", "incomplete_expired":
		return models.SubscriptionCanceled
	default:
		return models.SubscriptionActive
	}
}
