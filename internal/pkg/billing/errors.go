package billing

import "errors"

// Sentinel errors surfaced by user-initiated billing flows. Webhook
// processing never returns these to the provider; it logs and acknowledges.
var (
	ErrInvalidTier       = errors.New("billing: requested tier is not purchasable")
	ErrProfileNotFound   = errors.New("billing: profile not found")
	ErrNoBillingCustomer = errors.New("billing: no billing customer linked to profile")
)
