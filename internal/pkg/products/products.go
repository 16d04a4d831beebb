package products

import (
	"strings"

	"github.com/aicser/aicser-studio/app/models"
)

// SubscriptionProduct is a static catalog entry. The catalog is reference
// data consulted by checkout and by the pricing endpoint; it is not persisted.
type SubscriptionProduct struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_in_cents"`
	Tier        string   `json:"tier"`
	Features    []string `json:"features"`
}

var catalog = []SubscriptionProduct{
	{
		ID:          "free-tier",
		Name:        "Free Plan",
		Description: "Perfect for getting started with AI learning",
		PriceCents:  0,
		Tier:        models.TierFree,
		Features: []string{
			"Access to beginner courses",
			"Basic AI concepts",
			"Community support",
			"Limited course access",
		},
	},
	{
		ID:          "pro-tier",
		Name:        "Pro Plan",
		Description: "For serious learners who want more",
		PriceCents:  1999,
		Tier:        models.TierPro,
		Features: []string{
			"All Free features",
			"Access to intermediate courses",
			"Advanced AI techniques",
			"Priority email support",
			"Downloadable resources",
			"Progress tracking",
		},
	},
	{
		ID:          "premium-tier",
		Name:        "Premium Plan",
		Description: "Ultimate learning experience with everything unlocked",
		PriceCents:  4999,
		Tier:        models.TierPremium,
		Features: []string{
			"All Pro features",
			"Access to all premium courses",
			"Expert-level content",
			"1-on-1 mentorship sessions",
			"Certificate of completion",
			"Lifetime access to materials",
			"Exclusive AI projects",
		},
	},
}

// All returns the full catalog in display order.
func All() []SubscriptionProduct {
	out := make([]SubscriptionProduct, len(catalog))
	copy(out, catalog)
	return out
}

// ByTier looks up a catalog entry by its tier name.
func ByTier(tier string) (SubscriptionProduct, bool) {
	t := strings.ToLower(strings.TrimSpace(tier))
	for _, p := range catalog {
		if p.Tier == t {
			return p, true
		}
	}
	return SubscriptionProduct{}, false
}
