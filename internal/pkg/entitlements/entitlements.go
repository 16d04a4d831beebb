package entitlements

import (
	"strings"

	"github.com/aicser/aicser-studio/app/models"
)

type Tier string

const (
	TierFree    Tier = models.TierFree
	TierPro     Tier = models.TierPro
	TierPremium Tier = models.TierPremium
)

// NormalizeTier folds any input to a known tier, defaulting to free.
func NormalizeTier(tier string) Tier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case models.TierPro:
		return TierPro
	case models.TierPremium:
		return TierPremium
	default:
		return TierFree
	}
}

// TierRank orders tiers so that access checks are a single comparison.
func TierRank(tier Tier) int {
	switch tier {
	case TierPremium:
		return 2
	case TierPro:
		return 1
	default:
		return 0
	}
}

// CanAccessCourse reports whether a user tier unlocks a course tier.
func CanAccessCourse(userTier, requiredTier string) bool {
	return TierRank(NormalizeTier(userTier)) >= TierRank(NormalizeTier(requiredTier))
}

// CanDownloadResources reports whether the tier includes downloadable
// course resources (pro and up).
func CanDownloadResources(tier string) bool {
	return TierRank(NormalizeTier(tier)) >= TierRank(TierPro)
}

// HasMentorship reports whether the tier includes 1-on-1 mentorship sessions.
func HasMentorship(tier string) bool {
	return NormalizeTier(tier) == TierPremium
}

// IsEntitlingStatus reports whether a subscription status still grants paid
// tier benefits. past_due keeps access during the dunning window.
func IsEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.SubscriptionActive, models.SubscriptionPastDue:
		return true
	default:
		return false
	}
}

// EffectiveTier collapses tier and status to the tier the user actually gets.
func EffectiveTier(tier, status string) Tier {
	t := NormalizeTier(tier)
	if t == TierFree {
		return TierFree
	}
	if !IsEntitlingStatus(status) {
		return TierFree
	}
	return t
}
