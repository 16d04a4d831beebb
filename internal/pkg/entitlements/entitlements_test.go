package entitlements

import "testing"

func TestTierRank(t *testing.T) {
	if TierRank(TierFree) >= TierRank(TierPro) {
		t.Fatalf("expected pro to outrank free")
	}
	if TierRank(TierPro) >= TierRank(TierPremium) {
		t.Fatalf("expected premium to outrank pro")
	}
}

func TestNormalizeTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{in: "free", want: TierFree},
		{in: "pro", want: TierPro},
		{in: "premium", want: TierPremium},
		{in: "PREMIUM", want: TierPremium},
		{in: " pro ", want: TierPro},
		{in: "invalid", want: TierFree},
		{in: "", want: TierFree},
	}

	for _, tt := range tests {
		if got := NormalizeTier(tt.in); got != tt.want {
			t.Fatalf("NormalizeTier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanAccessCourse(t *testing.T) {
	if !CanAccessCourse("premium", "pro") {
		t.Fatalf("premium should access pro courses")
	}
	if !CanAccessCourse("pro", "pro") {
		t.Fatalf("pro should access pro courses")
	}
	if CanAccessCourse("free", "pro") {
		t.Fatalf("free should not access pro courses")
	}
	if !CanAccessCourse("free", "free") {
		t.Fatalf("free should access free courses")
	}
}

func TestIsEntitlingStatus(t *testing.T) {
	for _, status := range []string{"active", "past_due"} {
		if !IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be entitling", status)
		}
	}
	for _, status := range []string{"canceled", "inactive", ""} {
		if IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
}

func TestEffectiveTier(t *testing.T) {
	if got := EffectiveTier("premium", "canceled"); got != TierFree {
		t.Fatalf("canceled premium should collapse to free, got %q", got)
	}
	if got := EffectiveTier("pro", "past_due"); got != TierPro {
		t.Fatalf("past_due pro should keep pro during dunning, got %q", got)
	}
	if got := EffectiveTier("free", "active"); got != TierFree {
		t.Fatalf("free stays free, got %q", got)
	}
}
