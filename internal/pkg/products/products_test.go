package products

import "testing"

func TestByTier(t *testing.T) {
	tests := []struct {
		tier      string
		wantOK    bool
		wantCents int64
	}{
		{tier: "free", wantOK: true, wantCents: 0},
		{tier: "pro", wantOK: true, wantCents: 1999},
		{tier: "premium", wantOK: true, wantCents: 4999},
		{tier: "PRO", wantOK: true, wantCents: 1999},
		{tier: "enterprise", wantOK: false},
		{tier: "", wantOK: false},
	}

	for _, tt := range tests {
		p, ok := ByTier(tt.tier)
		if ok != tt.wantOK {
			t.Fatalf("ByTier(%q) ok = %v, want %v", tt.tier, ok, tt.wantOK)
		}
		if ok && p.PriceCents != tt.wantCents {
			t.Fatalf("ByTier(%q) price = %d, want %d", tt.tier, p.PriceCents, tt.wantCents)
		}
	}
}

func TestAllIsCopy(t *testing.T) {
	all := All()
	if len(all) != 3 {
		t.Fatalf("expected 3 products, got %d", len(all))
	}
	all[0].Name = "mutated"
	if All()[0].Name == "mutated" {
		t.Fatalf("All must return a copy of the catalog")
	}
}
