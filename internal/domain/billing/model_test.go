package billing

import "testing"

func TestPlans_Catalog(t *testing.T) {
	plans := Plans()
	if len(plans) != 3 {
		t.Fatalf("got %d plans, want 3", len(plans))
	}

	wantPrices := map[string]float64{"starter": 99, "professional": 299, "enterprise": 799}
	for _, p := range plans {
		if p.Price != wantPrices[p.ID] {
			t.Errorf("plan %s price = %v, want %v", p.ID, p.Price, wantPrices[p.ID])
		}
		if p.Currency != "usd" {
			t.Errorf("plan %s currency = %q", p.ID, p.Currency)
		}
		if len(p.Features) == 0 {
			t.Errorf("plan %s has no features", p.ID)
		}
	}

	pro, ok := PlanByID("professional")
	if !ok || !pro.Popular {
		t.Error("professional should be the popular plan")
	}
	ent, _ := PlanByID("enterprise")
	if ent.Limits.Doctors != -1 || ent.Limits.PatientsPerMonth != -1 {
		t.Errorf("enterprise limits should be unlimited, got %+v", ent.Limits)
	}
}

func TestPlanByID_Unknown(t *testing.T) {
	if _, ok := PlanByID("platinum"); ok {
		t.Error("unknown plan id should not resolve")
	}
}

func TestPriceCents(t *testing.T) {
	for _, tc := range []struct {
		planID string
		want   int64
	}{
		{"starter", 9900},
		{"professional", 29900},
		{"enterprise", 79900},
	} {
		p, ok := PlanByID(tc.planID)
		if !ok {
			t.Fatalf("plan %s missing", tc.planID)
		}
		if got := p.PriceCents(); got != tc.want {
			t.Errorf("%s PriceCents = %d, want %d", tc.planID, got, tc.want)
		}
	}
}

func TestPlans_ReturnsCopy(t *testing.T) {
	plans := Plans()
	plans[0].Price = 1

	fresh, _ := PlanByID("starter")
	if fresh.Price != 99 {
		t.Error("mutating the returned slice should not change the catalog")
	}
}
