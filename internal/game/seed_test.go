package game

import "testing"

func TestSeedCatalogConsistency(t *testing.T) {
	if len(citySeeds) != 12 {
		t.Fatalf("expected 12 seed cities, got %d", len(citySeeds))
	}
	for _, c := range citySeeds {
		if c.Population <= 0 {
			t.Fatalf("city %s has non-positive population", c.Name)
		}
		if c.WealthBps <= 0 || c.TaxBps <= 0 {
			t.Fatalf("city %s has non-positive wealth or tax", c.Name)
		}
	}

	codes := make(map[string]bool, len(resourceSeeds))
	for _, r := range resourceSeeds {
		if codes[r.Code] {
			t.Fatalf("duplicate resource code %s", r.Code)
		}
		codes[r.Code] = true
		if r.PriceCents <= 0 {
			t.Fatalf("resource %s has non-positive base price", r.Code)
		}
	}
}

func TestRecipeGraphCloses(t *testing.T) {
	codes := make(map[string]bool, len(resourceSeeds))
	for _, r := range resourceSeeds {
		codes[r.Code] = true
	}

	for _, rec := range recipeSeeds {
		if err := ValidateUnitType(rec.UnitType); err != nil {
			t.Fatalf("recipe %s: %v", rec.Name, err)
		}
		if !producerUnitTypes[rec.UnitType] {
			t.Fatalf("recipe %s runs on non-producer unit type %s", rec.Name, rec.UnitType)
		}
		if !codes[rec.OutputCode] {
			t.Fatalf("recipe %s outputs unseeded resource %s", rec.Name, rec.OutputCode)
		}
		if rec.OutputQty <= 0 {
			t.Fatalf("recipe %s has non-positive output quantity", rec.Name)
		}
		if rec.Labor <= 0 || rec.Turns <= 0 {
			t.Fatalf("recipe %s has non-positive labor or turns", rec.Name)
		}
		for _, in := range rec.Inputs {
			if !codes[in.Code] {
				t.Fatalf("recipe %s consumes unseeded resource %s", rec.Name, in.Code)
			}
			if in.Quantity <= 0 {
				t.Fatalf("recipe %s input %s has non-positive quantity", rec.Name, in.Code)
			}
		}
	}
}
