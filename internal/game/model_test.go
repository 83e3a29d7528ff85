package game

import "testing"

func TestValidateUnitType(t *testing.T) {
	valid := []string{"factory", "FARM", " mine "}
	for _, u := range valid {
		if err := ValidateUnitType(u); err != nil {
			t.Fatalf("expected unit type %q to be valid: %v", u, err)
		}
	}
	invalid := []string{"", "castle", "shop"}
	for _, u := range invalid {
		if err := ValidateUnitType(u); err == nil {
			t.Fatalf("expected unit type %q to fail", u)
		}
	}
}

func TestConstructionCostCents(t *testing.T) {
	tests := []struct {
		unitType string
		size     int32
		want     int64
	}{
		{unitType: "factory", size: 100, want: 500_000 * CentsPerDollar},
		{unitType: "factory", size: 200, want: 1_000_000 * CentsPerDollar},
		{unitType: "office", size: 50, want: 25_000 * CentsPerDollar},
		{unitType: "mine", size: 150, want: 1_500_000 * CentsPerDollar},
	}
	for _, tc := range tests {
		got, err := ConstructionCostCents(tc.unitType, tc.size)
		if err != nil {
			t.Fatalf("%s size=%d: %v", tc.unitType, tc.size, err)
		}
		if got != tc.want {
			t.Fatalf("%s size=%d got=%d want=%d", tc.unitType, tc.size, got, tc.want)
		}
	}

	if _, err := ConstructionCostCents("factory", 25); err == nil {
		t.Fatalf("expected size below minimum to fail")
	}
	if _, err := ConstructionCostCents("factory", 20_000); err == nil {
		t.Fatalf("expected size above maximum to fail")
	}
	if _, err := ConstructionCostCents("castle", 100); err == nil {
		t.Fatalf("expected unknown unit type to fail")
	}
}

func TestClampSize(t *testing.T) {
	tests := []struct {
		in   int32
		want int32
	}{
		{in: 0, want: 100},
		{in: 10, want: MinUnitSize},
		{in: 100, want: 100},
		{in: 99_999, want: MaxUnitSize},
	}
	for _, tc := range tests {
		if got := clampSize(tc.in); got != tc.want {
			t.Fatalf("clampSize(%d)=%d want %d", tc.in, got, tc.want)
		}
	}
}

func TestValidateEntityName(t *testing.T) {
	if err := validateEntityName("Acme Heavy Industries"); err != nil {
		t.Fatalf("expected valid entity name: %v", err)
	}
	if err := validateEntityName("x"); err == nil {
		t.Fatalf("expected one-character name to fail")
	}
	if err := validateEntityName("admin empire"); err == nil {
		t.Fatalf("expected blocked name to fail")
	}
}
