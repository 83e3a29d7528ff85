package game

import "testing"

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{in: "0", want: 0},
		{in: "12.50", want: 1250},
		{in: "1234.56", want: 123_456},
		{in: "-5.25", want: -525},
		{in: "1000000", want: 100_000_000},
	}
	for _, tc := range tests {
		got, err := ParseCents(tc.in)
		if err != nil {
			t.Fatalf("ParseCents(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseCents(%q)=%d want %d", tc.in, got, tc.want)
		}
	}

	invalid := []string{"", "abc", "1.234", "99999999999999999999"}
	for _, in := range invalid {
		if _, err := ParseCents(in); err == nil {
			t.Fatalf("expected ParseCents(%q) to fail", in)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{in: "1", want: 10_000},
		{in: "100.5", want: 1_005_000},
		{in: "0.0001", want: 1},
	}
	for _, tc := range tests {
		got, err := ParseQuantity(tc.in)
		if err != nil {
			t.Fatalf("ParseQuantity(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseQuantity(%q)=%d want %d", tc.in, got, tc.want)
		}
	}

	if _, err := ParseQuantity("0.00001"); err == nil {
		t.Fatalf("expected fifth decimal place to fail")
	}
	if _, err := ParseQuantity("one hundred"); err == nil {
		t.Fatalf("expected non-numeric quantity to fail")
	}
}

func TestFormatters(t *testing.T) {
	if got := FormatCents(123_456); got != "1234.56" {
		t.Fatalf("FormatCents got %q", got)
	}
	if got := FormatCents(-525); got != "-5.25" {
		t.Fatalf("FormatCents negative got %q", got)
	}
	if got := FormatQuantity(1_005_000); got != "100.5000" {
		t.Fatalf("FormatQuantity got %q", got)
	}
	if got := FormatBps(12_000); got != "1.20" {
		t.Fatalf("FormatBps got %q", got)
	}
	if got := FormatBps(2_500); got != "0.25" {
		t.Fatalf("FormatBps got %q", got)
	}
}

func TestTotalCostCents(t *testing.T) {
	// 40 units at 50.00 each.
	price := int64(5_000)
	qty := int64(40) * QuantityScale
	got, err := totalCostCents(price, qty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := int64(200_000)
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}

	// Fractional quantity: 2.5 units at 10.00 each = 25.00.
	got, err = totalCostCents(1_000, 25_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2_500 {
		t.Fatalf("got %d want 2500", got)
	}
}

func TestPerUnitCents(t *testing.T) {
	got, err := perUnitCents(200_000, 40*QuantityScale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5_000 {
		t.Fatalf("got %d want 5000", got)
	}
	if _, err := perUnitCents(100, 0); err == nil {
		t.Fatalf("expected zero quantity to fail")
	}
}

func TestMergeStock(t *testing.T) {
	// 100 units at quality 0.80 / cost 10.00 + 100 units at 1.00 / 20.00.
	qty, quality, cost, err := mergeStock(100*QuantityScale, 8_000, 1_000, 100*QuantityScale, 10_000, 2_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 200*QuantityScale {
		t.Fatalf("qty got %d", qty)
	}
	if quality != 9_000 {
		t.Fatalf("quality got %d want 9000", quality)
	}
	if cost != 1_500 {
		t.Fatalf("avg cost got %d want 1500", cost)
	}

	// Credit into an empty slot adopts the incoming values.
	qty, quality, cost, err = mergeStock(0, 0, 0, 50*QuantityScale, 9_500, 750)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 50*QuantityScale || quality != 9_500 || cost != 750 {
		t.Fatalf("empty-slot merge got qty=%d quality=%d cost=%d", qty, quality, cost)
	}

	if _, _, _, err := mergeStock(100, 5_000, 100, 0, 5_000, 100); err == nil {
		t.Fatalf("expected zero credit to fail")
	}
}
