package game

import "testing"

func TestProgressPerTurnBps(t *testing.T) {
	tests := []struct {
		turns int32
		want  int32
	}{
		{turns: 1, want: 10_000},
		{turns: 2, want: 5_000},
		{turns: 3, want: 3_334},
		{turns: 4, want: 2_500},
		{turns: 0, want: 10_000},
	}
	for _, tc := range tests {
		if got := progressPerTurnBps(tc.turns); got != tc.want {
			t.Fatalf("turns=%d got=%d want=%d", tc.turns, got, tc.want)
		}
	}
}

func TestProgressCompletesOnSchedule(t *testing.T) {
	// A job must finish after exactly timeRequired turns, never later.
	for turns := int32(1); turns <= 12; turns++ {
		step := progressPerTurnBps(turns)
		progress := int32(0)
		elapsed := int32(0)
		for progress < QualityScaleBps {
			progress += step
			elapsed++
		}
		if elapsed != turns {
			t.Fatalf("timeRequired=%d finished in %d turns", turns, elapsed)
		}
	}
}

func TestCancelRefundKeepsQualityAndCostBasis(t *testing.T) {
	// Inputs debited at quality 0.50 / cost 10.00 must come back the
	// same way when a run is cancelled before any work happens, leaving
	// the inventory record exactly as it started.
	const (
		stockQty  = 100 * QuantityScale
		stockQual = int32(5_000)
		stockCost = int64(1_000)
	)
	back := refundUnits(0, stockQty)
	if back != stockQty {
		t.Fatalf("zero-progress refund got %d want %d", back, stockQty)
	}
	qty, quality, cost, err := mergeStock(0, 0, 0, back, stockQual, stockCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != stockQty || quality != stockQual || cost != stockCost {
		t.Fatalf("round trip got qty=%d quality=%d cost=%d want qty=%d quality=%d cost=%d",
			qty, quality, cost, stockQty, stockQual, stockCost)
	}

	// Partial progress: half the inputs return, still at the debited
	// quality and per-unit cost, so merging into untouched stock of the
	// same grade moves neither average.
	back = refundUnits(5_000, stockQty)
	qty, quality, cost, err = mergeStock(stockQty, stockQual, stockCost, back, stockQual, stockCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quality != stockQual || cost != stockCost {
		t.Fatalf("partial refund skewed record: quality=%d cost=%d", quality, cost)
	}
	if qty != stockQty+back {
		t.Fatalf("partial refund qty got %d want %d", qty, stockQty+back)
	}
}

func TestRefundUnits(t *testing.T) {
	tests := []struct {
		progress int32
		consumed int64
		want     int64
	}{
		{progress: 0, consumed: 100 * QuantityScale, want: 100 * QuantityScale},
		{progress: 5_000, consumed: 100 * QuantityScale, want: 50 * QuantityScale},
		{progress: 7_500, consumed: 100 * QuantityScale, want: 25 * QuantityScale},
		{progress: 10_000, consumed: 100 * QuantityScale, want: 0},
		{progress: 12_000, consumed: 100 * QuantityScale, want: 0},
		{progress: 3_334, consumed: 3, want: 1},
	}
	for _, tc := range tests {
		if got := refundUnits(tc.progress, tc.consumed); got != tc.want {
			t.Fatalf("progress=%d consumed=%d got=%d want=%d", tc.progress, tc.consumed, got, tc.want)
		}
	}
}
