package game

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Money and quantities cross the wire as decimal strings ("1234.56",
// "100.5000") and live internally as scaled integers: cents for money,
// 1/10000 units for quantities. Nothing here touches binary floats.

var (
	centScale = decimal.New(CentsPerDollar, 0)
	qtyScale  = decimal.New(QuantityScale, 0)
)

// ParseCents parses a decimal money string into cents. Fractions beyond
// cents are rejected rather than silently rounded.
func ParseCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	scaled := d.Mul(centScale)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than 2 decimal places", s)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return scaled.IntPart(), nil
}

// ParseQuantity parses a decimal quantity string into quantity units.
func ParseQuantity(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	scaled := d.Mul(qtyScale)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("quantity %q has more than 4 decimal places", s)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("quantity %q out of range", s)
	}
	return scaled.IntPart(), nil
}

// FormatCents renders cents as a two-place decimal string.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// FormatQuantity renders quantity units as a four-place decimal string.
func FormatQuantity(qtyUnits int64) string {
	return decimal.New(qtyUnits, -4).StringFixed(4)
}

// FormatBps renders a basis-point ratio as a two-place decimal string,
// e.g. 12000 -> "1.20".
func FormatBps(bps int32) string {
	return decimal.New(int64(bps), -4).StringFixed(2)
}

// totalCostCents computes priceCents x qtyUnits / QuantityScale without
// intermediate overflow.
func totalCostCents(priceCents, qtyUnits int64) (int64, error) {
	p := big.NewInt(priceCents)
	q := big.NewInt(qtyUnits)
	v := new(big.Int).Mul(p, q)
	v = v.Div(v, big.NewInt(QuantityScale))
	if !v.IsInt64() {
		return 0, fmt.Errorf("cost overflow")
	}
	return v.Int64(), nil
}

// perUnitCents divides a total cost back into a per-unit price.
func perUnitCents(totalCents, qtyUnits int64) (int64, error) {
	if qtyUnits <= 0 {
		return 0, fmt.Errorf("quantity must be > 0")
	}
	v := new(big.Int).Mul(big.NewInt(totalCents), big.NewInt(QuantityScale))
	v = v.Div(v, big.NewInt(qtyUnits))
	if !v.IsInt64() {
		return 0, fmt.Errorf("per-unit overflow")
	}
	return v.Int64(), nil
}

// mergeStock folds newly arriving goods into an existing inventory record,
// producing quantity-weighted average quality and acquisition cost.
func mergeStock(oldQty int64, oldQualityBps int32, oldAvgCostCents int64, addQty int64, addQualityBps int32, addUnitCostCents int64) (qty int64, qualityBps int32, avgCostCents int64, err error) {
	if addQty <= 0 {
		return 0, 0, 0, fmt.Errorf("credit quantity must be > 0")
	}
	if oldQty < 0 {
		return 0, 0, 0, fmt.Errorf("negative existing quantity")
	}
	qty = oldQty + addQty

	wq := new(big.Int).Mul(big.NewInt(oldQty), big.NewInt(int64(oldQualityBps)))
	wq.Add(wq, new(big.Int).Mul(big.NewInt(addQty), big.NewInt(int64(addQualityBps))))
	wq.Div(wq, big.NewInt(qty))
	qualityBps = int32(wq.Int64())

	oldTotal, err := totalCostCents(oldAvgCostCents, oldQty)
	if err != nil {
		return 0, 0, 0, err
	}
	addTotal, err := totalCostCents(addUnitCostCents, addQty)
	if err != nil {
		return 0, 0, 0, err
	}
	avgCostCents, err = perUnitCents(oldTotal+addTotal, qty)
	if err != nil {
		return 0, 0, 0, err
	}
	return qty, qualityBps, avgCostCents, nil
}
