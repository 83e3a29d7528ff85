package game

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CentsPerDollar = int64(100)

	// StartingCashCents is the founding capital every new company receives.
	StartingCashCents = int64(1_000_000) * CentsPerDollar

	// QuantityScale is the fixed-point scale for goods quantities:
	// 1 unit of a resource = 10_000 quantity units.
	QuantityScale = int64(10_000)

	// QualityScaleBps is full quality (1.00) in basis points.
	QualityScaleBps = int32(10_000)

	DefaultReputation = int32(50)

	MinUnitSize = int32(50)
	MaxUnitSize = int32(10_000)

	// New units start in perfect shape.
	DefaultCondition     = int32(100)
	DefaultEfficiencyBps = int32(10_000)

	DefaultMorale      = int32(70)
	DefaultSalaryCents = int64(1_000) * CentsPerDollar

	// Wall-clock length of one game turn.
	DefaultTurnSeconds = int64(3_600)
)

// Unit types and their construction base cost at size 100.
const (
	UnitOffice     = "office"
	UnitStore      = "store"
	UnitFactory    = "factory"
	UnitMine       = "mine"
	UnitFarm       = "farm"
	UnitLaboratory = "laboratory"
)

var unitBaseCostCents = map[string]int64{
	UnitOffice:     50_000 * CentsPerDollar,
	UnitStore:      100_000 * CentsPerDollar,
	UnitFactory:    500_000 * CentsPerDollar,
	UnitMine:       1_000_000 * CentsPerDollar,
	UnitFarm:       200_000 * CentsPerDollar,
	UnitLaboratory: 750_000 * CentsPerDollar,
}

// Unit types that can run production recipes.
var producerUnitTypes = map[string]bool{
	UnitFactory:    true,
	UnitMine:       true,
	UnitFarm:       true,
	UnitLaboratory: true,
}

// Ledger entry types.
const (
	TxPurchase     = "purchase"
	TxSale         = "sale"
	TxSalary       = "salary"
	TxTax          = "tax"
	TxConstruction = "construction"
	TxMaintenance  = "maintenance"
	TxOther        = "other"
)

var (
	ErrCompanyNotFound            = errors.New("company not found")
	ErrCompanyExists              = errors.New("you already have a company")
	ErrUnitNotFound               = errors.New("business unit not found")
	ErrListingNotFound            = errors.New("listing not found")
	ErrListingInactive            = errors.New("listing is no longer active")
	ErrRecipeNotFound             = errors.New("recipe not found")
	ErrQueueEntryNotFound         = errors.New("production queue entry not found")
	ErrInsufficientFunds          = errors.New("insufficient funds")
	ErrInsufficientInventory      = errors.New("insufficient inventory")
	ErrInsufficientQuantity       = errors.New("insufficient quantity available")
	ErrInsufficientInputInventory = errors.New("insufficient input inventory")
	ErrInvalidDestination         = errors.New("destination unit does not belong to your company")
	ErrSelfTrade                  = errors.New("cannot purchase from your own listing")
	ErrNotAuthorized              = errors.New("not authorized")
	ErrRecipeUnitTypeMismatch     = errors.New("recipe is not valid for this unit type")
	ErrDuplicateIdempotency       = errors.New("duplicate idempotency key")
	ErrTxConflict                 = errors.New("transaction conflict, please retry")
)

var blockedNameFragments = []string{
	"admin",
	"mod",
	"support",
	"shit",
	"fuck",
	"bitch",
	"nazi",
}

func ValidateUnitType(unitType string) error {
	if _, ok := unitBaseCostCents[strings.ToLower(strings.TrimSpace(unitType))]; !ok {
		return fmt.Errorf("unknown unit type: %s", unitType)
	}
	return nil
}

// ConstructionCostCents is baseCost[type] scaled by size/100.
func ConstructionCostCents(unitType string, size int32) (int64, error) {
	base, ok := unitBaseCostCents[strings.ToLower(strings.TrimSpace(unitType))]
	if !ok {
		return 0, fmt.Errorf("unknown unit type: %s", unitType)
	}
	if size < MinUnitSize || size > MaxUnitSize {
		return 0, fmt.Errorf("size must be between %d and %d", MinUnitSize, MaxUnitSize)
	}
	return base * int64(size) / 100, nil
}

func clampSize(size int32) int32 {
	if size == 0 {
		return 100
	}
	if size < MinUnitSize {
		return MinUnitSize
	}
	if size > MaxUnitSize {
		return MaxUnitSize
	}
	return size
}

func validateEntityName(name string) error {
	clean := strings.TrimSpace(name)
	if len(clean) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	if len(clean) > 128 {
		return fmt.Errorf("name too long (max 128 chars)")
	}
	lower := strings.ToLower(clean)
	for _, fragment := range blockedNameFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("name contains blocked content")
		}
	}
	return nil
}
