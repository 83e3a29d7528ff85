package game

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ListingTTL is how long a listing stays purchasable before the turn
// sweep returns the goods to the seller.
const ListingTTL = 7 * 24 * time.Hour

type listingRow struct {
	ID            int64
	CompanyID     int64
	UnitID        int64
	ResourceID    int64
	QuantityUnits int64
	QualityBps    int32
	PriceCents    int64
	AvgCostCents  int64
	CityID        int64
	IsActive      bool
	ExpiresAt     *time.Time
}

func (s *Service) CreateListing(ctx context.Context, in CreateListingInput) (ListingView, error) {
	var out ListingView
	if in.QuantityUnits <= 0 {
		return out, fmt.Errorf("quantity must be > 0")
	}
	if in.PricePerUnitCents <= 0 {
		return out, fmt.Errorf("price must be > 0")
	}

	err := s.settle(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "create_listing"); err != nil {
			return err
		}
		companyID, err := companyForUserTx(ctx, tx, in.UserID, false)
		if err != nil {
			return err
		}
		if _, err := ownedUnitTx(ctx, tx, in.UnitID, companyID); err != nil {
			return err
		}

		var cityID int64
		if err := tx.QueryRow(ctx, `
			SELECT city_id FROM game.business_units WHERE id = $1
		`, in.UnitID).Scan(&cityID); err != nil {
			return err
		}

		// Goods move out of the unit the moment they are listed, so a
		// seller cannot list the same stock twice.
		qualityBps, avgCost, err := debitInventoryTx(ctx, tx, in.UnitID, in.ResourceID, in.QuantityUnits)
		if err != nil {
			return err
		}

		expires := time.Now().Add(ListingTTL)
		err = tx.QueryRow(ctx, `
			INSERT INTO game.market_listings
			    (company_id, unit_id, resource_id, quantity_units, quality_bps, price_per_unit_cents, avg_cost_cents, city_id, is_active, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, $9)
			RETURNING id, created_at
		`, companyID, in.UnitID, in.ResourceID, in.QuantityUnits, qualityBps, in.PricePerUnitCents, avgCost, cityID, expires).Scan(&out.ID, &out.CreatedAt)
		if err != nil {
			return err
		}

		out.CompanyID = companyID
		out.UnitID = in.UnitID
		out.ResourceID = in.ResourceID
		out.Quantity = FormatQuantity(in.QuantityUnits)
		out.QualityBps = qualityBps
		out.PricePerUnit = FormatCents(in.PricePerUnitCents)
		out.CityID = cityID
		out.IsActive = true
		out.ExpiresAt = &expires
		return nil
	})
	return out, err
}

// Purchase settles a market buy: validate, move cash both ways, move
// goods, and close out the listing when it empties. Everything happens
// in one serializable transaction so a listing can never oversell and
// cash can never move without goods moving.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	var out PurchaseResult
	if in.QuantityUnits <= 0 {
		return out, fmt.Errorf("quantity must be > 0")
	}

	err := s.settle(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "purchase"); err != nil {
			return err
		}

		listing, err := lockListingTx(ctx, tx, in.ListingID)
		if err != nil {
			return err
		}
		if !listing.IsActive {
			return ErrListingInactive
		}
		// Expired listings reject lazily; the turn sweep persists the
		// deactivation and returns the goods.
		if listing.ExpiresAt != nil && listing.ExpiresAt.Before(time.Now()) {
			return ErrListingInactive
		}

		buyerID, err := companyForUserTx(ctx, tx, in.UserID, false)
		if err != nil {
			return err
		}
		if buyerID == listing.CompanyID {
			return ErrSelfTrade
		}
		if in.QuantityUnits > listing.QuantityUnits {
			return ErrInsufficientQuantity
		}

		total, err := totalCostCents(listing.PriceCents, in.QuantityUnits)
		if err != nil {
			return err
		}

		// Both company rows get locked in ascending id order so two
		// opposing purchases cannot deadlock.
		if err := lockCompaniesTx(ctx, tx, buyerID, listing.CompanyID); err != nil {
			return err
		}

		// Funds are checked before the destination so a request failing
		// both reports the funds problem. The balance guard inside
		// recordTransactionTx still backstops the debit itself.
		var buyerBalance int64
		if err := tx.QueryRow(ctx, `
			SELECT cash_cents FROM game.companies WHERE id = $1
		`, buyerID).Scan(&buyerBalance); err != nil {
			return err
		}
		if buyerBalance < total {
			return ErrInsufficientFunds
		}

		var destOwner int64
		err = tx.QueryRow(ctx, `
			SELECT company_id FROM game.business_units WHERE id = $1
		`, in.DestinationUnitID).Scan(&destOwner)
		if err == pgx.ErrNoRows {
			return ErrInvalidDestination
		}
		if err != nil {
			return err
		}
		if destOwner != buyerID {
			return ErrInvalidDestination
		}

		var resourceName string
		if err := tx.QueryRow(ctx, `
			SELECT name FROM game.resource_types WHERE id = $1
		`, listing.ResourceID).Scan(&resourceName); err != nil {
			return err
		}

		buyDesc := fmt.Sprintf("Bought %s x %s on the market", FormatQuantity(in.QuantityUnits), resourceName)
		buyerCash, err := recordTransactionTx(ctx, tx, buyerID, TxPurchase, -total, buyDesc, &in.DestinationUnitID, &listing.ResourceID)
		if err != nil {
			return err
		}
		sellDesc := fmt.Sprintf("Sold %s x %s on the market", FormatQuantity(in.QuantityUnits), resourceName)
		if _, err := recordTransactionTx(ctx, tx, listing.CompanyID, TxSale, total, sellDesc, &listing.UnitID, &listing.ResourceID); err != nil {
			return err
		}

		remaining := listing.QuantityUnits - in.QuantityUnits
		stillActive := remaining > 0
		if _, err := tx.Exec(ctx, `
			UPDATE game.market_listings
			SET quantity_units = $1, is_active = $2, updated_at = now()
			WHERE id = $3
		`, remaining, stillActive, listing.ID); err != nil {
			return err
		}

		if err := creditInventoryTx(ctx, tx, in.DestinationUnitID, listing.ResourceID, in.QuantityUnits, listing.QualityBps, listing.PriceCents); err != nil {
			return err
		}

		title := fmt.Sprintf("Sold %s x %s", FormatQuantity(in.QuantityUnits), resourceName)
		if err := notifyTx(ctx, tx, listing.CompanyID, "market_sale", title, fmt.Sprintf("Earned %s", FormatCents(total))); err != nil {
			return err
		}

		out.ListingID = listing.ID
		out.Quantity = FormatQuantity(in.QuantityUnits)
		out.TotalCost = FormatCents(total)
		out.BuyerCash = FormatCents(buyerCash)
		out.ListingRemaining = FormatQuantity(remaining)
		out.ListingActive = stillActive
		return nil
	})
	return out, err
}

func (s *Service) CancelListing(ctx context.Context, in CancelListingInput) error {
	return s.settle(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "cancel_listing"); err != nil {
			return err
		}
		listing, err := lockListingTx(ctx, tx, in.ListingID)
		if err != nil {
			return err
		}
		companyID, err := companyForUserTx(ctx, tx, in.UserID, false)
		if err != nil {
			return err
		}
		if listing.CompanyID != companyID {
			return ErrNotAuthorized
		}
		if !listing.IsActive {
			return ErrListingInactive
		}

		if _, err := tx.Exec(ctx, `
			UPDATE game.market_listings
			SET is_active = false, updated_at = now()
			WHERE id = $1
		`, listing.ID); err != nil {
			return err
		}
		if listing.QuantityUnits > 0 {
			return creditInventoryTx(ctx, tx, listing.UnitID, listing.ResourceID, listing.QuantityUnits, listing.QualityBps, listing.AvgCostCents)
		}
		return nil
	})
}

type ListingFilter struct {
	ResourceID int64
	CityID     int64
	CompanyID  int64
	All        bool // include inactive listings
}

func (s *Service) ListListings(ctx context.Context, f ListingFilter, limit int) ([]ListingView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT l.id, l.company_id, c.name, l.unit_id, l.resource_id, r.code,
		       l.quantity_units, l.quality_bps, l.price_per_unit_cents,
		       l.city_id, l.is_active, l.expires_at, l.created_at
		FROM game.market_listings l
		JOIN game.companies c ON c.id = l.company_id
		JOIN game.resource_types r ON r.id = l.resource_id
		WHERE 1=1
	`
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if !f.All {
		query += " AND l.is_active = true AND (l.expires_at IS NULL OR l.expires_at > now())"
	}
	if f.ResourceID > 0 {
		query += " AND l.resource_id = " + arg(f.ResourceID)
	}
	if f.CityID > 0 {
		query += " AND l.city_id = " + arg(f.CityID)
	}
	if f.CompanyID > 0 {
		query += " AND l.company_id = " + arg(f.CompanyID)
	}
	query += " ORDER BY l.price_per_unit_cents, l.id LIMIT " + arg(limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListingView
	for rows.Next() {
		var v ListingView
		var qty, price int64
		if err := rows.Scan(&v.ID, &v.CompanyID, &v.CompanyName, &v.UnitID, &v.ResourceID, &v.ResourceCode,
			&qty, &v.QualityBps, &price, &v.CityID, &v.IsActive, &v.ExpiresAt, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Quantity = FormatQuantity(qty)
		v.PricePerUnit = FormatCents(price)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Service) ListingByID(ctx context.Context, listingID int64) (ListingView, error) {
	var v ListingView
	var qty, price int64
	err := s.db.QueryRow(ctx, `
		SELECT l.id, l.company_id, c.name, l.unit_id, l.resource_id, r.code,
		       l.quantity_units, l.quality_bps, l.price_per_unit_cents,
		       l.city_id, l.is_active, l.expires_at, l.created_at
		FROM game.market_listings l
		JOIN game.companies c ON c.id = l.company_id
		JOIN game.resource_types r ON r.id = l.resource_id
		WHERE l.id = $1
	`, listingID).Scan(&v.ID, &v.CompanyID, &v.CompanyName, &v.UnitID, &v.ResourceID, &v.ResourceCode,
		&qty, &v.QualityBps, &price, &v.CityID, &v.IsActive, &v.ExpiresAt, &v.CreatedAt)
	if err == pgx.ErrNoRows {
		return v, ErrListingNotFound
	}
	if err != nil {
		return v, err
	}
	v.Quantity = FormatQuantity(qty)
	v.PricePerUnit = FormatCents(price)
	return v, nil
}

func lockListingTx(ctx context.Context, tx pgx.Tx, listingID int64) (listingRow, error) {
	var l listingRow
	err := tx.QueryRow(ctx, `
		SELECT id, company_id, unit_id, resource_id, quantity_units, quality_bps,
		       price_per_unit_cents, avg_cost_cents, city_id, is_active, expires_at
		FROM game.market_listings
		WHERE id = $1
		FOR UPDATE
	`, listingID).Scan(&l.ID, &l.CompanyID, &l.UnitID, &l.ResourceID, &l.QuantityUnits, &l.QualityBps,
		&l.PriceCents, &l.AvgCostCents, &l.CityID, &l.IsActive, &l.ExpiresAt)
	if err == pgx.ErrNoRows {
		return l, ErrListingNotFound
	}
	return l, err
}

func lockCompaniesTx(ctx context.Context, tx pgx.Tx, a, b int64) error {
	if a > b {
		a, b = b, a
	}
	rows, err := tx.Query(ctx, `
		SELECT id FROM game.companies WHERE id IN ($1, $2) ORDER BY id FOR UPDATE
	`, a, b)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
	}
	return rows.Err()
}

// expireListingTx deactivates a past-TTL listing and hands the unsold
// goods back to the seller's unit at their original cost basis.
func expireListingTx(ctx context.Context, tx pgx.Tx, l listingRow) error {
	if _, err := tx.Exec(ctx, `
		UPDATE game.market_listings
		SET is_active = false, updated_at = now()
		WHERE id = $1
	`, l.ID); err != nil {
		return err
	}
	if l.QuantityUnits > 0 {
		if err := creditInventoryTx(ctx, tx, l.UnitID, l.ResourceID, l.QuantityUnits, l.QualityBps, l.AvgCostCents); err != nil {
			return err
		}
	}
	return notifyTx(ctx, tx, l.CompanyID, "listing_expired", "Market listing expired",
		fmt.Sprintf("Listing #%d expired, %s returned to your unit", l.ID, FormatQuantity(l.QuantityUnits)))
}
