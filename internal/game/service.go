package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

type Service struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewService(db *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, log: logger}
}

// settle runs fn inside a serializable transaction, retrying on
// serialization failures with doubling backoff. Every balance-changing
// operation in the game goes through here so concurrent settlements on
// the same company or listing serialize cleanly.
func (s *Service) settle(ctx context.Context, fn func(tx pgx.Tx) error) error {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func (s *Service) EnsurePlayer(ctx context.Context, userID, email, username string) error {
	if strings.TrimSpace(username) == "" {
		username = usernameFromEmail(email)
	}
	username = strings.TrimSpace(username)
	if !usernameRE.MatchString(username) {
		username = sanitizeUsername(usernameFromEmail(email))
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO users.profiles (user_id, email, username)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, email, username)
	return err
}

func (s *Service) CreateCompany(ctx context.Context, in CreateCompanyInput) (CompanyView, error) {
	var out CompanyView
	in.Name = strings.TrimSpace(in.Name)
	if err := validateEntityName(in.Name); err != nil {
		return out, err
	}

	err := s.settle(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "create_company"); err != nil {
			return err
		}

		var existing int64
		err := tx.QueryRow(ctx, `
			SELECT id FROM game.companies WHERE user_id = $1
		`, in.UserID).Scan(&existing)
		if err == nil {
			return ErrCompanyExists
		}
		if err != pgx.ErrNoRows {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO game.companies (user_id, name, description, cash_cents, reputation)
			VALUES ($1, $2, $3, 0, $4)
			RETURNING id, founded
		`, in.UserID, in.Name, in.Description, DefaultReputation).Scan(&out.ID, &out.Founded)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrCompanyExists
			}
			return err
		}

		cash, err := recordTransactionTx(ctx, tx, out.ID, TxOther, StartingCashCents, "Founding capital", nil, nil)
		if err != nil {
			return err
		}
		if err := notifyTx(ctx, tx, out.ID, "welcome", "Welcome to Magnate",
			fmt.Sprintf("%s is open for business with %s in founding capital.", in.Name, FormatCents(cash))); err != nil {
			return err
		}
		out.Name = in.Name
		out.Description = in.Description
		out.Cash = FormatCents(cash)
		out.Reputation = DefaultReputation
		return nil
	})
	return out, err
}

func (s *Service) MyCompany(ctx context.Context, userID string) (CompanyView, error) {
	var out CompanyView
	var cash int64
	err := s.db.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), cash_cents, reputation, founded
		FROM game.companies
		WHERE user_id = $1
	`, userID).Scan(&out.ID, &out.Name, &out.Description, &cash, &out.Reputation, &out.Founded)
	if err == pgx.ErrNoRows {
		return out, ErrCompanyNotFound
	}
	if err != nil {
		return out, err
	}
	out.Cash = FormatCents(cash)
	return out, nil
}

func (s *Service) CompanyByID(ctx context.Context, companyID int64) (CompanyView, error) {
	var out CompanyView
	var cash int64
	err := s.db.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), cash_cents, reputation, founded
		FROM game.companies
		WHERE id = $1
	`, companyID).Scan(&out.ID, &out.Name, &out.Description, &cash, &out.Reputation, &out.Founded)
	if err == pgx.ErrNoRows {
		return out, ErrCompanyNotFound
	}
	if err != nil {
		return out, err
	}
	out.Cash = FormatCents(cash)
	return out, nil
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	rows, err := s.db.Query(ctx, `
		SELECT name, cash_cents, reputation
		FROM game.companies
		ORDER BY cash_cents DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	var rank int64 = 1
	for rows.Next() {
		var r LeaderboardRow
		var cash int64
		if err := rows.Scan(&r.Company, &cash, &r.Reputation); err != nil {
			return nil, err
		}
		r.Rank = rank
		r.Cash = FormatCents(cash)
		rank++
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Service) CreateUnit(ctx context.Context, in CreateUnitInput) (UnitView, error) {
	var out UnitView
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Name = strings.TrimSpace(in.Name)
	if err := ValidateUnitType(in.Type); err != nil {
		return out, err
	}
	if err := validateEntityName(in.Name); err != nil {
		return out, err
	}
	size := clampSize(in.Size)
	cost, err := ConstructionCostCents(in.Type, size)
	if err != nil {
		return out, err
	}

	err = s.settle(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "create_unit"); err != nil {
			return err
		}
		companyID, err := companyForUserTx(ctx, tx, in.UserID, true)
		if err != nil {
			return err
		}

		var cityID int64
		if err := tx.QueryRow(ctx, `SELECT id FROM game.cities WHERE id = $1`, in.CityID).Scan(&cityID); err != nil {
			if err == pgx.ErrNoRows {
				return fmt.Errorf("city %d not found", in.CityID)
			}
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO game.business_units
			    (company_id, unit_type, name, city_id, size, condition, efficiency_bps, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, true)
			RETURNING id
		`, companyID, in.Type, in.Name, cityID, size, DefaultCondition, DefaultEfficiencyBps).Scan(&out.ID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.unit_employees (unit_id, count, salary_cents, morale)
			VALUES ($1, 0, $2, $3)
		`, out.ID, DefaultSalaryCents, DefaultMorale); err != nil {
			return err
		}

		desc := fmt.Sprintf("Built %s %q (size %d)", in.Type, in.Name, size)
		if _, err := recordTransactionTx(ctx, tx, companyID, TxConstruction, -cost, desc, &out.ID, nil); err != nil {
			return err
		}

		out.CompanyID = companyID
		out.Type = in.Type
		out.Name = in.Name
		out.CityID = cityID
		out.Size = size
		out.Condition = DefaultCondition
		out.EfficiencyBps = DefaultEfficiencyBps
		out.IsActive = true
		return nil
	})
	return out, err
}

func (s *Service) UpdateUnit(ctx context.Context, in UpdateUnitInput) error {
	if in.Name != nil {
		if err := validateEntityName(*in.Name); err != nil {
			return err
		}
	}
	return s.settle(ctx, func(tx pgx.Tx) error {
		companyID, err := companyForUserTx(ctx, tx, in.UserID, false)
		if err != nil {
			return err
		}
		if _, err := ownedUnitTx(ctx, tx, in.UnitID, companyID); err != nil {
			return err
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if _, err := tx.Exec(ctx, `
				UPDATE game.business_units SET name = $1, updated_at = now() WHERE id = $2
			`, name, in.UnitID); err != nil {
				return err
			}
		}
		if in.IsActive != nil {
			if _, err := tx.Exec(ctx, `
				UPDATE game.business_units SET is_active = $1, updated_at = now() WHERE id = $2
			`, *in.IsActive, in.UnitID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) SetUnitEmployees(ctx context.Context, in SetEmployeesInput) error {
	if in.Count < 0 {
		return fmt.Errorf("employee count must be >= 0")
	}
	if in.SalaryCents < 0 {
		return fmt.Errorf("salary must be >= 0")
	}
	return s.settle(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "set_employees"); err != nil {
			return err
		}
		companyID, err := companyForUserTx(ctx, tx, in.UserID, false)
		if err != nil {
			return err
		}
		if _, err := ownedUnitTx(ctx, tx, in.UnitID, companyID); err != nil {
			return err
		}
		salary := in.SalaryCents
		if salary == 0 {
			salary = DefaultSalaryCents
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO game.unit_employees (unit_id, count, salary_cents, morale)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (unit_id) DO UPDATE
			SET count = $2, salary_cents = $3, updated_at = now()
		`, in.UnitID, in.Count, salary, DefaultMorale)
		return err
	})
}

func (s *Service) ListUnits(ctx context.Context, userID string) ([]UnitView, error) {
	companyID, err := s.companyForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, company_id, unit_type, name, city_id, size, condition, efficiency_bps, is_active
		FROM game.business_units
		WHERE company_id = $1
		ORDER BY id
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UnitView
	for rows.Next() {
		var u UnitView
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.Type, &u.Name, &u.CityID, &u.Size, &u.Condition, &u.EfficiencyBps, &u.IsActive); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Service) UnitDetail(ctx context.Context, userID string, unitID int64) (UnitView, EmployeeView, []InventoryView, error) {
	var unit UnitView
	var emp EmployeeView
	companyID, err := s.companyForUser(ctx, userID)
	if err != nil {
		return unit, emp, nil, err
	}
	err = s.db.QueryRow(ctx, `
		SELECT id, company_id, unit_type, name, city_id, size, condition, efficiency_bps, is_active
		FROM game.business_units
		WHERE id = $1 AND company_id = $2
	`, unitID, companyID).Scan(&unit.ID, &unit.CompanyID, &unit.Type, &unit.Name, &unit.CityID, &unit.Size, &unit.Condition, &unit.EfficiencyBps, &unit.IsActive)
	if err == pgx.ErrNoRows {
		return unit, emp, nil, ErrUnitNotFound
	}
	if err != nil {
		return unit, emp, nil, err
	}

	var salary int64
	err = s.db.QueryRow(ctx, `
		SELECT unit_id, count, salary_cents, morale
		FROM game.unit_employees
		WHERE unit_id = $1
	`, unitID).Scan(&emp.UnitID, &emp.Count, &salary, &emp.Morale)
	if err != nil && err != pgx.ErrNoRows {
		return unit, emp, nil, err
	}
	emp.UnitID = unitID
	emp.Salary = FormatCents(salary)

	inv, err := s.unitInventory(ctx, unitID)
	return unit, emp, inv, err
}

func (s *Service) unitInventory(ctx context.Context, unitID int64) ([]InventoryView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT i.resource_id, r.code, r.name, i.quantity_units, i.quality_bps, i.avg_cost_cents
		FROM game.inventory i
		JOIN game.resource_types r ON r.id = i.resource_id
		WHERE i.unit_id = $1 AND i.quantity_units > 0
		ORDER BY r.code
	`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InventoryView
	for rows.Next() {
		var v InventoryView
		var qty, avgCost int64
		if err := rows.Scan(&v.ResourceID, &v.ResourceCode, &v.ResourceName, &qty, &v.QualityBps, &avgCost); err != nil {
			return nil, err
		}
		v.Quantity = FormatQuantity(qty)
		v.AverageCost = FormatCents(avgCost)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]TransactionView, error) {
	companyID, err := s.companyForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, tx_type, amount_cents, COALESCE(description, ''), related_unit_id, related_resource_id, created_at
		FROM game.transactions
		WHERE company_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, companyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionView
	for rows.Next() {
		var t TransactionView
		var amount int64
		if err := rows.Scan(&t.ID, &t.Type, &amount, &t.Description, &t.RelatedUnitID, &t.RelatedResourceID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Amount = FormatCents(amount)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Service) Cities(ctx context.Context) ([]CityView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, country, population, wealth_index_bps, tax_rate_bps
		FROM game.cities
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CityView
	for rows.Next() {
		var c CityView
		var wealthBps, taxBps int32
		if err := rows.Scan(&c.ID, &c.Name, &c.Country, &c.Population, &wealthBps, &taxBps); err != nil {
			return nil, err
		}
		c.WealthIndex = FormatBps(wealthBps)
		c.TaxRate = FormatBps(taxBps)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Service) Resources(ctx context.Context) ([]ResourceView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, code, name, category, base_price_cents, unit
		FROM game.resource_types
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResourceView
	for rows.Next() {
		var r ResourceView
		var price int64
		if err := rows.Scan(&r.ID, &r.Code, &r.Name, &r.Category, &price, &r.Unit); err != nil {
			return nil, err
		}
		r.BasePrice = FormatCents(price)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Service) Notifications(ctx context.Context, userID string, unreadOnly bool) ([]NotificationView, error) {
	query := `
		SELECT id, kind, title, COALESCE(message, ''), is_read, created_at
		FROM game.notifications
		WHERE user_id = $1
	`
	if unreadOnly {
		query += " AND is_read = false"
	}
	query += " ORDER BY id DESC LIMIT 100"
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NotificationView
	for rows.Next() {
		var n NotificationView
		if err := rows.Scan(&n.ID, &n.Kind, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID string, notificationID int64) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE game.notifications
		SET is_read = true
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotAuthorized
	}
	return nil
}

func (s *Service) GameState(ctx context.Context) (GameStateView, error) {
	var out GameStateView
	err := s.db.QueryRow(ctx, `
		SELECT current_turn, turn_duration_seconds, last_turn_at
		FROM game.state
		WHERE id = 1
	`).Scan(&out.CurrentTurn, &out.TurnDuration, &out.LastTurnAt)
	if err == pgx.ErrNoRows {
		out.TurnDuration = DefaultTurnSeconds
		return out, nil
	}
	return out, err
}

func (s *Service) companyForUser(ctx context.Context, userID string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `SELECT id FROM game.companies WHERE user_id = $1`, userID).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, ErrCompanyNotFound
	}
	return id, err
}

// companyForUserTx resolves the caller's company inside a settlement.
// With lock set, the company row is locked so concurrent cash movements
// serialize on it.
func companyForUserTx(ctx context.Context, tx pgx.Tx, userID string, lock bool) (int64, error) {
	query := `SELECT id FROM game.companies WHERE user_id = $1`
	if lock {
		query += " FOR UPDATE"
	}
	var id int64
	err := tx.QueryRow(ctx, query, userID).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, ErrCompanyNotFound
	}
	return id, err
}

func ownedUnitTx(ctx context.Context, tx pgx.Tx, unitID, companyID int64) (string, error) {
	var owner int64
	var unitType string
	err := tx.QueryRow(ctx, `
		SELECT company_id, unit_type
		FROM game.business_units
		WHERE id = $1
	`, unitID).Scan(&owner, &unitType)
	if err == pgx.ErrNoRows {
		return "", ErrUnitNotFound
	}
	if err != nil {
		return "", err
	}
	if owner != companyID {
		return "", ErrNotAuthorized
	}
	return unitType, nil
}

// recordTransactionTx moves cash and appends the matching ledger row in
// one step, so the sum of a company's transactions always equals its
// cash balance. A move that would take the balance negative fails the
// whole settlement.
func recordTransactionTx(ctx context.Context, tx pgx.Tx, companyID int64, txType string, amountCents int64, description string, relatedUnitID, relatedResourceID *int64) (int64, error) {
	var cash int64
	err := tx.QueryRow(ctx, `
		UPDATE game.companies
		SET cash_cents = cash_cents + $1, updated_at = now()
		WHERE id = $2
		RETURNING cash_cents
	`, amountCents, companyID).Scan(&cash)
	if err == pgx.ErrNoRows {
		return 0, ErrCompanyNotFound
	}
	if err != nil {
		return 0, err
	}
	if cash < 0 {
		return 0, ErrInsufficientFunds
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO game.transactions (company_id, tx_type, amount_cents, description, related_unit_id, related_resource_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, companyID, txType, amountCents, description, relatedUnitID, relatedResourceID)
	return cash, err
}

// creditInventoryTx adds stock to a unit, folding the incoming batch
// into the existing row with quantity-weighted quality and unit cost.
func creditInventoryTx(ctx context.Context, tx pgx.Tx, unitID, resourceID, qtyUnits int64, qualityBps int32, unitCostCents int64) error {
	if qtyUnits <= 0 {
		return fmt.Errorf("credit quantity must be > 0")
	}
	var oldQty, oldCost int64
	var oldQuality int32
	err := tx.QueryRow(ctx, `
		SELECT quantity_units, quality_bps, avg_cost_cents
		FROM game.inventory
		WHERE unit_id = $1 AND resource_id = $2
		FOR UPDATE
	`, unitID, resourceID).Scan(&oldQty, &oldQuality, &oldCost)
	if err != nil && err != pgx.ErrNoRows {
		return err
	}
	if err == pgx.ErrNoRows {
		_, err = tx.Exec(ctx, `
			INSERT INTO game.inventory (unit_id, resource_id, quantity_units, quality_bps, avg_cost_cents)
			VALUES ($1, $2, $3, $4, $5)
		`, unitID, resourceID, qtyUnits, qualityBps, unitCostCents)
		return err
	}

	newQty, newQuality, newCost, err := mergeStock(oldQty, oldQuality, oldCost, qtyUnits, qualityBps, unitCostCents)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE game.inventory
		SET quantity_units = $1, quality_bps = $2, avg_cost_cents = $3, updated_at = now()
		WHERE unit_id = $4 AND resource_id = $5
	`, newQty, newQuality, newCost, unitID, resourceID)
	return err
}

// debitInventoryTx removes stock from a unit, leaving quality and
// average cost untouched. Returns the row it debited so sellers can
// carry quality onto a listing.
func debitInventoryTx(ctx context.Context, tx pgx.Tx, unitID, resourceID, qtyUnits int64) (qualityBps int32, avgCostCents int64, err error) {
	if qtyUnits <= 0 {
		return 0, 0, fmt.Errorf("debit quantity must be > 0")
	}
	var oldQty int64
	err = tx.QueryRow(ctx, `
		SELECT quantity_units, quality_bps, avg_cost_cents
		FROM game.inventory
		WHERE unit_id = $1 AND resource_id = $2
		FOR UPDATE
	`, unitID, resourceID).Scan(&oldQty, &qualityBps, &avgCostCents)
	if err == pgx.ErrNoRows {
		return 0, 0, ErrInsufficientInventory
	}
	if err != nil {
		return 0, 0, err
	}
	if oldQty < qtyUnits {
		return 0, 0, ErrInsufficientInventory
	}
	_, err = tx.Exec(ctx, `
		UPDATE game.inventory
		SET quantity_units = quantity_units - $1, updated_at = now()
		WHERE unit_id = $2 AND resource_id = $3
	`, qtyUnits, unitID, resourceID)
	return qualityBps, avgCostCents, err
}

func notifyTx(ctx context.Context, tx pgx.Tx, companyID int64, kind, title, message string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO game.notifications (user_id, kind, title, message)
		SELECT user_id, $2, $3, $4
		FROM game.companies
		WHERE id = $1
	`, companyID, kind, title, message)
	return err
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, userID, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO game.idempotency_keys (user_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func usernameFromEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	parts := strings.Split(email, "@")
	if len(parts) == 0 || parts[0] == "" {
		return "player"
	}
	return sanitizeUsername(parts[0])
}

func sanitizeUsername(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "player"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	res := strings.Trim(string(out), "_")
	if len(res) < 3 {
		res = "player_" + res
	}
	if len(res) > 24 {
		res = res[:24]
	}
	return res
}
