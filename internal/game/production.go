package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Gameplay tuning for the turn engine.
const (
	// LaborRateCents is charged per labor point per batch when a job starts.
	LaborRateCents = int64(10) * CentsPerDollar

	// MaintenanceRateCents is charged per point of unit size each turn.
	MaintenanceRateCents = int64(10)

	minCondition         = int32(10)
	moraleUnpaidMalus    = int32(10)
	conditionWearPerTurn = int32(1)
)

// progressPerTurnBps is how much of a job finishes each turn. Rounded
// up so a job with timeRequired N always completes after exactly N turns.
func progressPerTurnBps(timeRequired int32) int32 {
	if timeRequired <= 1 {
		return QualityScaleBps
	}
	return (QualityScaleBps + timeRequired - 1) / timeRequired
}

// refundUnits is how much of an input comes back when a job is
// cancelled: the fraction of work not yet done, rounded down.
func refundUnits(progressBps int32, consumedUnits int64) int64 {
	if progressBps >= QualityScaleBps {
		return 0
	}
	if progressBps < 0 {
		progressBps = 0
	}
	return consumedUnits * int64(QualityScaleBps-progressBps) / int64(QualityScaleBps)
}

func (s *Service) StartProduction(ctx context.Context, in StartProductionInput) (QueueEntryView, error) {
	var out QueueEntryView
	if in.Batches <= 0 {
		return out, fmt.Errorf("batches must be > 0")
	}

	err := s.settle(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "start_production"); err != nil {
			return err
		}
		companyID, err := companyForUserTx(ctx, tx, in.UserID, true)
		if err != nil {
			return err
		}
		unitType, err := ownedUnitTx(ctx, tx, in.UnitID, companyID)
		if err != nil {
			return err
		}
		if !producerUnitTypes[unitType] {
			return ErrRecipeUnitTypeMismatch
		}
		var active bool
		if err := tx.QueryRow(ctx, `
			SELECT is_active FROM game.business_units WHERE id = $1
		`, in.UnitID).Scan(&active); err != nil {
			return err
		}
		if !active {
			return fmt.Errorf("unit is not active")
		}

		var recipeUnitType, recipeName string
		var outputResource int64
		var outputQty int64
		var labor, timeRequired int32
		err = tx.QueryRow(ctx, `
			SELECT unit_type, name, output_resource_id, output_quantity_units, labor_required, time_required_turns
			FROM game.production_recipes
			WHERE id = $1
		`, in.RecipeID).Scan(&recipeUnitType, &recipeName, &outputResource, &outputQty, &labor, &timeRequired)
		if err == pgx.ErrNoRows {
			return ErrRecipeNotFound
		}
		if err != nil {
			return err
		}
		if recipeUnitType != unitType {
			return ErrRecipeUnitTypeMismatch
		}

		// Inputs are consumed up front. Their acquisition cost plus the
		// labor bill becomes the cost basis of the finished goods.
		var inputCost int64
		inputRows, err := tx.Query(ctx, `
			SELECT resource_id, quantity_units
			FROM game.recipe_inputs
			WHERE recipe_id = $1
			ORDER BY resource_id
		`, in.RecipeID)
		if err != nil {
			return err
		}
		type need struct {
			resourceID int64
			qty        int64
		}
		var needs []need
		for inputRows.Next() {
			var n need
			if err := inputRows.Scan(&n.resourceID, &n.qty); err != nil {
				inputRows.Close()
				return err
			}
			needs = append(needs, n)
		}
		inputRows.Close()
		if err := inputRows.Err(); err != nil {
			return err
		}

		// Each input's debited quality and cost basis is remembered on
		// the queue entry so a cancel can return the goods as they were,
		// not as brand-new stock.
		type consumed struct {
			resourceID int64
			qty        int64
			qualityBps int32
			unitCost   int64
		}
		var spentInputs []consumed
		for _, n := range needs {
			want := n.qty * in.Batches
			quality, avgCost, err := debitInventoryTx(ctx, tx, in.UnitID, n.resourceID, want)
			if errors.Is(err, ErrInsufficientInventory) {
				return ErrInsufficientInputInventory
			}
			if err != nil {
				return err
			}
			spent, err := totalCostCents(avgCost, want)
			if err != nil {
				return err
			}
			inputCost += spent
			spentInputs = append(spentInputs, consumed{
				resourceID: n.resourceID,
				qty:        want,
				qualityBps: quality,
				unitCost:   avgCost,
			})
		}

		laborCost := int64(labor) * in.Batches * LaborRateCents
		if laborCost > 0 {
			desc := fmt.Sprintf("Labor for %s x%d", recipeName, in.Batches)
			if _, err := recordTransactionTx(ctx, tx, companyID, TxSalary, -laborCost, desc, &in.UnitID, &outputResource); err != nil {
				return err
			}
		}

		var currentTurn int64
		if err := tx.QueryRow(ctx, `
			SELECT current_turn FROM game.state WHERE id = 1
		`).Scan(&currentTurn); err != nil && err != pgx.ErrNoRows {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO game.production_queue
			    (unit_id, recipe_id, batches, progress_bps, input_cost_cents, is_active, started_turn)
			VALUES ($1, $2, $3, 0, $4, true, $5)
			RETURNING id, created_at
		`, in.UnitID, in.RecipeID, in.Batches, inputCost+laborCost, currentTurn).Scan(&out.ID, &out.CreatedAt)
		if err != nil {
			return err
		}

		for _, c := range spentInputs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO game.production_queue_inputs
				    (queue_id, resource_id, quantity_units, quality_bps, unit_cost_cents)
				VALUES ($1, $2, $3, $4, $5)
			`, out.ID, c.resourceID, c.qty, c.qualityBps, c.unitCost); err != nil {
				return err
			}
		}

		out.UnitID = in.UnitID
		out.RecipeID = in.RecipeID
		out.Description = recipeName
		out.Batches = in.Batches
		out.ProgressBps = 0
		out.IsActive = true
		out.StartedTurn = currentTurn
		return nil
	})
	return out, err
}

func (s *Service) CancelProduction(ctx context.Context, in CancelProductionInput) error {
	return s.settle(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "cancel_production"); err != nil {
			return err
		}
		companyID, err := companyForUserTx(ctx, tx, in.UserID, false)
		if err != nil {
			return err
		}

		var unitID int64
		var progress int32
		var activeEntry bool
		err = tx.QueryRow(ctx, `
			SELECT unit_id, progress_bps, is_active
			FROM game.production_queue
			WHERE id = $1
			FOR UPDATE
		`, in.QueueID).Scan(&unitID, &progress, &activeEntry)
		if err == pgx.ErrNoRows {
			return ErrQueueEntryNotFound
		}
		if err != nil {
			return err
		}
		if _, err := ownedUnitTx(ctx, tx, unitID, companyID); err != nil {
			return err
		}
		if !activeEntry {
			return ErrQueueEntryNotFound
		}

		if _, err := tx.Exec(ctx, `
			UPDATE game.production_queue
			SET is_active = false, updated_at = now()
			WHERE id = $1
		`, in.QueueID); err != nil {
			return err
		}

		// Unprocessed inputs come back at the quality and cost basis they
		// were debited with; labor and the worked fraction are sunk.
		rows, err := tx.Query(ctx, `
			SELECT resource_id, quantity_units, quality_bps, unit_cost_cents
			FROM game.production_queue_inputs
			WHERE queue_id = $1
			ORDER BY resource_id
		`, in.QueueID)
		if err != nil {
			return err
		}
		type refund struct {
			resourceID int64
			qty        int64
			qualityBps int32
			unitCost   int64
		}
		var refunds []refund
		for rows.Next() {
			var r refund
			if err := rows.Scan(&r.resourceID, &r.qty, &r.qualityBps, &r.unitCost); err != nil {
				rows.Close()
				return err
			}
			refunds = append(refunds, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, r := range refunds {
			back := refundUnits(progress, r.qty)
			if back <= 0 {
				continue
			}
			if err := creditInventoryTx(ctx, tx, unitID, r.resourceID, back, r.qualityBps, r.unitCost); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) Recipes(ctx context.Context, unitType string) ([]RecipeView, error) {
	query := `
		SELECT id, unit_type, name, output_resource_id, output_quantity_units, labor_required, time_required_turns
		FROM game.production_recipes
	`
	args := []any{}
	if unitType != "" {
		query += " WHERE unit_type = $1"
		args = append(args, unitType)
	}
	query += " ORDER BY id"
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecipeView
	for rows.Next() {
		var r RecipeView
		var outputQty int64
		if err := rows.Scan(&r.ID, &r.UnitType, &r.Description, &r.OutputResource, &outputQty, &r.LaborRequired, &r.TimeRequired); err != nil {
			return nil, err
		}
		r.OutputQuantity = FormatQuantity(outputQty)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		inputs, err := s.recipeInputs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Inputs = inputs
	}
	return out, nil
}

func (s *Service) recipeInputs(ctx context.Context, recipeID int64) ([]RecipeInputView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT resource_id, quantity_units
		FROM game.recipe_inputs
		WHERE recipe_id = $1
		ORDER BY resource_id
	`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecipeInputView
	for rows.Next() {
		var v RecipeInputView
		var qty int64
		if err := rows.Scan(&v.ResourceID, &qty); err != nil {
			return nil, err
		}
		v.Quantity = FormatQuantity(qty)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Service) ProductionQueue(ctx context.Context, userID string, activeOnly bool) ([]QueueEntryView, error) {
	companyID, err := s.companyForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT q.id, q.unit_id, q.recipe_id, r.name, q.batches, q.progress_bps, q.is_active, q.started_turn, q.created_at
		FROM game.production_queue q
		JOIN game.business_units u ON u.id = q.unit_id
		JOIN game.production_recipes r ON r.id = q.recipe_id
		WHERE u.company_id = $1
	`
	if activeOnly {
		query += " AND q.is_active = true"
	}
	query += " ORDER BY q.id DESC LIMIT 100"
	rows, err := s.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueueEntryView
	for rows.Next() {
		var v QueueEntryView
		if err := rows.Scan(&v.ID, &v.UnitID, &v.RecipeID, &v.Description, &v.Batches, &v.ProgressBps, &v.IsActive, &v.StartedTurn, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// TickDue advances the game by one turn when the current turn's
// wall-clock duration has elapsed. The worker calls this on a short
// interval; most calls are no-ops.
func (s *Service) TickDue(ctx context.Context) (int64, bool, error) {
	var currentTurn, durationSec int64
	var lastTurnAt *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT current_turn, turn_duration_seconds, last_turn_at
		FROM game.state
		WHERE id = 1
	`).Scan(&currentTurn, &durationSec, &lastTurnAt)
	if err == pgx.ErrNoRows {
		return 0, false, fmt.Errorf("game state is not initialized")
	}
	if err != nil {
		return 0, false, err
	}
	if lastTurnAt != nil && time.Since(*lastTurnAt) < time.Duration(durationSec)*time.Second {
		return currentTurn, false, nil
	}
	next := currentTurn + 1
	if err := s.AdvanceTurn(ctx, next); err != nil {
		return currentTurn, false, err
	}
	return next, true, nil
}

// AdvanceTurn applies one game turn: production progress, payroll,
// maintenance and wear, and the expired-listing sweep. Passing a turn
// number the game has already reached is a no-op, so retries and
// concurrent workers are safe.
func (s *Service) AdvanceTurn(ctx context.Context, turnNumber int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var currentTurn int64
	if err := tx.QueryRow(ctx, `
		SELECT current_turn FROM game.state WHERE id = 1 FOR UPDATE
	`).Scan(&currentTurn); err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("game state is not initialized")
		}
		return err
	}
	if turnNumber <= currentTurn {
		return nil
	}
	if turnNumber != currentTurn+1 {
		return fmt.Errorf("turn %d is not next (current %d)", turnNumber, currentTurn)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE game.state
		SET current_turn = $1, last_turn_at = now()
		WHERE id = 1
	`, turnNumber); err != nil {
		return err
	}

	if err := advanceProductionTx(ctx, tx, turnNumber); err != nil {
		return err
	}
	if err := applyUpkeepTx(ctx, tx); err != nil {
		return err
	}
	if err := sweepExpiredListingsTx(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info("turn advanced", "turn", turnNumber)
	return nil
}

func advanceProductionTx(ctx context.Context, tx pgx.Tx, turnNumber int64) error {
	rows, err := tx.Query(ctx, `
		SELECT q.id, q.unit_id, q.batches, q.progress_bps, q.input_cost_cents,
		       r.id, r.name, r.output_resource_id, r.output_quantity_units, r.time_required_turns,
		       u.company_id, u.efficiency_bps
		FROM game.production_queue q
		JOIN game.production_recipes r ON r.id = q.recipe_id
		JOIN game.business_units u ON u.id = q.unit_id
		WHERE q.is_active = true AND u.is_active = true
		ORDER BY q.id
		FOR UPDATE OF q
	`)
	if err != nil {
		return err
	}
	type job struct {
		id, unitID, batches, inputCost      int64
		progress                            int32
		recipeID, outputResource, outputQty int64
		recipeName                          string
		timeRequired                        int32
		companyID                           int64
		efficiencyBps                       int32
	}
	var jobs []job
	for rows.Next() {
		var j job
		if err := rows.Scan(&j.id, &j.unitID, &j.batches, &j.progress, &j.inputCost,
			&j.recipeID, &j.recipeName, &j.outputResource, &j.outputQty, &j.timeRequired,
			&j.companyID, &j.efficiencyBps); err != nil {
			rows.Close()
			return err
		}
		jobs = append(jobs, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, j := range jobs {
		next := j.progress + progressPerTurnBps(j.timeRequired)
		if next < QualityScaleBps {
			if _, err := tx.Exec(ctx, `
				UPDATE game.production_queue
				SET progress_bps = $1, updated_at = now()
				WHERE id = $2
			`, next, j.id); err != nil {
				return err
			}
			continue
		}

		if _, err := tx.Exec(ctx, `
			UPDATE game.production_queue
			SET progress_bps = $1, is_active = false, completed_turn = $2, updated_at = now()
			WHERE id = $3
		`, QualityScaleBps, turnNumber, j.id); err != nil {
			return err
		}

		produced := j.outputQty * j.batches
		quality := j.efficiencyBps
		if quality > QualityScaleBps {
			quality = QualityScaleBps
		}
		unitCost, err := perUnitCents(j.inputCost, produced)
		if err != nil {
			return err
		}
		if err := creditInventoryTx(ctx, tx, j.unitID, j.outputResource, produced, quality, unitCost); err != nil {
			return err
		}
		title := fmt.Sprintf("Production finished: %s", j.recipeName)
		msg := fmt.Sprintf("%s units ready at unit #%d", FormatQuantity(produced), j.unitID)
		if err := notifyTx(ctx, tx, j.companyID, "production_done", title, msg); err != nil {
			return err
		}
	}
	return nil
}

// applyUpkeepTx charges payroll and maintenance for every active unit
// and applies wear. A company short on cash pays what it can; unpaid
// staff lose morale.
func applyUpkeepTx(ctx context.Context, tx pgx.Tx) error {
	rows, err := tx.Query(ctx, `
		SELECT u.id, u.company_id, u.size, COALESCE(e.count, 0), COALESCE(e.salary_cents, 0)
		FROM game.business_units u
		LEFT JOIN game.unit_employees e ON e.unit_id = u.id
		WHERE u.is_active = true
		ORDER BY u.company_id, u.id
	`)
	if err != nil {
		return err
	}
	type upkeep struct {
		unitID, companyID int64
		size              int32
		count             int32
		salaryCents       int64
	}
	var units []upkeep
	for rows.Next() {
		var u upkeep
		if err := rows.Scan(&u.unitID, &u.companyID, &u.size, &u.count, &u.salaryCents); err != nil {
			rows.Close()
			return err
		}
		units = append(units, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, u := range units {
		payroll := int64(u.count) * u.salaryCents
		maintenance := int64(u.size) * MaintenanceRateCents

		var cash int64
		if err := tx.QueryRow(ctx, `
			SELECT cash_cents FROM game.companies WHERE id = $1 FOR UPDATE
		`, u.companyID).Scan(&cash); err != nil {
			return err
		}

		if payroll > 0 {
			paid := payroll
			if paid > cash {
				paid = cash
			}
			if paid > 0 {
				desc := fmt.Sprintf("Payroll for unit #%d", u.unitID)
				if _, err := recordTransactionTx(ctx, tx, u.companyID, TxSalary, -paid, desc, &u.unitID, nil); err != nil {
					return err
				}
				cash -= paid
			}
			if paid < payroll {
				if _, err := tx.Exec(ctx, `
					UPDATE game.unit_employees
					SET morale = GREATEST(0, morale - $1), updated_at = now()
					WHERE unit_id = $2
				`, moraleUnpaidMalus, u.unitID); err != nil {
					return err
				}
				if err := notifyTx(ctx, tx, u.companyID, "payroll_missed", "Payroll missed",
					fmt.Sprintf("Unit #%d staff were not fully paid; morale is dropping", u.unitID)); err != nil {
					return err
				}
			}
		}

		if maintenance > 0 && cash > 0 {
			paid := maintenance
			if paid > cash {
				paid = cash
			}
			desc := fmt.Sprintf("Maintenance for unit #%d", u.unitID)
			if _, err := recordTransactionTx(ctx, tx, u.companyID, TxMaintenance, -paid, desc, &u.unitID, nil); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `
			UPDATE game.business_units
			SET condition = GREATEST($1, condition - $2),
			    efficiency_bps = LEAST($3, GREATEST($1, condition - $2) * 100),
			    updated_at = now()
			WHERE id = $4
		`, minCondition, conditionWearPerTurn, QualityScaleBps, u.unitID); err != nil {
			return err
		}
	}
	return nil
}

func sweepExpiredListingsTx(ctx context.Context, tx pgx.Tx) error {
	rows, err := tx.Query(ctx, `
		SELECT id, company_id, unit_id, resource_id, quantity_units, quality_bps,
		       price_per_unit_cents, avg_cost_cents, city_id, is_active, expires_at
		FROM game.market_listings
		WHERE is_active = true AND expires_at IS NOT NULL AND expires_at < now()
		ORDER BY id
		FOR UPDATE
	`)
	if err != nil {
		return err
	}
	var expired []listingRow
	for rows.Next() {
		var l listingRow
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.UnitID, &l.ResourceID, &l.QuantityUnits, &l.QualityBps,
			&l.PriceCents, &l.AvgCostCents, &l.CityID, &l.IsActive, &l.ExpiresAt); err != nil {
			rows.Close()
			return err
		}
		expired = append(expired, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range expired {
		if err := expireListingTx(ctx, tx, l); err != nil {
			return err
		}
	}
	return nil
}
