package game

import (
	"context"
	"fmt"
)

type citySeed struct {
	Name       string
	Country    string
	Population int64
	WealthBps  int32
	TaxBps     int32
}

type resourceSeed struct {
	Code       string
	Name       string
	Category   string
	PriceCents int64
	Unit       string
}

type recipeInputSeed struct {
	Code     string
	Quantity int64 // whole resource units per batch
}

type recipeSeed struct {
	Name       string
	UnitType   string
	OutputCode string
	OutputQty  int64 // whole resource units per batch
	Inputs     []recipeInputSeed
	Labor      int32
	Turns      int32
}

var citySeeds = []citySeed{
	{"New York", "USA", 8_336_817, 15000, 2500},
	{"Los Angeles", "USA", 3_979_576, 14000, 2300},
	{"Chicago", "USA", 2_693_976, 13000, 2200},
	{"London", "UK", 8_982_000, 16000, 2800},
	{"Paris", "France", 2_161_000, 14500, 3000},
	{"Berlin", "Germany", 3_645_000, 13500, 2600},
	{"Tokyo", "Japan", 13_960_000, 15500, 2400},
	{"Shanghai", "China", 24_870_000, 12000, 2000},
	{"Mumbai", "India", 12_442_373, 9000, 1800},
	{"São Paulo", "Brazil", 12_325_232, 10000, 2100},
	{"Sydney", "Australia", 5_312_163, 14500, 2700},
	{"Dubai", "UAE", 3_331_420, 17000, 500},
}

var resourceSeeds = []resourceSeed{
	{"iron_ore", "Iron Ore", "raw_material", 50_00, "tons"},
	{"coal", "Coal", "raw_material", 30_00, "tons"},
	{"oil", "Crude Oil", "raw_material", 80_00, "barrels"},
	{"wood", "Timber", "raw_material", 25_00, "m³"},
	{"cotton", "Cotton", "raw_material", 40_00, "bales"},
	{"wheat", "Wheat", "raw_material", 15_00, "tons"},
	{"bauxite", "Bauxite", "raw_material", 45_00, "tons"},
	{"cattle", "Cattle", "raw_material", 120_00, "head"},

	{"steel", "Steel", "intermediate", 200_00, "tons"},
	{"aluminum", "Aluminum", "intermediate", 250_00, "tons"},
	{"plastic", "Plastic", "intermediate", 150_00, "tons"},
	{"fabric", "Fabric", "intermediate", 100_00, "rolls"},
	{"textiles", "Textiles", "intermediate", 90_00, "rolls"},
	{"flour", "Flour", "intermediate", 35_00, "tons"},
	{"lumber", "Lumber", "intermediate", 60_00, "m³"},

	{"cars", "Automobiles", "finished_good", 25_000_00, "units"},
	{"electronics", "Electronics", "finished_good", 500_00, "units"},
	{"clothing", "Clothing", "finished_good", 50_00, "units"},
	{"furniture", "Furniture", "finished_good", 300_00, "units"},
	{"food", "Processed Food", "finished_good", 20_00, "units"},

	{"machinery", "Industrial Machinery", "equipment", 50_000_00, "units"},
	{"computers", "Computers", "equipment", 1_000_00, "units"},
}

var recipeSeeds = []recipeSeed{
	{"Iron Ore Extraction", UnitMine, "iron_ore", 100, nil, 10, 1},
	{"Coal Mining", UnitMine, "coal", 150, nil, 8, 1},
	{"Bauxite Mining", UnitMine, "bauxite", 80, nil, 12, 1},

	{"Wheat Farming", UnitFarm, "wheat", 200, nil, 5, 2},
	{"Cotton Farming", UnitFarm, "cotton", 100, nil, 6, 2},
	{"Cattle Ranching", UnitFarm, "cattle", 50, []recipeInputSeed{
		{"wheat", 100},
	}, 8, 4},

	{"Steel Production", UnitFactory, "steel", 50, []recipeInputSeed{
		{"iron_ore", 100},
		{"coal", 50},
	}, 15, 2},
	{"Aluminum Production", UnitFactory, "aluminum", 40, []recipeInputSeed{
		{"bauxite", 80},
	}, 12, 2},
	{"Textile Production", UnitFactory, "textiles", 100, []recipeInputSeed{
		{"cotton", 50},
	}, 20, 1},
	{"Electronics Assembly", UnitFactory, "electronics", 20, []recipeInputSeed{
		{"steel", 10},
		{"aluminum", 5},
	}, 25, 2},
	{"Automobile Manufacturing", UnitFactory, "cars", 5, []recipeInputSeed{
		{"steel", 50},
		{"aluminum", 20},
		{"electronics", 10},
		{"textiles", 15},
	}, 50, 4},
	{"Furniture Production", UnitFactory, "furniture", 30, []recipeInputSeed{
		{"wood", 40},
		{"textiles", 10},
	}, 15, 1},
	{"Clothing Production", UnitFactory, "clothing", 100, []recipeInputSeed{
		{"textiles", 30},
	}, 30, 1},
	{"Food Processing", UnitFactory, "food", 150, []recipeInputSeed{
		{"wheat", 100},
		{"cattle", 20},
	}, 20, 1},
}

// SeedCatalogs loads the city, resource and recipe catalogs on first
// boot. Each section is guarded separately so a partially seeded
// database heals on restart.
func (s *Service) SeedCatalogs(ctx context.Context) error {
	if err := s.seedCities(ctx); err != nil {
		return err
	}
	if err := s.seedResources(ctx); err != nil {
		return err
	}
	if err := s.seedRecipes(ctx); err != nil {
		return err
	}
	return s.EnsureGameState(ctx)
}

func (s *Service) seedCities(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM game.cities`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, c := range citySeeds {
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.cities (name, country, population, wealth_index_bps, tax_rate_bps)
			VALUES ($1, $2, $3, $4, $5)
		`, c.Name, c.Country, c.Population, c.WealthBps, c.TaxBps); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Service) seedResources(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM game.resource_types`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, r := range resourceSeeds {
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.resource_types (code, name, category, base_price_cents, unit)
			VALUES ($1, $2, $3, $4, $5)
		`, r.Code, r.Name, r.Category, r.PriceCents, r.Unit); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Service) seedRecipes(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM game.production_recipes`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	ids := map[string]int64{}
	rows, err := s.db.Query(ctx, `SELECT code, id FROM game.resource_types`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		var id int64
		if err := rows.Scan(&code, &id); err != nil {
			return err
		}
		ids[code] = id
	}
	if err := rows.Err(); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range recipeSeeds {
		outputID, ok := ids[r.OutputCode]
		if !ok {
			return fmt.Errorf("recipe %q outputs unknown resource %q", r.Name, r.OutputCode)
		}
		var recipeID int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO game.production_recipes
			    (unit_type, name, output_resource_id, output_quantity_units, labor_required, time_required_turns)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, r.UnitType, r.Name, outputID, r.OutputQty*QuantityScale, r.Labor, r.Turns).Scan(&recipeID); err != nil {
			return err
		}
		for _, in := range r.Inputs {
			inputID, ok := ids[in.Code]
			if !ok {
				return fmt.Errorf("recipe %q needs unknown resource %q", r.Name, in.Code)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO game.recipe_inputs (recipe_id, resource_id, quantity_units)
				VALUES ($1, $2, $3)
			`, recipeID, inputID, in.Quantity*QuantityScale); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

// EnsureGameState creates the singleton turn-state row at turn zero.
func (s *Service) EnsureGameState(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO game.state (id, current_turn, turn_duration_seconds, last_turn_at)
		VALUES (1, 0, $1, now())
		ON CONFLICT (id) DO NOTHING
	`, DefaultTurnSeconds)
	return err
}
