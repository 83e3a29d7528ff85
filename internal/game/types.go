package game

import "time"

type CompanyView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Cash        string    `json:"cash"`
	Reputation  int32     `json:"reputation"`
	Founded     time.Time `json:"founded"`
}

type UnitView struct {
	ID            int64  `json:"id"`
	CompanyID     int64  `json:"company_id"`
	Type          string `json:"type"`
	Name          string `json:"name"`
	CityID        int64  `json:"city_id"`
	Size          int32  `json:"size"`
	Condition     int32  `json:"condition"`
	EfficiencyBps int32  `json:"efficiency_bps"`
	IsActive      bool   `json:"is_active"`
}

type EmployeeView struct {
	UnitID int64  `json:"unit_id"`
	Count  int32  `json:"count"`
	Salary string `json:"salary"`
	Morale int32  `json:"morale"`
}

type InventoryView struct {
	ResourceID   int64  `json:"resource_id"`
	ResourceCode string `json:"resource_code"`
	ResourceName string `json:"resource_name"`
	Quantity     string `json:"quantity"`
	QualityBps   int32  `json:"quality_bps"`
	AverageCost  string `json:"average_cost"`
}

type ListingView struct {
	ID           int64      `json:"id"`
	CompanyID    int64      `json:"company_id"`
	CompanyName  string     `json:"company_name"`
	UnitID       int64      `json:"unit_id"`
	ResourceID   int64      `json:"resource_id"`
	ResourceCode string     `json:"resource_code"`
	Quantity     string     `json:"quantity"`
	QualityBps   int32      `json:"quality_bps"`
	PricePerUnit string     `json:"price_per_unit"`
	CityID       int64      `json:"city_id"`
	IsActive     bool       `json:"is_active"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type RecipeInputView struct {
	ResourceID int64  `json:"resource_id"`
	Quantity   string `json:"quantity"`
}

type RecipeView struct {
	ID             int64             `json:"id"`
	UnitType       string            `json:"unit_type"`
	OutputResource int64             `json:"output_resource_id"`
	OutputQuantity string            `json:"output_quantity"`
	Inputs         []RecipeInputView `json:"inputs"`
	LaborRequired  int32             `json:"labor_required"`
	TimeRequired   int32             `json:"time_required"`
	Description    string            `json:"description"`
}

type QueueEntryView struct {
	ID          int64     `json:"id"`
	UnitID      int64     `json:"unit_id"`
	RecipeID    int64     `json:"recipe_id"`
	Description string    `json:"description"`
	Batches     int64     `json:"batches"`
	ProgressBps int32     `json:"progress_bps"`
	IsActive    bool      `json:"is_active"`
	StartedTurn int64     `json:"started_turn"`
	CreatedAt   time.Time `json:"created_at"`
}

type TransactionView struct {
	ID                int64     `json:"id"`
	Type              string    `json:"type"`
	Amount            string    `json:"amount"`
	Description       string    `json:"description,omitempty"`
	RelatedUnitID     *int64    `json:"related_unit_id,omitempty"`
	RelatedResourceID *int64    `json:"related_resource_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type CityView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Country     string `json:"country"`
	Population  int64  `json:"population"`
	WealthIndex string `json:"wealth_index"`
	TaxRate     string `json:"tax_rate"`
}

type ResourceView struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	BasePrice string `json:"base_price"`
	Unit      string `json:"unit"`
}

type NotificationView struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type GameStateView struct {
	CurrentTurn  int64      `json:"current_turn"`
	TurnDuration int64      `json:"turn_duration_seconds"`
	LastTurnAt   *time.Time `json:"last_turn_at,omitempty"`
}

type LeaderboardRow struct {
	Rank       int64  `json:"rank"`
	Company    string `json:"company"`
	Cash       string `json:"cash"`
	Reputation int32  `json:"reputation"`
}

type PurchaseResult struct {
	ListingID        int64  `json:"listing_id"`
	Quantity         string `json:"quantity"`
	TotalCost        string `json:"total_cost"`
	BuyerCash        string `json:"buyer_cash"`
	ListingRemaining string `json:"listing_remaining"`
	ListingActive    bool   `json:"listing_active"`
}

type CreateCompanyInput struct {
	UserID         string
	Name           string
	Description    string
	IdempotencyKey string
}

type CreateUnitInput struct {
	UserID         string
	Type           string
	Name           string
	CityID         int64
	Size           int32
	IdempotencyKey string
}

type UpdateUnitInput struct {
	UserID   string
	UnitID   int64
	Name     *string
	IsActive *bool
}

type SetEmployeesInput struct {
	UserID         string
	UnitID         int64
	Count          int32
	SalaryCents    int64
	IdempotencyKey string
}

type CreateListingInput struct {
	UserID            string
	UnitID            int64
	ResourceID        int64
	QuantityUnits     int64
	PricePerUnitCents int64
	IdempotencyKey    string
}

type PurchaseInput struct {
	UserID            string
	ListingID         int64
	QuantityUnits     int64
	DestinationUnitID int64
	IdempotencyKey    string
}

type CancelListingInput struct {
	UserID         string
	ListingID      int64
	IdempotencyKey string
}

type StartProductionInput struct {
	UserID         string
	UnitID         int64
	RecipeID       int64
	Batches        int64
	IdempotencyKey string
}

type CancelProductionInput struct {
	UserID         string
	QueueID        int64
	IdempotencyKey string
}
