package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"magnate/internal/auth"
	"magnate/internal/config"
	"magnate/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID string
	Email  string
	Token  string
}

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	auth *auth.SupabaseClient
	game *game.Service
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, authClient *auth.SupabaseClient, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		auth: authClient,
		game: gameSvc,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		r.Get("/cities", s.handleCities)
		r.Get("/resources", s.handleResources)
		r.Get("/state", s.handleGameState)
		r.Get("/leaderboard", s.handleLeaderboard)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/company", s.handleCreateCompany)
			r.Get("/company", s.handleMyCompany)
			r.Get("/companies/{id}", s.handleCompanyByID)
			r.Get("/transactions", s.handleTransactions)

			r.Post("/units", s.handleCreateUnit)
			r.Get("/units", s.handleListUnits)
			r.Get("/units/{id}", s.handleUnitDetail)
			r.Patch("/units/{id}", s.handleUpdateUnit)
			r.Post("/units/{id}/employees", s.handleSetEmployees)

			r.Get("/market/listings", s.handleListListings)
			r.Get("/market/listings/{id}", s.handleListingByID)
			r.Post("/market/listings", s.handleCreateListing)
			r.Post("/market/listings/{id}/purchase", s.handlePurchase)
			r.Post("/market/listings/{id}/cancel", s.handleCancelListing)

			r.Get("/production/recipes", s.handleRecipes)
			r.Get("/production/queue", s.handleQueue)
			r.Post("/production", s.handleStartProduction)
			r.Post("/production/{id}/cancel", s.handleCancelProduction)

			r.Get("/notifications", s.handleNotifications)
			r.Post("/notifications/{id}/read", s.handleNotificationRead)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Post("/admin/turns/advance", s.handleAdvanceTurn)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminMiddleware guards operator endpoints with the shared admin token.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			writeError(w, http.StatusForbidden, "admin endpoints are disabled")
			return
		}
		if bearerToken(r.Header.Get("Authorization")) != s.cfg.AdminToken {
			writeError(w, http.StatusForbidden, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if session.User.ID != "" {
		if err := s.game.EnsurePlayer(r.Context(), session.User.ID, session.User.Email, in.Username); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.game.EnsurePlayer(r.Context(), session.User.ID, session.User.Email, ""); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Refresh(r.Context(), strings.TrimSpace(in.RefreshToken))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.CreateCompany(r.Context(), game.CreateCompanyInput{
		UserID:         user.UserID,
		Name:           in.Name,
		Description:    in.Description,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleMyCompany(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.MyCompany(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCompanyByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}
	out, err := s.game.CompanyByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.game.Leaderboard(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": out})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.game.ListTransactions(r.Context(), user.UserID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Type   string `json:"type"`
		Name   string `json:"name"`
		CityID int64  `json:"city_id"`
		Size   int32  `json:"size"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.CreateUnit(r.Context(), game.CreateUnitInput{
		UserID:         user.UserID,
		Type:           in.Type,
		Name:           in.Name,
		CityID:         in.CityID,
		Size:           in.Size,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.ListUnits(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": out})
}

func (s *Server) handleUnitDetail(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit id")
		return
	}
	unit, employees, inventory, err := s.game.UnitDetail(r.Context(), user.UserID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"unit":      unit,
		"employees": employees,
		"inventory": inventory,
	})
}

func (s *Server) handleUpdateUnit(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit id")
		return
	}
	var in struct {
		Name     *string `json:"name"`
		IsActive *bool   `json:"is_active"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.UpdateUnit(r.Context(), game.UpdateUnitInput{
		UserID:   user.UserID,
		UnitID:   id,
		Name:     in.Name,
		IsActive: in.IsActive,
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSetEmployees(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit id")
		return
	}
	var in struct {
		Count  int32  `json:"count"`
		Salary string `json:"salary"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var salaryCents int64
	if strings.TrimSpace(in.Salary) != "" {
		salaryCents, err = game.ParseCents(in.Salary)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := s.game.SetUnitEmployees(r.Context(), game.SetEmployeesInput{
		UserID:         user.UserID,
		UnitID:         id,
		Count:          in.Count,
		SalaryCents:    salaryCents,
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f game.ListingFilter
	f.ResourceID, _ = strconv.ParseInt(q.Get("resource_id"), 10, 64)
	f.CityID, _ = strconv.ParseInt(q.Get("city_id"), 10, 64)
	f.CompanyID, _ = strconv.ParseInt(q.Get("company_id"), 10, 64)
	f.All = q.Get("all") == "1"
	limit, _ := strconv.Atoi(q.Get("limit"))
	out, err := s.game.ListListings(r.Context(), f, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": out})
}

func (s *Server) handleListingByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	out, err := s.game.ListingByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		UnitID       int64  `json:"unit_id"`
		ResourceID   int64  `json:"resource_id"`
		Quantity     string `json:"quantity"`
		PricePerUnit string `json:"price_per_unit"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	qty, err := game.ParseQuantity(in.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	price, err := game.ParseCents(in.PricePerUnit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.CreateListing(r.Context(), game.CreateListingInput{
		UserID:            user.UserID,
		UnitID:            in.UnitID,
		ResourceID:        in.ResourceID,
		QuantityUnits:     qty,
		PricePerUnitCents: price,
		IdempotencyKey:    idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	var in struct {
		Quantity          string `json:"quantity"`
		DestinationUnitID int64  `json:"destination_unit_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	qty, err := game.ParseQuantity(in.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Purchase(r.Context(), game.PurchaseInput{
		UserID:            user.UserID,
		ListingID:         id,
		QuantityUnits:     qty,
		DestinationUnitID: in.DestinationUnitID,
		IdempotencyKey:    idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	if err := s.game.CancelListing(r.Context(), game.CancelListingInput{
		UserID:         user.UserID,
		ListingID:      id,
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request) {
	unitType := strings.TrimSpace(r.URL.Query().Get("unit_type"))
	out, err := s.game.Recipes(r.Context(), unitType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": out})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	activeOnly := r.URL.Query().Get("all") != "1"
	out, err := s.game.ProductionQueue(r.Context(), user.UserID, activeOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": out})
}

func (s *Server) handleStartProduction(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		UnitID   int64 `json:"unit_id"`
		RecipeID int64 `json:"recipe_id"`
		Batches  int64 `json:"batches"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Batches == 0 {
		in.Batches = 1
	}
	out, err := s.game.StartProduction(r.Context(), game.StartProductionInput{
		UserID:         user.UserID,
		UnitID:         in.UnitID,
		RecipeID:       in.RecipeID,
		Batches:        in.Batches,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleCancelProduction(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid queue id")
		return
	}
	if err := s.game.CancelProduction(r.Context(), game.CancelProductionInput{
		UserID:         user.UserID,
		QueueID:        id,
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "1"
	out, err := s.game.Notifications(r.Context(), user.UserID, unreadOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := s.game.MarkNotificationRead(r.Context(), user.UserID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Cities(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cities": out})
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Resources(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": out})
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.GameState(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdvanceTurn(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TurnNumber int64 `json:"turn_number"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.AdvanceTurn(r.Context(), in.TurnNumber); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "turn": in.TurnNumber})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrDuplicateIdempotency), errors.Is(err, game.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrCompanyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientInventory),
		errors.Is(err, game.ErrInsufficientInputInventory),
		errors.Is(err, game.ErrInsufficientQuantity),
		errors.Is(err, game.ErrInvalidDestination),
		errors.Is(err, game.ErrSelfTrade),
		errors.Is(err, game.ErrListingInactive),
		errors.Is(err, game.ErrRecipeUnitTypeMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrCompanyNotFound),
		errors.Is(err, game.ErrUnitNotFound),
		errors.Is(err, game.ErrListingNotFound),
		errors.Is(err, game.ErrRecipeNotFound),
		errors.Is(err, game.ErrQueueEntryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
