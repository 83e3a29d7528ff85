package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"magnate/internal/game"
)

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: game.ErrDuplicateIdempotency, want: http.StatusConflict},
		{err: game.ErrTxConflict, want: http.StatusConflict},
		{err: game.ErrCompanyExists, want: http.StatusConflict},
		{err: game.ErrInsufficientFunds, want: http.StatusBadRequest},
		{err: game.ErrInsufficientInventory, want: http.StatusBadRequest},
		{err: game.ErrInsufficientInputInventory, want: http.StatusBadRequest},
		{err: game.ErrInsufficientQuantity, want: http.StatusBadRequest},
		{err: game.ErrInvalidDestination, want: http.StatusBadRequest},
		{err: game.ErrSelfTrade, want: http.StatusBadRequest},
		{err: game.ErrListingInactive, want: http.StatusBadRequest},
		{err: game.ErrRecipeUnitTypeMismatch, want: http.StatusBadRequest},
		{err: game.ErrNotAuthorized, want: http.StatusForbidden},
		{err: game.ErrCompanyNotFound, want: http.StatusNotFound},
		{err: game.ErrUnitNotFound, want: http.StatusNotFound},
		{err: game.ErrListingNotFound, want: http.StatusNotFound},
		{err: game.ErrRecipeNotFound, want: http.StatusNotFound},
		{err: game.ErrQueueEntryNotFound, want: http.StatusNotFound},
		{err: errors.New("pool timeout"), want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("%v mapped to %d, want %d", tc.err, rec.Code, tc.want)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("%v response content type %q", tc.err, ct)
		}
	}

	// Wrapped domain errors keep their mapping.
	rec := httptest.NewRecorder()
	writeDomainError(rec, fmt.Errorf("purchase: %w", game.ErrSelfTrade))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("wrapped error mapped to %d", rec.Code)
	}
}
