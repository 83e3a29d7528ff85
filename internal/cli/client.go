package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"magnate/internal/auth"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password, username string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
		"username": username,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/refresh", "", map[string]any{
		"refresh_token": refreshToken,
	}, &out, "")
	return out, err
}

func (c *Client) MyCompany(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/company", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) CreateCompany(ctx context.Context, accessToken, name, description, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/company", accessToken, map[string]any{
		"name":        name,
		"description": description,
	}, &out, idem)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/leaderboard", "", nil, &out, "")
	return out, err
}

func (c *Client) Transactions(ctx context.Context, accessToken string, limit int) (map[string]any, error) {
	path := "/v1/transactions"
	if limit > 0 {
		path = fmt.Sprintf("/v1/transactions?limit=%d", limit)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ListUnits(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/units", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) UnitDetail(ctx context.Context, accessToken string, unitID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/units/%d", unitID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) CreateUnit(ctx context.Context, accessToken, unitType, name string, cityID int64, size int32, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/units", accessToken, map[string]any{
		"type":    unitType,
		"name":    name,
		"city_id": cityID,
		"size":    size,
	}, &out, idem)
	return out, err
}

func (c *Client) SetEmployees(ctx context.Context, accessToken string, unitID int64, count int32, salary, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/units/%d/employees", unitID), accessToken, map[string]any{
		"count":  count,
		"salary": salary,
	}, &out, idem)
	return out, err
}

func (c *Client) ListListings(ctx context.Context, accessToken string, resourceID, cityID int64) (map[string]any, error) {
	path := "/v1/market/listings"
	sep := "?"
	if resourceID > 0 {
		path += fmt.Sprintf("%sresource_id=%d", sep, resourceID)
		sep = "&"
	}
	if cityID > 0 {
		path += fmt.Sprintf("%scity_id=%d", sep, cityID)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) CreateListing(ctx context.Context, accessToken string, unitID, resourceID int64, quantity, price, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/market/listings", accessToken, map[string]any{
		"unit_id":        unitID,
		"resource_id":    resourceID,
		"quantity":       quantity,
		"price_per_unit": price,
	}, &out, idem)
	return out, err
}

func (c *Client) Purchase(ctx context.Context, accessToken string, listingID int64, quantity string, destinationUnitID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/market/listings/%d/purchase", listingID), accessToken, map[string]any{
		"quantity":            quantity,
		"destination_unit_id": destinationUnitID,
	}, &out, idem)
	return out, err
}

func (c *Client) CancelListing(ctx context.Context, accessToken string, listingID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/market/listings/%d/cancel", listingID), accessToken, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) Recipes(ctx context.Context, accessToken, unitType string) (map[string]any, error) {
	path := "/v1/production/recipes"
	if unitType != "" {
		path += "?unit_type=" + unitType
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ProductionQueue(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/production/queue", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) StartProduction(ctx context.Context, accessToken string, unitID, recipeID, batches int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/production", accessToken, map[string]any{
		"unit_id":   unitID,
		"recipe_id": recipeID,
		"batches":   batches,
	}, &out, idem)
	return out, err
}

func (c *Client) CancelProduction(ctx context.Context, accessToken string, queueID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/production/%d/cancel", queueID), accessToken, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) Cities(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/cities", "", nil, &out, "")
	return out, err
}

func (c *Client) Resources(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/resources", "", nil, &out, "")
	return out, err
}

func (c *Client) GameState(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/state", "", nil, &out, "")
	return out, err
}

func (c *Client) Notifications(ctx context.Context, accessToken string, unreadOnly bool) (map[string]any, error) {
	path := "/v1/notifications"
	if unreadOnly {
		path += "?unread=1"
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, accessToken string, id int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/notifications/%d/read", id), accessToken, map[string]any{}, &out, "")
	return out, err
}

// Do issues an arbitrary queued command; the offline sync replay uses
// this to re-send writes recorded while the API was unreachable.
func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, accessToken, body, &out, idem)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
