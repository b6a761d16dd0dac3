// Package backend is the REST client for the booking backend. The backend
// owns persistence, conflict detection and token issuance.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oreopets/portal/internal/metrics"
)

const maxErrorBody = 64 << 10

// Client talks to the booking backend. It is safe for concurrent use; use
// WithToken to derive a client that authenticates as an owner.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: m,
		now:     time.Now,
	}
}

// WithToken returns a copy of the client that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// ListServices fetches every bookable service.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	var services []Service
	if err := c.do(ctx, "list_services", http.MethodGet, "/api/services", nil, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// CreatePet stores the pet and its owner; the returned id is needed to book.
func (c *Client) CreatePet(ctx context.Context, req PetRequest) (*Pet, error) {
	var pet Pet
	if err := c.do(ctx, "create_pet", http.MethodPost, "/api/pets", req, &pet); err != nil {
		return nil, err
	}
	if pet.ID == 0 {
		return nil, fmt.Errorf("%w: pet response without id", ErrInvalidResponse)
	}
	return &pet, nil
}

// CreateReservation books a slot. A taken slot comes back as an error
// matching ErrConflict.
func (c *Client) CreateReservation(ctx context.Context, req ReservationRequest) error {
	return c.do(ctx, "create_reservation", http.MethodPost, "/api/reservations", req, nil)
}

// DashboardReservations fetches the full reservation snapshot. A cache-busting
// query parameter keeps intermediaries from serving a stale list.
func (c *Client) DashboardReservations(ctx context.Context) ([]Reservation, error) {
	query := url.Values{}
	query.Set("_", strconv.FormatInt(c.now().UnixMilli(), 10))

	var reservations []Reservation
	if err := c.do(ctx, "dashboard_reservations", http.MethodGet, "/api/reservations/dashboard?"+query.Encode(), nil, &reservations); err != nil {
		return nil, err
	}
	for i := range reservations {
		reservations[i].Time = clockMinutes(reservations[i].Time)
		reservations[i].Status = strings.ToUpper(strings.TrimSpace(reservations[i].Status))
	}
	return reservations, nil
}

// CompleteReservation asks the backend to move a reservation to COMPLETED.
func (c *Client) CompleteReservation(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/reservations/%d/complete", id)
	return c.do(ctx, "complete_reservation", http.MethodPatch, path, nil, nil)
}

// CancelReservation cancels a booking on behalf of the customer, who proves
// ownership with the phone number used to book.
func (c *Client) CancelReservation(ctx context.Context, id int64, phone string) error {
	path := fmt.Sprintf("/api/reservations/%d/cancel", id)
	return c.do(ctx, "cancel_reservation", http.MethodPatch, path, cancelRequest{Phone: phone}, nil)
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var result LoginResult
	req := LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", req, &result); err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, fmt.Errorf("%w: login response without token", ErrInvalidResponse)
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body, out any) (err error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if err != nil {
			outcome = errorOutcome(err)
		}
		c.metrics.ObserveBackendCall(endpoint, outcome, time.Since(start))
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransport, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var decoded errorBody
		if json.Unmarshal(raw, &decoded) == nil {
			apiErr.Message = strings.TrimSpace(decoded.Message)
		}
		log.Ctx(ctx).Debug().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("Backend rejected request")
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrInvalidResponse, endpoint, err)
	}
	return nil
}

func errorOutcome(err error) string {
	switch {
	case StatusOf(err) != 0:
		return "http_" + strconv.Itoa(StatusOf(err))
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}

// clockMinutes trims "14:00:00" to "14:00" so times sort and display uniformly.
func clockMinutes(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 5 && value[2] == ':' && value[5] == ':' {
		return value[:5]
	}
	return value
}
