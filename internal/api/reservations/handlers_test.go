package reservations

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oreopets/portal/internal/availability"
	"github.com/oreopets/portal/internal/backend"
	"github.com/oreopets/portal/internal/ratelimit"
)

type fakeBackend struct {
	mu           sync.Mutex
	services     []backend.Service
	servicesErr  error
	petErr       error
	reserveErr   error
	cancelErr    error
	pets         []backend.PetRequest
	reservations []backend.ReservationRequest
	cancels      []int64
}

func (f *fakeBackend) ListServices(ctx context.Context) ([]backend.Service, error) {
	return f.services, f.servicesErr
}

func (f *fakeBackend) CreatePet(ctx context.Context, req backend.PetRequest) (*backend.Pet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.petErr != nil {
		return nil, f.petErr
	}
	f.pets = append(f.pets, req)
	return &backend.Pet{ID: int64(len(f.pets) + 40), Name: req.Name}, nil
}

func (f *fakeBackend) CreateReservation(ctx context.Context, req backend.ReservationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveErr != nil {
		return f.reserveErr
	}
	f.reservations = append(f.reservations, req)
	return nil
}

func (f *fakeBackend) CancelReservation(ctx context.Context, id int64, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancels = append(f.cancels, id)
	return nil
}

func strPtr(s string) *string { return &s }

// Monday 2025-08-04.
var fixedNow = time.Date(2025, 8, 4, 9, 0, 0, 0, time.Local)

func setupReservationTest(t *testing.T, fake *fakeBackend, l *ratelimit.Limiter) {
	t.Helper()

	prevClient, prevValidator, prevLookahead, prevLimiter, prevTrust, prevNow := client, validator, lookaheadDays, limiter, trustProxy, now
	t.Cleanup(func() {
		client, validator, lookaheadDays, limiter, trustProxy, now = prevClient, prevValidator, prevLookahead, prevLimiter, prevTrust, prevNow
	})

	if fake.services == nil {
		fake.services = []backend.Service{
			{ID: 1, Name: "Dog Bath", Description: "Wash and dry", AllowedDays: strPtr("MONDAY,WEDNESDAY"), StartTime: "09:00:00", EndTime: "17:00:00"},
			{ID: 2, Name: "Boarding", AllowedDays: nil, StartTime: "10:00", EndTime: "12:00"},
		}
	}
	InitHandlers(fake, availability.Validator{StepMinutes: 30, PhoneRegion: "US"}, 14, l, false)
	now = func() time.Time { return fixedNow }
}

func validForm() url.Values {
	return url.Values{
		"owner":     {"Jane Doe"},
		"contact":   {"646-339-5088"},
		"serviceId": {"1"},
		"date":      {"2025-08-06"},
		"time":      {"09:30"},
		"name":      {"Oreo"},
		"species":   {"Dog"},
		"breed":     {"Poodle"},
		"age":       {"3"},
		"notes":     {"Gets anxious"},
	}
}

func postForm(t *testing.T, handler http.HandlerFunc, path string, form url.Values, htmxRequest bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "198.51.100.10:4000"
	if htmxRequest {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func body(rec *httptest.ResponseRecorder) string {
	return html.UnescapeString(rec.Body.String())
}

func TestReservationPageListsServices(t *testing.T) {
	setupReservationTest(t, &fakeBackend{}, nil)

	rec := httptest.NewRecorder()
	HandleReservationPage(rec, httptest.NewRequest(http.MethodGet, "/reservation", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := body(rec)
	for _, want := range []string{"Dog Bath – Wash and dry", "Boarding", "Choose a service first"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in page", want)
		}
	}
}

func TestReservationPageServicesUnavailable(t *testing.T) {
	setupReservationTest(t, &fakeBackend{servicesErr: backend.ErrTransport}, nil)

	rec := httptest.NewRecorder()
	HandleReservationPage(rec, httptest.NewRequest(http.MethodGet, "/reservation", nil))

	if !strings.Contains(body(rec), "Services could not be loaded") {
		t.Fatal("expected services unavailable notice")
	}
}

func TestServiceChangeRendersRuleSlots(t *testing.T) {
	setupReservationTest(t, &fakeBackend{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/reservation/service?serviceId=1&date=2025-08-04&time=10:00", nil)
	rec := httptest.NewRecorder()
	HandleServiceChange(rec, req)

	out := body(rec)
	for _, want := range []string{`value="2025-08-04"`, `value="2025-08-06"`, `value="2025-08-13"`, `value="09:00"`, `value="17:00"`, "MONDAY, WEDNESDAY"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in slots", want)
		}
	}
	for _, unwanted := range []string{`value="2025-08-05"`, `value="2025-08-18"`, `value="17:30"`, "selected"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("did not expect %q in slots", unwanted)
		}
	}
}

func TestBuildSlotsNoDates(t *testing.T) {
	prevLookahead := lookaheadDays
	t.Cleanup(func() { lookaheadDays = prevLookahead })
	lookaheadDays = 14

	rule := availability.NewServiceRule(9, "", "Never", "", strPtr(""), "09:00", "10:00")
	slots := buildSlots(availability.Draft{ServiceID: "9"}, rule, fixedNow)
	if !slots.NoDates || len(slots.Dates) != 0 || slots.MinDate != "" {
		t.Fatalf("expected no bookable dates, got %+v", slots)
	}
	if len(slots.Times) != 3 {
		t.Fatalf("expected 3 time slots, got %d", len(slots.Times))
	}
}

func TestCheck(t *testing.T) {
	setupReservationTest(t, &fakeBackend{}, nil)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"allowed date", "field=date&serviceId=1&date=2025-08-06", ""},
		{"blocked weekday", "field=date&serviceId=1&date=2025-08-05", msgDateNotOffered},
		{"past date", "field=date&serviceId=1&date=2025-07-28", msgDateOutOfRange},
		{"beyond the window", "field=date&serviceId=1&date=2025-08-18", msgDateOutOfRange},
		{"last day of the window", "field=date&serviceId=1&date=2025-08-13", ""},
		{"time after close", "field=time&serviceId=1&time=17:30", msgTimeOutOfRange},
		{"closing time is allowed", "field=time&serviceId=1&time=17:00", ""},
		{"time off grid", "field=time&serviceId=1&time=09:15", msgTimeOffGrid},
		{"no service", "field=date&date=2025-08-06", msgChooseService},
		{"empty value", "field=time&serviceId=1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleCheck(rec, httptest.NewRequest(http.MethodGet, "/reservation/check?"+tt.query, nil))

			got := strings.TrimSpace(body(rec))
			if tt.want == "" {
				if got != "" {
					t.Fatalf("expected empty check, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}

	rec := httptest.NewRecorder()
	HandleCheck(rec, httptest.NewRequest(http.MethodGet, "/reservation/check?field=owner", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestCreateReservation(t *testing.T) {
	fake := &fakeBackend{}
	setupReservationTest(t, fake, nil)

	rec := postForm(t, HandleReservationCreate, "/reservation", validForm(), true)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for htmx, got %d", rec.Code)
	}
	if !strings.Contains(body(rec), msgSubmitted) {
		t.Fatalf("expected success message, got %s", rec.Body.String())
	}

	if len(fake.pets) != 1 {
		t.Fatalf("expected one pet, got %d", len(fake.pets))
	}
	pet := fake.pets[0]
	if pet.Age != 3 || pet.OwnerPhone != "646-339-5088" || pet.OwnerName != "Jane Doe" {
		t.Fatalf("unexpected pet request %+v", pet)
	}

	if len(fake.reservations) != 1 {
		t.Fatalf("expected one reservation, got %d", len(fake.reservations))
	}
	want := backend.ReservationRequest{PetID: 41, ServiceID: 1, ReservationTime: "2025-08-06T09:30", Notes: "Gets anxious"}
	if fake.reservations[0] != want {
		t.Fatalf("unexpected reservation %+v", fake.reservations[0])
	}
}

func TestCreateReservationFullPageStatus(t *testing.T) {
	setupReservationTest(t, &fakeBackend{}, nil)

	rec := postForm(t, HandleReservationCreate, "/reservation", validForm(), false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(url.Values)
		status   int
		wantText []string
	}{
		{
			name:     "missing required",
			mutate:   func(v url.Values) { v.Del("owner"); v.Del("species") },
			status:   http.StatusUnprocessableEntity,
			wantText: []string{msgRequiredFields, "Owner's name is required"},
		},
		{
			name:     "blocked weekday",
			mutate:   func(v url.Values) { v.Set("date", "2025-08-05") },
			status:   http.StatusUnprocessableEntity,
			wantText: []string{msgFixFields, "outside the allowed range"},
		},
		{
			name:     "past date",
			mutate:   func(v url.Values) { v.Set("date", "2025-07-28") },
			status:   http.StatusUnprocessableEntity,
			wantText: []string{msgFixFields, "Date is outside the booking window"},
		},
		{
			name:     "date beyond the window",
			mutate:   func(v url.Values) { v.Set("date", "2031-01-06") },
			status:   http.StatusUnprocessableEntity,
			wantText: []string{"Date is outside the booking window"},
		},
		{
			name:     "time outside hours",
			mutate:   func(v url.Values) { v.Set("time", "18:00") },
			status:   http.StatusUnprocessableEntity,
			wantText: []string{"outside the allowed range"},
		},
		{
			name:     "unknown service",
			mutate:   func(v url.Values) { v.Set("serviceId", "99") },
			status:   http.StatusUnprocessableEntity,
			wantText: []string{"Service is not an available service"},
		},
		{
			name:     "bad phone",
			mutate:   func(v url.Values) { v.Set("contact", "12") },
			status:   http.StatusUnprocessableEntity,
			wantText: []string{"Contact number must be a valid phone number"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeBackend{}
			setupReservationTest(t, fake, nil)

			form := validForm()
			tt.mutate(form)
			rec := postForm(t, HandleReservationCreate, "/reservation", form, false)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			out := body(rec)
			for _, want := range tt.wantText {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q in response", want)
				}
			}
			if len(fake.pets) != 0 || len(fake.reservations) != 0 {
				t.Fatal("invalid draft must not reach the backend")
			}
		})
	}
}

func TestCreateReservationBackendFailures(t *testing.T) {
	tests := []struct {
		name   string
		fake   *fakeBackend
		status int
		want   string
	}{
		{"conflict default", &fakeBackend{reserveErr: &backend.APIError{Status: http.StatusConflict}}, http.StatusConflict, msgConflict},
		{"conflict message", &fakeBackend{reserveErr: &backend.APIError{Status: http.StatusConflict, Message: "Slot already taken"}}, http.StatusConflict, "Slot already taken"},
		{"server error", &fakeBackend{reserveErr: &backend.APIError{Status: http.StatusInternalServerError}}, http.StatusBadGateway, "Reservation failed (HTTP 500)"},
		{"network", &fakeBackend{reserveErr: fmt.Errorf("%w: boom", backend.ErrTransport)}, http.StatusBadGateway, msgNetwork},
		{"pet rejected", &fakeBackend{petErr: &backend.APIError{Status: http.StatusBadRequest}}, http.StatusBadGateway, msgPetFailed},
		{"services down", &fakeBackend{servicesErr: fmt.Errorf("%w: boom", backend.ErrTransport)}, http.StatusBadGateway, msgNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupReservationTest(t, tt.fake, nil)

			rec := postForm(t, HandleReservationCreate, "/reservation", validForm(), false)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			out := body(rec)
			if !strings.Contains(out, tt.want) {
				t.Fatalf("expected %q in response", tt.want)
			}
			if !strings.Contains(out, `value="Jane Doe"`) {
				t.Fatal("failed submission must keep the draft")
			}
		})
	}
}

func TestCreateReservationRateLimited(t *testing.T) {
	fake := &fakeBackend{}
	l := ratelimit.New(ratelimit.Config{Name: "reservation", PerMinute: 1, Burst: 1})
	t.Cleanup(l.Close)
	setupReservationTest(t, fake, l)

	postForm(t, HandleReservationCreate, "/reservation", validForm(), false)
	rec := postForm(t, HandleReservationCreate, "/reservation", validForm(), false)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if len(fake.reservations) != 1 {
		t.Fatalf("expected only the first reservation, got %d", len(fake.reservations))
	}
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name   string
		fake   *fakeBackend
		form   url.Values
		status int
		want   string
	}{
		{"success", &fakeBackend{}, url.Values{"reservationId": {"7"}, "phone": {"646-339-5088"}}, http.StatusOK, msgCanceled},
		{"bad id", &fakeBackend{}, url.Values{"reservationId": {"abc"}, "phone": {"646-339-5088"}}, http.StatusBadRequest, msgBadReservation},
		{"bad phone", &fakeBackend{}, url.Values{"reservationId": {"7"}, "phone": {"1"}}, http.StatusBadRequest, msgBadCancelPhone},
		{"unknown reservation", &fakeBackend{cancelErr: &backend.APIError{Status: http.StatusNotFound}}, url.Values{"reservationId": {"7"}, "phone": {"646-339-5088"}}, http.StatusNotFound, msgCancelNotFound},
		{"phone mismatch", &fakeBackend{cancelErr: &backend.APIError{Status: http.StatusBadRequest, Message: "Phone number does not match"}}, url.Values{"reservationId": {"7"}, "phone": {"646-339-5088"}}, http.StatusBadRequest, "Phone number does not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupReservationTest(t, tt.fake, nil)

			rec := postForm(t, HandleCancel, "/reservation/cancel", tt.form, false)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if !strings.Contains(body(rec), tt.want) {
				t.Fatalf("expected %q in response", tt.want)
			}
		})
	}
}
