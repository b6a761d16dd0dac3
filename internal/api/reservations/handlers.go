// internal/api/reservations/handlers.go
package reservations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"

	"github.com/oreopets/portal/internal/api/apiutil"
	"github.com/oreopets/portal/internal/api/htmx"
	"github.com/oreopets/portal/internal/availability"
	"github.com/oreopets/portal/internal/backend"
	"github.com/oreopets/portal/internal/ratelimit"
	reservationstempl "github.com/oreopets/portal/internal/templates/components/reservations"
	"github.com/oreopets/portal/internal/templates/layouts"
)

const (
	backendTimeout = 10 * time.Second
	dateLabel      = "Mon, Jan 2"

	msgSubmitted      = "Reservation submitted! We will contact you soon 🐾"
	msgRequiredFields = "Please fill in all required fields."
	msgFixFields      = "Please correct the highlighted fields."
	msgPetFailed      = "Failed to save pet"
	msgConflict       = "The chosen slot overlaps an existing reservation."
	msgNetwork        = "Network error. Please try again."
	msgTooMany        = "Too many attempts. Please wait a moment and try again."
	msgCanceled       = "Your reservation has been canceled."
	msgCancelFailed   = "Cancellation failed. Please check the reservation number and phone."
	msgCancelNotFound = "No reservation matches that number."
	msgChooseService  = "Choose a service first"
	msgDateNotOffered = "This service is not offered on that day"
	msgDateOutOfRange = "That date is outside the booking window"
	msgTimeOutOfRange = "That time is outside the service hours"
	msgTimeOffGrid    = "Please pick one of the listed times"
	msgBadReservation = "Reservation number must be a positive number"
	msgBadCancelPhone = "Enter the phone number used to book"
)

// Backend is the subset of the booking backend the reservation flow needs.
type Backend interface {
	ListServices(ctx context.Context) ([]backend.Service, error)
	CreatePet(ctx context.Context, req backend.PetRequest) (*backend.Pet, error)
	CreateReservation(ctx context.Context, req backend.ReservationRequest) error
	CancelReservation(ctx context.Context, id int64, phone string) error
}

var (
	client        Backend
	validator     availability.Validator
	lookaheadDays = availability.LookaheadDays
	limiter       *ratelimit.Limiter
	trustProxy    bool
	now           = time.Now
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(b Backend, v availability.Validator, lookahead int, l *ratelimit.Limiter, trustForwarded bool) {
	client = b
	validator = v
	if lookahead > 0 {
		lookaheadDays = lookahead
	}
	validator.LookaheadDays = lookaheadDays
	limiter = l
	trustProxy = trustForwarded
}

// GET /reservation
func HandleReservationPage(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}

	draft := availability.Draft{}
	draft.SelectService(r.URL.Query().Get(availability.FieldServiceID))

	rules, err := loadRules(r.Context())
	data := formData(draft, rules, err)
	page := layouts.Base("Reservation", "/reservation", reservationstempl.Page(data))
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render reservation page", "Failed to render page")
}

// GET /reservation/service swaps the date and time controls for a newly
// selected service. Any previously chosen date or time is dropped.
func HandleServiceChange(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}

	draft := availability.Draft{}
	draft.SelectService(r.URL.Query().Get(availability.FieldServiceID))

	rules, err := loadRules(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("Failed to load services for slot refresh")
	}
	slots := buildSlots(draft, ruleFor(rules, draft.ServiceID), now())
	apiutil.RenderHTMLComponent(r.Context(), w, reservationstempl.Slots(slots), nil, "Failed to render reservation slots", "Failed to render slots")
}

// GET /reservation/check?field=date|time validates one control inline.
func HandleCheck(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}

	query := r.URL.Query()
	field := query.Get("field")
	if field != availability.FieldDate && field != availability.FieldTime {
		http.Error(w, "field must be date or time", http.StatusBadRequest)
		return
	}

	check := reservationstempl.CheckData{Field: field, OK: true}
	value := strings.TrimSpace(query.Get(field))
	if value != "" {
		rules, err := loadRules(r.Context())
		if err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("Failed to load services for inline check")
		}
		check.Message = checkValue(field, value, ruleFor(rules, query.Get(availability.FieldServiceID)))
		check.OK = check.Message == ""
	}

	apiutil.RenderHTMLComponent(r.Context(), w, reservationstempl.Check(check), nil, "Failed to render field check", "Failed to render check")
}

func checkValue(field, value string, rule *availability.ServiceRule) string {
	if rule == nil {
		return msgChooseService
	}
	switch field {
	case availability.FieldDate:
		if !availability.IsDateAllowed(value, rule) {
			return msgDateNotOffered
		}
		if !availability.IsDateInWindow(value, now(), lookaheadDays) {
			return msgDateOutOfRange
		}
	case availability.FieldTime:
		if !availability.IsTimeAllowed(value, rule) {
			return msgTimeOutOfRange
		}
		if !availability.IsOnGrid(value, rule, validator.StepMinutes) {
			return msgTimeOffGrid
		}
	}
	return ""
}

// POST /reservation validates the draft, saves the pet and then books the
// reservation for it.
func HandleReservationCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	draft := draftFromForm(r)

	ip := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		if result := limiter.Allow(ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded(r.Context(), "reservation", draft.Contact, ip, result.RetryAfter)
			rules, _ := loadRules(r.Context())
			data := formData(draft, rules, nil)
			data.Message = errorMessage(msgTooMany)
			renderForm(w, r, http.StatusTooManyRequests, data)
			return
		}
	}

	rules, err := loadRules(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load services for reservation")
		data := formData(draft, nil, err)
		data.Message = errorMessage(msgNetwork)
		renderForm(w, r, http.StatusBadGateway, data)
		return
	}

	rule := ruleFor(rules, draft.ServiceID)
	v := validator
	v.Today = now()
	if errs := v.Validate(draft, rule); errs != nil {
		logger.Debug().Str("errors", errs.Error()).Msg("Reservation rejected by validation")
		data := formData(draft, rules, nil)
		data.Errors = errs
		data.RuleViolation = errs.OutOfRule()
		data.Slots.DateError = errs[availability.FieldDate]
		data.Slots.TimeError = errs[availability.FieldTime]
		text := msgFixFields
		if errs.MissingRequired() {
			text = msgRequiredFields
		}
		data.Message = errorMessage(text)
		renderForm(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()

	pet, err := client.CreatePet(ctx, backend.PetRequest{
		Name:       draft.PetName,
		Species:    draft.Species,
		Breed:      draft.Breed,
		Age:        draft.AgeYears(),
		OwnerName:  draft.Owner,
		OwnerPhone: draft.Contact,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create pet")
		data := formData(draft, rules, nil)
		data.Message = errorMessage(petFailureMessage(err))
		renderForm(w, r, http.StatusBadGateway, data)
		return
	}

	err = client.CreateReservation(ctx, backend.ReservationRequest{
		PetID:           pet.ID,
		ServiceID:       rule.ID,
		ReservationTime: draft.ReservationTime(),
		Notes:           draft.Notes,
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, backend.ErrConflict) {
			status = http.StatusConflict
			logger.Info().Int64("pet_id", pet.ID).Str("reservation_time", draft.ReservationTime()).Msg("Reservation slot conflict")
		} else {
			logger.Error().Err(err).Int64("pet_id", pet.ID).Msg("Failed to create reservation")
		}
		data := formData(draft, rules, nil)
		data.Message = errorMessage(reservationFailureMessage(err))
		renderForm(w, r, status, data)
		return
	}

	logger.Info().
		Int64("pet_id", pet.ID).
		Int64("service_id", rule.ID).
		Str("reservation_time", draft.ReservationTime()).
		Msg("Reservation submitted")

	data := formData(availability.Draft{}, rules, nil)
	data.Message = &reservationstempl.Message{Kind: reservationstempl.MessageSuccess, Text: msgSubmitted}
	renderForm(w, r, http.StatusCreated, data)
}

// GET /reservation/cancel
func HandleCancelPage(w http.ResponseWriter, r *http.Request) {
	data := reservationstempl.CancelData{ReservationID: r.URL.Query().Get("id")}
	page := layouts.Base("Cancel Reservation", "/reservation", reservationstempl.CancelPage(data))
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render cancel page", "Failed to render page")
}

// POST /reservation/cancel cancels a BOOKED reservation for the customer who
// can name its number and booking phone.
func HandleCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	data := reservationstempl.CancelData{
		ReservationID: apiutil.FormValue(r, "reservationId"),
		Phone:         apiutil.FormValue(r, "phone"),
	}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		if result := limiter.Allow(ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded(r.Context(), "cancel", data.Phone, ip, result.RetryAfter)
			data.Message = errorMessage(msgTooMany)
			renderCancel(w, r, http.StatusTooManyRequests, data)
			return
		}
	}

	id, err := apiutil.ParsePositiveInt64Field(data.ReservationID, "reservationId")
	if err != nil {
		data.Message = errorMessage(msgBadReservation)
		renderCancel(w, r, http.StatusBadRequest, data)
		return
	}
	if !availability.IsPhoneNumber(data.Phone, validator.PhoneRegion) {
		data.Message = errorMessage(msgBadCancelPhone)
		renderCancel(w, r, http.StatusBadRequest, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()

	if err := client.CancelReservation(ctx, id, data.Phone); err != nil {
		status := http.StatusBadGateway
		text := msgNetwork
		switch {
		case errors.Is(err, backend.ErrNotFound):
			status = http.StatusNotFound
			text = apiutil.FirstNonEmpty(backend.MessageOf(err), msgCancelNotFound)
		case backend.StatusOf(err) != 0:
			status = backend.StatusOf(err)
			text = apiutil.FirstNonEmpty(backend.MessageOf(err), msgCancelFailed)
		}
		logger.Warn().Err(err).Int64("reservation_id", id).Msg("Customer cancellation failed")
		data.Message = errorMessage(text)
		renderCancel(w, r, status, data)
		return
	}

	logger.Info().Int64("reservation_id", id).Msg("Reservation canceled by customer")
	renderCancel(w, r, http.StatusOK, reservationstempl.CancelData{
		Message: &reservationstempl.Message{Kind: reservationstempl.MessageSuccess, Text: msgCanceled},
	})
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if client == nil {
		log.Ctx(r.Context()).Error().Msg("Reservation handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	}
	return true
}

// loadRules fetches the services and converts them into availability rules.
// Rules are rebuilt on every fetch, never patched.
func loadRules(ctx context.Context) ([]*availability.ServiceRule, error) {
	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()

	services, err := client.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	rules := make([]*availability.ServiceRule, 0, len(services))
	for _, svc := range services {
		rules = append(rules, availability.NewServiceRule(svc.ID, svc.Code, svc.Name, svc.Description, svc.AllowedDays, svc.StartTime, svc.EndTime))
	}
	return rules, nil
}

func ruleFor(rules []*availability.ServiceRule, serviceID string) *availability.ServiceRule {
	id, err := strconv.ParseInt(strings.TrimSpace(serviceID), 10, 64)
	if err != nil {
		return nil
	}
	return availability.FindRule(rules, id)
}

func draftFromForm(r *http.Request) availability.Draft {
	return availability.Draft{
		Owner:     apiutil.FormValue(r, availability.FieldOwner),
		Contact:   apiutil.FormValue(r, availability.FieldContact),
		PetName:   apiutil.FormValue(r, availability.FieldPetName),
		Species:   apiutil.FormValue(r, availability.FieldSpecies),
		Breed:     apiutil.FormValue(r, availability.FieldBreed),
		Age:       apiutil.FormValue(r, availability.FieldAge),
		ServiceID: apiutil.FormValue(r, availability.FieldServiceID),
		Date:      apiutil.FormValue(r, availability.FieldDate),
		Time:      apiutil.FormValue(r, availability.FieldTime),
		Notes:     r.FormValue(availability.FieldNotes),
	}
}

func formData(draft availability.Draft, rules []*availability.ServiceRule, loadErr error) reservationstempl.FormData {
	options := make([]reservationstempl.ServiceOption, 0, len(rules))
	for _, rule := range rules {
		options = append(options, reservationstempl.ServiceOption{
			ID:       rule.ID,
			Label:    serviceLabel(rule),
			Selected: strconv.FormatInt(rule.ID, 10) == draft.ServiceID,
		})
	}
	return reservationstempl.FormData{
		Draft:               draft,
		Services:            options,
		Slots:               buildSlots(draft, ruleFor(rules, draft.ServiceID), now()),
		ServicesUnavailable: loadErr != nil,
	}
}

func serviceLabel(rule *availability.ServiceRule) string {
	if rule.Description == "" {
		return rule.Name
	}
	return rule.Name + " – " + rule.Description
}

// buildSlots lists the bookable dates in the look-ahead window and the time
// grid of the rule. Without a rule both controls stay empty.
func buildSlots(draft availability.Draft, rule *availability.ServiceRule, today time.Time) reservationstempl.SlotsData {
	slots := reservationstempl.SlotsData{ServiceID: draft.ServiceID}
	if rule == nil {
		return slots
	}

	for _, date := range availability.SelectableDates(rule, today, lookaheadDays) {
		value := date.Format(availability.DateLayout)
		slots.Dates = append(slots.Dates, reservationstempl.DateOption{
			Value:    value,
			Label:    date.Format(dateLabel),
			Selected: value == draft.Date,
		})
	}

	earliest, ok := availability.EarliestAllowedDate(rule, today)
	slots.NoDates = !ok
	if ok {
		slots.MinDate = earliest.Format(availability.DateLayout)
	}
	slots.MaxDate = availability.CalendarDay(today, today.Location()).AddDate(0, 0, lookaheadDays-1).Format(availability.DateLayout)

	selected := availability.NormalizeClock(draft.Time)
	for _, slot := range availability.EnumerateTimeSlots(rule, validator.StepMinutes) {
		slots.Times = append(slots.Times, reservationstempl.TimeOption{Value: slot, Selected: slot == selected})
	}

	slots.AllowedDays = strings.Join(rule.AllowedDayNames(), ", ")
	slots.StartTime = rule.StartTime
	slots.EndTime = rule.EndTime
	step := validator.StepMinutes
	if step <= 0 {
		step = availability.DefaultStepMinutes
	}
	slots.StepSeconds = step * 60
	return slots
}

func petFailureMessage(err error) string {
	if errors.Is(err, backend.ErrTransport) {
		return msgNetwork
	}
	return msgPetFailed
}

func reservationFailureMessage(err error) string {
	if errors.Is(err, backend.ErrTransport) {
		return msgNetwork
	}
	if message := backend.MessageOf(err); message != "" {
		return message
	}
	if errors.Is(err, backend.ErrConflict) {
		return msgConflict
	}
	if status := backend.StatusOf(err); status != 0 {
		return fmt.Sprintf("Reservation failed (HTTP %d)", status)
	}
	return msgNetwork
}

func errorMessage(text string) *reservationstempl.Message {
	return &reservationstempl.Message{Kind: reservationstempl.MessageError, Text: text}
}

// renderForm answers htmx with 200 because htmx does not swap error
// responses; full page loads keep the real status.
func renderForm(w http.ResponseWriter, r *http.Request, status int, data reservationstempl.FormData) {
	var component templ.Component = layouts.Base("Reservation", "/reservation", reservationstempl.Page(data))
	if htmx.IsRequest(r) {
		component = reservationstempl.Form(data)
		status = http.StatusOK
	}
	apiutil.RenderHTMLComponentStatus(r.Context(), w, status, component, nil, "Failed to render reservation form", "Failed to render form")
}

func renderCancel(w http.ResponseWriter, r *http.Request, status int, data reservationstempl.CancelData) {
	var component templ.Component = layouts.Base("Cancel Reservation", "/reservation", reservationstempl.CancelPage(data))
	if htmx.IsRequest(r) {
		component = reservationstempl.CancelForm(data)
		status = http.StatusOK
	}
	apiutil.RenderHTMLComponentStatus(r.Context(), w, status, component, nil, "Failed to render cancel form", "Failed to render form")
}
