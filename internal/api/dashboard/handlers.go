// internal/api/dashboard/handlers.go
package dashboard

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oreopets/portal/internal/api/apiutil"
	"github.com/oreopets/portal/internal/api/authz"
	"github.com/oreopets/portal/internal/api/htmx"
	"github.com/oreopets/portal/internal/backend"
	"github.com/oreopets/portal/internal/dashboard"
	dashboardtempl "github.com/oreopets/portal/internal/templates/components/dashboard"
	"github.com/oreopets/portal/internal/templates/layouts"
)

const (
	refreshTimeout   = 10 * time.Second
	fetchedAtLayout  = "15:04:05"
	msgLoadFailed    = "Could not load reservations. Retrying shortly."
	msgRefreshFailed = "The latest refresh failed; showing the last loaded reservations."
)

var sortLabels = map[dashboard.SortField]string{
	dashboard.SortDate:   "Date",
	dashboard.SortTime:   "Time",
	dashboard.SortStatus: "Status",
}

// SessionEnder ends the owner session behind a request.
type SessionEnder interface {
	Logout(w http.ResponseWriter, r *http.Request)
}

var (
	registry     *dashboard.Registry
	sessions     SessionEnder
	pollInterval = 10 * time.Second
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(reg *dashboard.Registry, s SessionEnder, poll time.Duration) {
	registry = reg
	sessions = s
	if poll > 0 {
		pollInterval = poll
	}
}

// HandleDashboardPage renders GET /owner.
func HandleDashboardPage(w http.ResponseWriter, r *http.Request) {
	user, entry, ok := ownerEntry(w, r)
	if !ok {
		return
	}

	entry.Presence.Report(true)
	snap := loadedSnapshot(r.Context(), entry)
	if expired(w, r, snap) {
		return
	}

	data := dashboardtempl.PageData{
		Username: user.Username,
		Table:    tableData(snap, filterFromRequest(r)),
	}
	page := layouts.Base("Owner Dashboard", "/owner", dashboardtempl.Page(data))
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render dashboard page", "Failed to render page")
}

// HandleReservations renders the table fragment for GET /owner/reservations.
// Polling requests only arrive while the page is visible, so each one also
// counts as a visibility heartbeat.
func HandleReservations(w http.ResponseWriter, r *http.Request) {
	_, entry, ok := ownerEntry(w, r)
	if !ok {
		return
	}

	entry.Presence.Report(true)
	snap := loadedSnapshot(r.Context(), entry)
	if expired(w, r, snap) {
		return
	}
	renderTable(w, r, snap, filterFromRequest(r))
}

// HandleComplete marks a reservation completed for
// POST /owner/reservations/{id}/complete. The table is rendered with the
// optimistic status right away; the backend call and the reconciling refresh
// continue in the background.
func HandleComplete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	_, entry, ok := ownerEntry(w, r)
	if !ok {
		return
	}

	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteHandlerError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err})
		return
	}

	matched, _ := entry.Engine.Complete(r.Context(), id)
	if !matched {
		logger.Debug().Int64("reservation_id", id).Msg("Complete requested for a reservation that is not BOOKED in the snapshot")
	}
	renderTable(w, r, entry.Engine.Snapshot(), filterFromRequest(r))
}

// HandleRefresh runs a refresh now for POST /owner/refresh. A refresh already
// in flight wins and this one is dropped.
func HandleRefresh(w http.ResponseWriter, r *http.Request) {
	_, entry, ok := ownerEntry(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()
	if !entry.Engine.Refresh(ctx) {
		log.Ctx(r.Context()).Debug().Msg("Manual refresh dropped; another refresh is in flight")
	}

	snap := entry.Engine.Snapshot()
	if expired(w, r, snap) {
		return
	}
	renderTable(w, r, snap, filterFromRequest(r))
}

// HandleVisibility records the page's visibility for POST /owner/visibility.
func HandleVisibility(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil || registry == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	visible, err := strconv.ParseBool(r.FormValue("visible"))
	if err != nil {
		http.Error(w, "visible must be true or false", http.StatusBadRequest)
		return
	}

	// Hidden reports never create an entry.
	if entry, ok := registry.Get(user.SessionID); ok {
		entry.Presence.Report(visible)
	} else if visible {
		registry.Acquire(user.SessionID, user.Token).Presence.Report(true)
	}
	w.WriteHeader(http.StatusNoContent)
}

func ownerEntry(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, *dashboard.Entry, bool) {
	if registry == nil {
		log.Ctx(r.Context()).Error().Msg("Dashboard handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}
	user := apiutil.RequireOwner(w, r, backend.RoleOwner)
	if user == nil {
		return nil, nil, false
	}
	return user, registry.Acquire(user.SessionID, user.Token), true
}

// loadedSnapshot refreshes synchronously until the first fetch succeeds, so
// the first page load is never empty while the poller warms up.
func loadedSnapshot(ctx context.Context, entry *dashboard.Entry) dashboard.Snapshot {
	snap := entry.Engine.Snapshot()
	if !snap.FetchedAt.IsZero() {
		return snap
	}
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	entry.Engine.Refresh(ctx)
	return entry.Engine.Snapshot()
}

// expired signs the owner out when the backend rejected their token.
func expired(w http.ResponseWriter, r *http.Request, snap dashboard.Snapshot) bool {
	if !errors.Is(snap.LastErr, backend.ErrUnauthorized) {
		return false
	}
	log.Ctx(r.Context()).Info().Msg("Backend rejected owner token; signing out")
	if sessions != nil {
		sessions.Logout(w, r)
	}
	htmx.Redirect(w, r, "/login?next="+url.QueryEscape("/owner"))
	return true
}

func filterFromRequest(r *http.Request) dashboard.Filter {
	return dashboard.Filter{
		Phone: strings.TrimSpace(r.FormValue("phone")),
		Date:  strings.TrimSpace(r.FormValue("date")),
		Sort:  dashboard.CompleteSort(dashboard.ParseSort(r.FormValue("sort"))),
	}
}

func filterQuery(f dashboard.Filter) template.URL {
	values := url.Values{}
	if f.Phone != "" {
		values.Set("phone", f.Phone)
	}
	if f.Date != "" {
		values.Set("date", f.Date)
	}
	values.Set("sort", dashboard.FormatSort(f.Sort))
	// Encode escapes every value, so the result is safe in an href.
	return template.URL(values.Encode())
}

func tableData(snap dashboard.Snapshot, f dashboard.Filter) dashboardtempl.TableData {
	view := dashboard.View(snap.Records, f)
	rows := make([]dashboardtempl.Row, 0, len(view))
	for _, rec := range view {
		rows = append(rows, dashboardtempl.Row{
			ID:          rec.ID,
			PetName:     rec.PetName,
			OwnerName:   rec.OwnerName,
			Phone:       rec.Phone,
			Date:        rec.Date,
			Time:        rec.Time,
			Species:     rec.Species,
			Service:     rec.Service,
			Status:      rec.Status,
			Notes:       rec.Notes,
			CanComplete: strings.EqualFold(rec.Status, backend.StatusBooked),
		})
	}

	headers := make([]dashboardtempl.SortHeader, 0, len(f.Sort))
	for _, key := range f.Sort {
		headers = append(headers, dashboardtempl.SortHeader{
			Field: string(key.Field),
			Label: sortLabels[key.Field],
			Desc:  key.Desc,
			Query: filterQuery(f.Toggle(key.Field)),
		})
	}

	data := dashboardtempl.TableData{
		Rows:         rows,
		Total:        len(snap.Records),
		Phone:        f.Phone,
		Date:         f.Date,
		Sort:         dashboard.FormatSort(f.Sort),
		Headers:      headers,
		Loaded:       !snap.FetchedAt.IsZero(),
		PollSeconds:  int(pollInterval / time.Second),
		CurrentQuery: filterQuery(f),
	}
	if data.Loaded {
		data.FetchedAt = snap.FetchedAt.Format(fetchedAtLayout)
	}
	switch {
	case snap.LastErr == nil:
	case data.Loaded:
		data.Error = msgRefreshFailed
	default:
		data.Error = msgLoadFailed
	}
	return data
}

func renderTable(w http.ResponseWriter, r *http.Request, snap dashboard.Snapshot, f dashboard.Filter) {
	component := dashboardtempl.Table(tableData(snap, f))
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render reservations table", "Failed to render reservations")
}
