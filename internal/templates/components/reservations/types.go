package reservations

import (
	"github.com/a-h/templ"

	"github.com/oreopets/portal/internal/availability"
	"github.com/oreopets/portal/internal/templates"
)

const (
	MessageSuccess = "success"
	MessageError   = "error"
)

type Message struct {
	Kind string
	Text string
}

type ServiceOption struct {
	ID       int64
	Label    string
	Selected bool
}

type DateOption struct {
	Value    string
	Label    string
	Selected bool
}

type TimeOption struct {
	Value    string
	Selected bool
}

// SlotsData drives the date and time controls for the selected service.
type SlotsData struct {
	ServiceID   string
	Dates       []DateOption
	Times       []TimeOption
	MinDate     string
	MaxDate     string
	AllowedDays string
	StartTime   string
	EndTime     string
	StepSeconds int
	// NoDates is set when no allowed weekday falls inside the look-ahead window.
	NoDates   bool
	DateError string
	TimeError string
}

type FormData struct {
	Draft               availability.Draft
	Services            []ServiceOption
	Slots               SlotsData
	Errors              map[string]string
	Message             *Message
	ServicesUnavailable bool
	RuleViolation       bool
}

type CheckData struct {
	Field   string
	OK      bool
	Message string
}

type CancelData struct {
	ReservationID string
	Phone         string
	Message       *Message
}

// Page is the reservation section including the form.
func Page(data FormData) templ.Component {
	return templates.Component("reservations/page", data)
}

// Form is swapped in place after a submit.
func Form(data FormData) templ.Component {
	return templates.Component("reservations/form", data)
}

// Slots is swapped in after a service change.
func Slots(data SlotsData) templ.Component {
	return templates.Component("reservations/slots", data)
}

func Check(data CheckData) templ.Component {
	return templates.Component("reservations/check", data)
}

func CancelPage(data CancelData) templ.Component {
	return templates.Component("reservations/cancel_page", data)
}

func CancelForm(data CancelData) templ.Component {
	return templates.Component("reservations/cancel_form", data)
}
