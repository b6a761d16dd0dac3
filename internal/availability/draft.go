package availability

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

// Draft field names, shared with the reservation form.
const (
	FieldOwner     = "owner"
	FieldContact   = "contact"
	FieldPetName   = "name"
	FieldSpecies   = "species"
	FieldBreed     = "breed"
	FieldAge       = "age"
	FieldServiceID = "serviceId"
	FieldDate      = "date"
	FieldTime      = "time"
	FieldNotes     = "notes"
)

var requiredFields = []string{FieldDate, FieldTime, FieldServiceID, FieldOwner, FieldContact, FieldPetName, FieldSpecies}

// Draft is an in-progress reservation as typed into the form.
type Draft struct {
	Owner     string
	Contact   string
	PetName   string
	Species   string
	Breed     string
	Age       string
	ServiceID string
	Date      string
	Time      string
	Notes     string
}

// SelectService switches the draft to another service. A date or time picked
// under the previous service's rule never survives the switch.
func (d *Draft) SelectService(serviceID string) {
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == d.ServiceID {
		return
	}
	d.ServiceID = serviceID
	d.Date = ""
	d.Time = ""
}

// Value returns the draft field with the given form name.
func (d Draft) Value(field string) string {
	switch field {
	case FieldOwner:
		return d.Owner
	case FieldContact:
		return d.Contact
	case FieldPetName:
		return d.PetName
	case FieldSpecies:
		return d.Species
	case FieldBreed:
		return d.Breed
	case FieldAge:
		return d.Age
	case FieldServiceID:
		return d.ServiceID
	case FieldDate:
		return d.Date
	case FieldTime:
		return d.Time
	case FieldNotes:
		return d.Notes
	default:
		return ""
	}
}

// ReservationTime composes the local YYYY-MM-DDTHH:mm sent to the backend.
// It joins the strings as entered, so no time zone conversion can shift the day.
func (d Draft) ReservationTime() string {
	return strings.TrimSpace(d.Date) + "T" + NormalizeClock(d.Time)
}

// AgeYears returns the parsed age, treating an empty field as 0.
func (d Draft) AgeYears() int {
	age, err := strconv.Atoi(strings.TrimSpace(d.Age))
	if err != nil || age < 0 {
		return 0
	}
	return age
}

// ValidationErrors maps a form field to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+v[field])
	}
	return strings.Join(parts, "; ")
}

// MissingRequired reports whether any required field was left blank.
func (v ValidationErrors) MissingRequired() bool {
	for _, message := range v {
		if message == msgRequired {
			return true
		}
	}
	return false
}

// OutOfRule reports whether the date or time broke the service rule.
func (v ValidationErrors) OutOfRule() bool {
	return v[FieldDate] == msgDateNotAllowed || v[FieldDate] == msgDateOutOfWindow || v[FieldTime] == msgTimeNotAllowed || v[FieldTime] == msgTimeOffGrid
}

const (
	msgRequired       = "is required"
	msgDateNotAllowed  = "is not offered for this service"
	msgDateOutOfWindow = "is outside the booking window"
	msgTimeNotAllowed  = "is outside the service hours"
	msgTimeOffGrid     = "must be on a booking slot"
	msgBadAge          = "must be a whole number"
	msgBadContact      = "must be a valid phone number"
	msgUnknownService  = "is not an available service"
)

// Validator checks drafts against a service rule and the booking window.
type Validator struct {
	StepMinutes   int
	PhoneRegion   string
	LookaheadDays int
	// Today anchors the booking window; the zero value means time.Now().
	Today time.Time
}

// Validate returns nil when the draft can be submitted. The rule is the one
// of the selected service; a nil rule rejects the date and time.
func (v Validator) Validate(d Draft, rule *ServiceRule) ValidationErrors {
	errs := ValidationErrors{}
	for _, field := range requiredFields {
		if strings.TrimSpace(d.Value(field)) == "" {
			errs[field] = msgRequired
		}
	}

	if _, bad := errs[FieldServiceID]; !bad && rule == nil {
		errs[FieldServiceID] = msgUnknownService
	}
	if _, bad := errs[FieldDate]; !bad {
		today := v.Today
		if today.IsZero() {
			today = time.Now()
		}
		switch {
		case !IsDateAllowed(d.Date, rule):
			errs[FieldDate] = msgDateNotAllowed
		case !IsDateInWindow(d.Date, today, v.LookaheadDays):
			errs[FieldDate] = msgDateOutOfWindow
		}
	}
	if _, bad := errs[FieldTime]; !bad {
		switch {
		case !IsTimeAllowed(d.Time, rule):
			errs[FieldTime] = msgTimeNotAllowed
		case !IsOnGrid(d.Time, rule, v.StepMinutes):
			errs[FieldTime] = msgTimeOffGrid
		}
	}
	if age := strings.TrimSpace(d.Age); age != "" {
		if n, err := strconv.Atoi(age); err != nil || n < 0 {
			errs[FieldAge] = msgBadAge
		}
	}
	if _, bad := errs[FieldContact]; !bad && !IsPhoneNumber(d.Contact, v.PhoneRegion) {
		errs[FieldContact] = msgBadContact
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// IsPhoneNumber reports whether raw parses as a possible number for region.
// Local-only numbers such as 555-1234 are accepted.
func IsPhoneNumber(raw, region string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if region == "" {
		region = "US"
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(num)
}
