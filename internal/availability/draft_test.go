package availability

import (
	"strings"
	"testing"
	"time"
)

// draftToday is the Wednesday before validDraft's Friday.
var draftToday = time.Date(2025, 7, 30, 9, 0, 0, 0, time.Local)

func validDraft() Draft {
	return Draft{
		Owner:     "Jane Doe",
		Contact:   "(415) 555-0132",
		PetName:   "Oreo",
		Species:   "Dog",
		Breed:     "Poodle",
		Age:       "2",
		ServiceID: "1",
		Date:      "2025-08-01", // Friday
		Time:      "10:30",
		Notes:     "Allergic to beef",
	}
}

func TestSelectServiceClearsDateAndTime(t *testing.T) {
	draft := validDraft()
	draft.SelectService("2")

	if draft.ServiceID != "2" {
		t.Fatalf("expected service 2, got %q", draft.ServiceID)
	}
	if draft.Date != "" || draft.Time != "" {
		t.Fatalf("expected date/time cleared, got %q %q", draft.Date, draft.Time)
	}
	if draft.Owner != "Jane Doe" || draft.PetName != "Oreo" {
		t.Fatal("unrelated fields must survive a service change")
	}
}

func TestSelectSameServiceKeepsSchedule(t *testing.T) {
	draft := validDraft()
	draft.SelectService(" 1 ")
	if draft.Date == "" || draft.Time == "" {
		t.Fatal("re-selecting the same service must not clear the schedule")
	}
}

func TestReservationTime(t *testing.T) {
	draft := validDraft()
	draft.Time = "10:30:00"
	if got := draft.ReservationTime(); got != "2025-08-01T10:30" {
		t.Fatalf("ReservationTime = %q", got)
	}
}

func TestValidateAcceptsValidDraft(t *testing.T) {
	v := Validator{StepMinutes: 30, PhoneRegion: "US", Today: draftToday}
	if errs := v.Validate(validDraft(), weekdayRule("FRIDAY")); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidate(t *testing.T) {
	v := Validator{StepMinutes: 30, PhoneRegion: "US", Today: draftToday}
	rule := weekdayRule("FRIDAY")

	tests := []struct {
		name     string
		mutate   func(*Draft)
		rule     *ServiceRule
		field    string
		required bool
		outOf    bool
	}{
		{"missing owner", func(d *Draft) { d.Owner = " " }, rule, FieldOwner, true, false},
		{"missing species", func(d *Draft) { d.Species = "" }, rule, FieldSpecies, true, false},
		{"missing date", func(d *Draft) { d.Date = "" }, rule, FieldDate, true, false},
		{"date on closed day", func(d *Draft) { d.Date = "2025-08-02" }, rule, FieldDate, false, true},
		{"date in the past", func(d *Draft) { d.Date = "2025-07-25" }, rule, FieldDate, false, true},
		{"date years back", func(d *Draft) { d.Date = "2020-01-03" }, rule, FieldDate, false, true},
		{"date past the window", func(d *Draft) { d.Date = "2025-08-15" }, rule, FieldDate, false, true},
		{"date years ahead", func(d *Draft) { d.Date = "2031-01-03" }, rule, FieldDate, false, true},
		{"time before opening", func(d *Draft) { d.Time = "08:30" }, rule, FieldTime, false, true},
		{"time off grid", func(d *Draft) { d.Time = "10:15" }, rule, FieldTime, false, true},
		{"negative age", func(d *Draft) { d.Age = "-1" }, rule, FieldAge, false, false},
		{"bad contact", func(d *Draft) { d.Contact = "call me" }, rule, FieldContact, false, false},
		{"unknown service", func(d *Draft) {}, nil, FieldServiceID, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := validDraft()
			tt.mutate(&draft)
			errs := v.Validate(draft, tt.rule)
			if _, ok := errs[tt.field]; !ok {
				t.Fatalf("expected error on %s, got %v", tt.field, errs)
			}
			if errs.MissingRequired() != tt.required {
				t.Fatalf("MissingRequired = %v, want %v", errs.MissingRequired(), tt.required)
			}
			if errs.OutOfRule() != tt.outOf {
				t.Fatalf("OutOfRule = %v, want %v", errs.OutOfRule(), tt.outOf)
			}
			if !strings.Contains(errs.Error(), tt.field) {
				t.Fatalf("error text %q does not mention %s", errs.Error(), tt.field)
			}
		})
	}
}

func TestValidateBookingWindowEdges(t *testing.T) {
	rule := NewServiceRule(2, "BOARD", "Boarding", "", nil, "09:00", "17:00")

	tests := []struct {
		name      string
		lookahead int
		date      string
		wantErr   string
	}{
		{"today", 0, "2025-07-30", ""},
		{"yesterday", 0, "2025-07-29", msgDateOutOfWindow},
		{"last day of default window", 0, "2025-08-12", ""},
		{"first day after default window", 0, "2025-08-13", msgDateOutOfWindow},
		{"custom window", 3, "2025-08-01", ""},
		{"after custom window", 3, "2025-08-02", msgDateOutOfWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validator{StepMinutes: 30, PhoneRegion: "US", LookaheadDays: tt.lookahead, Today: draftToday}
			draft := validDraft()
			draft.Date = tt.date
			errs := v.Validate(draft, rule)
			if got := errs[FieldDate]; got != tt.wantErr {
				t.Fatalf("date error = %q, want %q (all errors: %v)", got, tt.wantErr, errs)
			}
		})
	}
}

func TestIsPhoneNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"4155550132", true},
		{"(415) 555-0132", true},
		{"+1 415 555 0132", true},
		{"", false},
		{"12", false},
		{"not a phone", false},
	}
	for _, tt := range tests {
		if got := IsPhoneNumber(tt.input, "US"); got != tt.expected {
			t.Errorf("IsPhoneNumber(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
