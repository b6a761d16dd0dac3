package dashboard

import (
	"html/template"

	"github.com/a-h/templ"

	"github.com/oreopets/portal/internal/templates"
)

type Row struct {
	ID          int64
	PetName     string
	OwnerName   string
	Phone       string
	Date        string
	Time        string
	Species     string
	Service     string
	Status      string
	Notes       string
	CanComplete bool
}

type SortHeader struct {
	Field string
	Label string
	Desc  bool
	// Query is the fragment query string with this column's direction flipped.
	Query template.URL
}

type TableData struct {
	Rows         []Row
	Total        int
	Phone        string
	Date         string
	Sort         string
	Headers      []SortHeader
	FetchedAt    string
	Loaded       bool
	Error        string
	PollSeconds  int
	CurrentQuery template.URL
}

type PageData struct {
	Username string
	Table    TableData
}

func Page(data PageData) templ.Component {
	return templates.Component("dashboard/page", data)
}

func Table(data TableData) templ.Component {
	return templates.Component("dashboard/table", data)
}
