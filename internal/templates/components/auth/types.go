package auth

import (
	"github.com/a-h/templ"

	"github.com/oreopets/portal/internal/templates"
)

type LoginData struct {
	Username string
	Next     string
	Error    string
}

// Login is the full sign-in card.
func Login(data LoginData) templ.Component {
	return templates.Component("auth/login", data)
}

// LoginForm is the form alone, swapped in after a failed htmx submit.
func LoginForm(data LoginData) templ.Component {
	return templates.Component("auth/login_form", data)
}
