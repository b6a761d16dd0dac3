package layouts

import (
	"context"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/oreopets/portal/internal/api/authz"
	"github.com/oreopets/portal/internal/templates"
)

type navLink struct {
	Href  string
	Label string
}

var navLinks = []navLink{
	{Href: "/", Label: "Home"},
	{Href: "/services", Label: "Service"},
	{Href: "/pricing", Label: "Pricing"},
	{Href: "/gallery", Label: "Gallery"},
	{Href: "/reservation", Label: "Reservation"},
}

type baseData struct {
	Title    string
	ThemeCSS template.CSS
	Nav      []navLink
	Active   string
	User     *authz.AuthUser
	Content  template.HTML
	Year     int
}

// Base wraps content in the site header and footer. active is the path of
// the nav entry to highlight.
func Base(title, active string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		body, err := templates.HTML(ctx, content)
		if err != nil {
			return err
		}
		data := baseData{
			Title:    title,
			ThemeCSS: template.CSS(getThemeCssVars(nil)),
			Nav:      navLinks,
			Active:   active,
			User:     authz.UserFromContext(ctx),
			Content:  body,
			Year:     time.Now().Year(),
		}
		return templates.Component("layout/base", data).Render(ctx, w)
	})
}
