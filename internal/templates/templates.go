// Package templates renders the portal's embedded HTML views as templ components.
package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

//go:embed views/*.html
var viewFS embed.FS

var (
	views     *template.Template
	viewsOnce sync.Once
	viewsErr  error
)

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"join":  strings.Join,
	"eq_ci": strings.EqualFold,
	"seq": func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	},
	"dict": func(pairs ...any) (map[string]any, error) {
		if len(pairs)%2 != 0 {
			return nil, fmt.Errorf("dict needs key/value pairs")
		}
		m := make(map[string]any, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			key, ok := pairs[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
			}
			m[key] = pairs[i+1]
		}
		return m, nil
	},
}

func load() (*template.Template, error) {
	viewsOnce.Do(func() {
		views, viewsErr = template.New("views").Funcs(funcs).ParseFS(viewFS, "views/*.html")
	})
	return views, viewsErr
}

// Component renders the named view with data.
func Component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := load()
		if err != nil {
			return fmt.Errorf("parse views: %w", err)
		}
		return t.ExecuteTemplate(w, name, data)
	})
}

// HTML renders a component to a string for embedding in another view.
func HTML(ctx context.Context, c templ.Component) (template.HTML, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return template.HTML(sb.String()), nil
}
