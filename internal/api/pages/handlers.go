// internal/api/pages/handlers.go
package pages

import (
	"net/http"

	"github.com/a-h/templ"

	"github.com/oreopets/portal/internal/api/apiutil"
	pagetempl "github.com/oreopets/portal/internal/templates/components/pages"
	"github.com/oreopets/portal/internal/templates/layouts"
)

// HandleHome serves GET /. The pattern "/" also catches unknown paths, which
// get the not-found page.
func HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		HandleNotFound(w, r)
		return
	}
	render(w, r, "Oreo Pet Bath & Care", "/", pagetempl.Home(homeContent))
}

func HandleServices(w http.ResponseWriter, r *http.Request) {
	render(w, r, "Services", "/services", pagetempl.Services(serviceCards))
}

func HandlePricing(w http.ResponseWriter, r *http.Request) {
	render(w, r, "Pricing", "/pricing", pagetempl.Pricing(priceGroups))
}

func HandleGallery(w http.ResponseWriter, r *http.Request) {
	render(w, r, "Gallery", "/gallery", pagetempl.Gallery(galleryPhotos()))
}

func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	page := layouts.Base("Page not found", "", pagetempl.NotFound())
	apiutil.RenderHTMLComponentStatus(r.Context(), w, http.StatusNotFound, page, nil, "Failed to render not found page", "Failed to render page")
}

func render(w http.ResponseWriter, r *http.Request, title, active string, content templ.Component) {
	page := layouts.Base(title, active, content)
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render page", "Failed to render page")
}
