package pages

import (
	"github.com/a-h/templ"

	"github.com/oreopets/portal/internal/templates"
)

type ServiceCard struct {
	Icon     string
	Title    string
	Subtitle string
	Lines    []string
}

type PriceItem struct {
	Label string
	Price string
}

type PriceGroup struct {
	Title string
	Note  []string
	Items []PriceItem
}

type GalleryPhoto struct {
	Src string
	Alt string
}

type HomeData struct {
	Headline string
	Tagline  string
	About    []string
	AboutZH  []string
}

func Home(data HomeData) templ.Component {
	return templates.Component("pages/home", data)
}

func Services(cards []ServiceCard) templ.Component {
	return templates.Component("pages/services", cards)
}

func Pricing(groups []PriceGroup) templ.Component {
	return templates.Component("pages/pricing", groups)
}

func Gallery(photos []GalleryPhoto) templ.Component {
	return templates.Component("pages/gallery", photos)
}

func NotFound() templ.Component {
	return templates.Component("pages/notfound", nil)
}
