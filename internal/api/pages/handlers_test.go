package pages

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPages(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		handler  http.HandlerFunc
		status   int
		contains []string
	}{
		{"home", "/", HandleHome, http.StatusOK, []string{"Welcome to Oreo Pet Bath &amp; Care", "About Us"}},
		{"unknown path", "/nope", HandleHome, http.StatusNotFound, []string{"Page not found"}},
		{"services", "/services", HandleServices, http.StatusOK, []string{"Pet Grooming", "Pet Pick Ups/Drop Offs"}},
		{"pricing", "/pricing", HandlePricing, http.StatusOK, []string{"Handmade Snacks", "Dog Full Grooming"}},
		{"gallery", "/gallery", HandleGallery, http.StatusOK, []string{"/static/gallery/photo1.jpg", "/static/gallery/photo30.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			body := rec.Body.String()
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("expected %q in body", want)
				}
			}
		})
	}
}

func TestGalleryPhotos(t *testing.T) {
	photos := galleryPhotos()
	if len(photos) != galleryPhotoCount {
		t.Fatalf("expected %d photos, got %d", galleryPhotoCount, len(photos))
	}
	if photos[4].Alt != "Gallery photo 5" {
		t.Fatalf("unexpected alt %q", photos[4].Alt)
	}
}
