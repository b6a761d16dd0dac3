package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oreopets/portal/internal/api/apiutil"
	"github.com/oreopets/portal/internal/api/htmx"
	"github.com/oreopets/portal/internal/backend"
	"github.com/oreopets/portal/internal/ratelimit"
	authtempl "github.com/oreopets/portal/internal/templates/components/auth"
	"github.com/oreopets/portal/internal/templates/layouts"
)

const (
	defaultNext      = "/owner"
	loginTimeout     = 10 * time.Second
	msgBadLogin      = "Invalid credentials"
	msgOwnerRequired = "Owner account required"
	msgNetwork       = "Network error"
	msgTooMany       = "Too many attempts. Please wait a moment and try again."
)

// Authenticator exchanges credentials with the backend.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*backend.LoginResult, error)
}

var (
	authenticator Authenticator
	store         *Store
	limiter       *ratelimit.Limiter
	trustProxy    bool
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(a Authenticator, s *Store, l *ratelimit.Limiter, trustForwarded bool) {
	authenticator = a
	store = s
	limiter = l
	trustProxy = trustForwarded
}

// HandleLoginPage renders the sign-in page for GET /login.
func HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := authtempl.LoginData{Next: SafeNext(r.URL.Query().Get("next"))}
	page := layouts.Base("Owner Sign in", "/login", authtempl.Login(data))
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render login page", "Failed to render page")
}

// HandleLogin signs an owner in for POST /login.
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if authenticator == nil || store == nil {
		logger.Error().Msg("Auth handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	username := apiutil.FormValue(r, "username")
	password := r.FormValue("password")
	data := authtempl.LoginData{Username: username, Next: SafeNext(r.FormValue("next"))}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		if result := limiter.Allow(ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded(r.Context(), "login", username, ip, result.RetryAfter)
			data.Error = msgTooMany
			renderLoginError(w, r, http.StatusTooManyRequests, data)
			return
		}
	}

	if username == "" || password == "" {
		data.Error = msgBadLogin
		renderLoginError(w, r, http.StatusBadRequest, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), loginTimeout)
	defer cancel()

	result, err := authenticator.Login(ctx, username, password)
	if err != nil {
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, backend.ErrTransport):
			data.Error = msgNetwork
			status = http.StatusBadGateway
		case backend.StatusOf(err) != 0:
			data.Error = apiutil.FirstNonEmpty(backend.MessageOf(err), msgBadLogin)
		default:
			data.Error = msgNetwork
			status = http.StatusBadGateway
		}
		logger.Warn().Err(err).Str("username", ratelimit.SanitizeIdentifier(username)).Msg("Owner login failed")
		renderLoginError(w, r, status, data)
		return
	}

	if !strings.EqualFold(result.Role, backend.RoleOwner) {
		logger.Warn().Str("username", ratelimit.SanitizeIdentifier(username)).Str("role", result.Role).Msg("Login rejected: not an owner")
		data.Error = msgOwnerRequired
		renderLoginError(w, r, http.StatusForbidden, data)
		return
	}

	session, err := store.Login(w, result)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create owner session")
		http.Error(w, "Failed to sign in", http.StatusInternalServerError)
		return
	}

	logger.Info().Str("username", session.Username).Time("expires_at", session.ExpiresAt).Msg("Owner signed in")
	htmx.Redirect(w, r, data.Next)
}

// HandleLogout ends the session for POST /logout.
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	if store != nil {
		store.Logout(w, r)
	}
	htmx.Redirect(w, r, "/login")
}

// SafeNext returns next when it is a local absolute path and the dashboard
// otherwise, so the login form cannot be used as an open redirect.
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return defaultNext
	}
	parsed, err := url.Parse(next)
	if err != nil || parsed.IsAbs() || parsed.Host != "" {
		return defaultNext
	}
	return next
}

// renderLoginError answers htmx with 200 because htmx does not swap error
// responses.
func renderLoginError(w http.ResponseWriter, r *http.Request, status int, data authtempl.LoginData) {
	component := layouts.Base("Owner Sign in", "/login", authtempl.Login(data))
	if htmx.IsRequest(r) {
		component = authtempl.LoginForm(data)
		status = http.StatusOK
	}
	apiutil.RenderHTMLComponentStatus(r.Context(), w, status, component, nil, "Failed to render login form", "Failed to render page")
}
