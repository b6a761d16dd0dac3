package apiutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"

	"github.com/oreopets/portal/internal/api/authz"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// WriteHandlerError logs err and answers with its status and message. Errors
// that are not a HandlerError become a 500 with a generic message.
func WriteHandlerError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var handlerErr HandlerError
	if !errors.As(err, &handlerErr) {
		logger.Error().Err(err).Msg("Unhandled handler error")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	event := logger.Warn()
	if handlerErr.Status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(handlerErr.Err).Int("status", handlerErr.Status).Msg(handlerErr.Message)
	http.Error(w, handlerErr.Message, handlerErr.Status)
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// RenderHTMLComponent renders component into a buffer first so a failed
// render never leaves a half-written page. headers are set before writing.
// It returns false after answering with a 500.
func RenderHTMLComponent(ctx context.Context, w http.ResponseWriter, component templ.Component, headers map[string]string, logMsg, errMsg string) bool {
	return RenderHTMLComponentStatus(ctx, w, http.StatusOK, component, headers, logMsg, errMsg)
}

// RenderHTMLComponentStatus is RenderHTMLComponent with an explicit status code.
func RenderHTMLComponentStatus(ctx context.Context, w http.ResponseWriter, status int, component templ.Component, headers map[string]string, logMsg, errMsg string) bool {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg(logMsg)
		http.Error(w, errMsg, http.StatusInternalServerError)
		return false
	}

	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
	return true
}

// RequireOwner writes the matching error response and returns nil when the
// request has no owner session.
func RequireOwner(w http.ResponseWriter, r *http.Request, role string) *authz.AuthUser {
	logger := log.Ctx(r.Context())
	user, err := authz.RequireRole(r.Context(), role)
	if err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logger.Warn().Msg("Owner access denied: unauthenticated")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		case errors.Is(err, authz.ErrForbidden):
			logger.Warn().Str("role", authz.UserFromContext(r.Context()).Role).Msg("Owner access denied: forbidden")
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			logger.Error().Err(err).Msg("Owner access denied: error")
			http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
		}
		return nil
	}
	return user
}
