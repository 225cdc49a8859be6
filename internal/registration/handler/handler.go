// Package handler exposes minor registration over HTTP.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/registration-mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vigorlog/internal/platform/middleware"
	"vigorlog/internal/registration"
	jsonResponse "vigorlog/internal/transport/http/json"
	"vigorlog/internal/transport/http/shared"
	dErrors "vigorlog/pkg/domain-errors"
	"vigorlog/pkg/validation"
)

// Service defines the registration operations the HTTP layer delegates to.
type Service interface {
	RegisterMinor(ctx context.Context, data registration.MinorRegistrationData) (*registration.Result, error)
}

// Handler handles the registration endpoint.
type Handler struct {
	registration Service
	logger       *slog.Logger
}

// New creates a registration Handler with the given service and logger.
func New(registrationService Service, logger *slog.Logger) *Handler {
	return &Handler{registration: registrationService, logger: logger}
}

// Register registers the registration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registrations/minor", h.HandleRegisterMinor)
}

// HandleRegisterMinor implements POST /registrations/minor.
//
// A rejected registration returns 400 with every failing rule, so the form can
// show all of them in one round trip. A duplicate email returns 409 and leaves
// nothing behind.
func (h *Handler) HandleRegisterMinor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req RegisterMinorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode registration request",
			"error", err,
			"request_id", requestID,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		shared.WriteError(w, err)
		return
	}

	data, err := req.ToRegistrationData()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.registration.RegisterMinor(ctx, data)
	if err != nil {
		var vErr *registration.ValidationError
		if errors.As(err, &vErr) {
			jsonResponse.WriteJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:  "registration_invalid",
				Errors: vErr.Errors,
			})
			return
		}
		h.logger.ErrorContext(ctx, "registration failed",
			"error", err,
			"request_id", requestID,
		)
		shared.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusCreated, toRegisterMinorResponse(result))
}
