// Package handler exposes the consent lifecycle over HTTP: granting and
// revoking consent records, compliance checks, and the dual-consent approval
// flow including signed parent approval links.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vigorlog/internal/consent/models"
	"vigorlog/internal/consent/service"
	"vigorlog/internal/platform/middleware"
	"vigorlog/internal/transport/http/shared"
	jsonResponse "vigorlog/internal/transport/http/json"
	"vigorlog/pkg/clock"
	id "vigorlog/pkg/domain"
	dErrors "vigorlog/pkg/domain-errors"
	"vigorlog/pkg/strutil"
	"vigorlog/pkg/validation"
)

// Service defines the consent operations the HTTP layer delegates to.
type Service interface {
	Grant(ctx context.Context, subjectID id.AthleteID, parentID *id.ParentID, consentTypes []models.Type) ([]*models.Record, error)
	Revoke(ctx context.Context, consentID id.ConsentID) (*models.Record, error)
	List(ctx context.Context, subjectID id.AthleteID) ([]*models.Record, error)
	CheckCompliance(ctx context.Context, athleteID id.AthleteID) (*service.ComplianceStatus, error)
	CreateRequest(ctx context.Context, athleteID id.AthleteID, parentID id.ParentID, consentTypes []models.Type) (*models.DualConsentRequest, error)
	ApproveRequest(ctx context.Context, requestID id.RequestID, parentID id.ParentID) (*models.DualConsentRequest, []*models.Record, error)
	RejectRequest(ctx context.Context, requestID id.RequestID, parentID id.ParentID) (*models.DualConsentRequest, error)
	MarkNotified(ctx context.Context, requestID id.RequestID) (*models.DualConsentRequest, error)
	ListRequestsByAthlete(ctx context.Context, athleteID id.AthleteID) ([]*models.DualConsentRequest, error)
	ListPendingForParent(ctx context.Context, parentID id.ParentID) ([]*models.DualConsentRequest, error)
}

// TokenService signs and validates parent approval links.
type TokenService interface {
	Issue(request *models.DualConsentRequest, now time.Time) (string, error)
	Validate(tokenString string) (id.RequestID, id.ParentID, error)
}

// Handler handles consent and dual-consent endpoints.
type Handler struct {
	consent Service
	tokens  TokenService
	logger  *slog.Logger
	clock   clock.Clock
}

// Option configures optional Handler dependencies.
type Option func(*Handler)

// WithClock replaces the clock used to stamp approval token issuance.
func WithClock(c clock.Clock) Option {
	return func(h *Handler) { h.clock = c }
}

// New creates a consent Handler. tokens may be nil, in which case dual-consent
// responses carry no approval token and token-based approval is unavailable.
func New(consent Service, tokens TokenService, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{consent: consent, tokens: tokens, logger: logger, clock: clock.Real{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consents", h.HandleGrant)
	r.Post("/consents/{consent_id}/revoke", h.HandleRevoke)
	r.Get("/athletes/{athlete_id}/consents", h.HandleList)
	r.Get("/athletes/{athlete_id}/compliance", h.HandleCompliance)

	r.Post("/dual-consent/requests", h.HandleCreateRequest)
	r.Post("/dual-consent/requests/{request_id}/approve", h.HandleApprove)
	r.Post("/dual-consent/requests/{request_id}/reject", h.HandleReject)
	r.Post("/dual-consent/requests/{request_id}/notified", h.HandleMarkNotified)
	r.Post("/dual-consent/approve", h.HandleApproveByToken)
	r.Get("/athletes/{athlete_id}/dual-consent/requests", h.HandleListByAthlete)
	r.Get("/parents/{parent_id}/dual-consent/requests", h.HandleListPendingForParent)
}

// HandleGrant implements POST /consents.
//
// Input: { "athlete_id": "...", "parent_id": "...", "types": ["medical_data"] }
// Output: { "records": [...] }
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		shared.WriteError(w, err)
		return
	}

	athleteID, err := id.ParseAthleteID(req.AthleteID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid athlete_id"))
		return
	}
	var parentID *id.ParentID
	if req.ParentID != "" {
		parsed, err := id.ParseParentID(req.ParentID)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid parent_id"))
			return
		}
		parentID = &parsed
	}

	records, err := h.consent.Grant(ctx, athleteID, parentID, toConsentTypes(req.Types))
	if err != nil {
		h.logError(ctx, "grant consent failed", err)
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusCreated, GrantResponse{Records: toRecordResponses(records)})
}

// HandleRevoke implements POST /consents/{consent_id}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	consentID, err := id.ParseConsentID(chi.URLParam(r, "consent_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid consent_id"))
		return
	}

	record, err := h.consent.Revoke(ctx, consentID)
	if err != nil {
		h.logError(ctx, "revoke consent failed", err)
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

// HandleList implements GET /athletes/{athlete_id}/consents.
// Revoked records are included; the history is part of the audit surface.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	athleteID, err := id.ParseAthleteID(chi.URLParam(r, "athlete_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid athlete_id"))
		return
	}

	records, err := h.consent.List(ctx, athleteID)
	if err != nil {
		h.logError(ctx, "list consents failed", err)
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, ListResponse{Records: toRecordResponses(records)})
}

// HandleCompliance implements GET /athletes/{athlete_id}/compliance.
func (h *Handler) HandleCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	athleteID, err := id.ParseAthleteID(chi.URLParam(r, "athlete_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid athlete_id"))
		return
	}

	status, err := h.consent.CheckCompliance(ctx, athleteID)
	if err != nil {
		h.logError(ctx, "compliance check failed", err)
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, toComplianceResponse(status))
}

// HandleCreateRequest implements POST /dual-consent/requests.
//
// Input: { "athlete_id": "...", "parent_id": "...", "types": [...] }
// Output: the created request plus a signed approval token for the parent link.
func (h *Handler) HandleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateDualConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		shared.WriteError(w, err)
		return
	}

	athleteID, err := id.ParseAthleteID(req.AthleteID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid athlete_id"))
		return
	}
	parentID, err := id.ParseParentID(req.ParentID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid parent_id"))
		return
	}

	request, err := h.consent.CreateRequest(ctx, athleteID, parentID, toConsentTypes(req.Types))
	if err != nil {
		h.logError(ctx, "create dual-consent request failed", err)
		shared.WriteError(w, err)
		return
	}

	response := CreateDualConsentResponse{Request: toRequestResponse(request)}
	if h.tokens != nil {
		token, err := h.tokens.Issue(request, h.clock.Now())
		if err != nil {
			h.logError(ctx, "issue approval token failed", err)
			shared.WriteError(w, err)
			return
		}
		response.ApprovalToken = token
	}
	jsonResponse.WriteJSON(w, http.StatusCreated, response)
}

// HandleApprove implements POST /dual-consent/requests/{request_id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "request_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request_id"))
		return
	}
	var req DecideDualConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		shared.WriteError(w, err)
		return
	}
	parentID, err := id.ParseParentID(req.ParentID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid parent_id"))
		return
	}

	h.approve(ctx, w, requestID, parentID)
}

// HandleApproveByToken implements POST /dual-consent/approve. The token from
// the parent's approval link identifies both the request and the parent.
func (h *Handler) HandleApproveByToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.tokens == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "token approval is not enabled"))
		return
	}
	var req TokenApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		shared.WriteError(w, err)
		return
	}

	requestID, parentID, err := h.tokens.Validate(req.Token)
	if err != nil {
		h.logError(ctx, "approval token rejected", err)
		shared.WriteError(w, err)
		return
	}

	h.approve(ctx, w, requestID, parentID)
}

func (h *Handler) approve(ctx context.Context, w http.ResponseWriter, requestID id.RequestID, parentID id.ParentID) {
	request, records, err := h.consent.ApproveRequest(ctx, requestID, parentID)
	if err != nil {
		h.logError(ctx, "approve dual-consent request failed", err)
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, ApproveDualConsentResponse{
		Request: toRequestResponse(request),
		Records: toRecordResponses(records),
	})
}

// HandleReject implements POST /dual-consent/requests/{request_id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "request_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request_id"))
		return
	}
	var req DecideDualConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		shared.WriteError(w, err)
		return
	}
	parentID, err := id.ParseParentID(req.ParentID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid parent_id"))
		return
	}

	request, err := h.consent.RejectRequest(ctx, requestID, parentID)
	if err != nil {
		h.logError(ctx, "reject dual-consent request failed", err)
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, toRequestResponse(request))
}

// HandleMarkNotified implements POST /dual-consent/requests/{request_id}/notified.
func (h *Handler) HandleMarkNotified(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "request_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request_id"))
		return
	}

	request, err := h.consent.MarkNotified(ctx, requestID)
	if err != nil {
		h.logError(ctx, "mark notified failed", err)
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, toRequestResponse(request))
}

// HandleListByAthlete implements GET /athletes/{athlete_id}/dual-consent/requests.
func (h *Handler) HandleListByAthlete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	athleteID, err := id.ParseAthleteID(chi.URLParam(r, "athlete_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid athlete_id"))
		return
	}

	requests, err := h.consent.ListRequestsByAthlete(ctx, athleteID)
	if err != nil {
		h.logError(ctx, "list dual-consent requests failed", err)
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, RequestListResponse{Requests: toRequestResponses(requests)})
}

// HandleListPendingForParent implements GET /parents/{parent_id}/dual-consent/requests.
func (h *Handler) HandleListPendingForParent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parentID, err := id.ParseParentID(chi.URLParam(r, "parent_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid parent_id"))
		return
	}

	requests, err := h.consent.ListPendingForParent(ctx, parentID)
	if err != nil {
		h.logError(ctx, "list pending dual-consent requests failed", err)
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, RequestListResponse{Requests: toRequestResponses(requests)})
}

func toConsentTypes(raw []string) []models.Type {
	strutil.TrimSlice(raw)
	types := make([]models.Type, 0, len(raw))
	for _, t := range raw {
		types = append(types, models.Type(t))
	}
	return types
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
		"device", middleware.GetDevice(ctx),
	)
}
