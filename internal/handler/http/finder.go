package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadagent/mailfinder/internal/service"
	"github.com/leadagent/mailfinder/pkg/httputil"
	"github.com/leadagent/mailfinder/pkg/pagination"
	"github.com/leadagent/mailfinder/pkg/validator"
)

// FinderHandler handles HTTP requests for email lookups.
type FinderHandler struct {
	service *service.FinderService
	logger  *slog.Logger
}

// NewFinderHandler creates a new finder HTTP handler.
func NewFinderHandler(svc *service.FinderService, logger *slog.Logger) *FinderHandler {
	return &FinderHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// FindEmailRequest is the JSON request body for a lookup. Domain may also be
// a company website URL.
type FindEmailRequest struct {
	FirstName   string `json:"first_name" validate:"required,notblank,max=100"`
	LastName    string `json:"last_name" validate:"required,notblank,max=100"`
	Domain      string `json:"domain" validate:"required,notblank,max=2048"`
	CompanyName string `json:"company_name" validate:"max=200"`
}

func (req *FindEmailRequest) input() *service.FindEmailInput {
	return &service.FindEmailInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Domain:      req.Domain,
		CompanyName: req.CompanyName,
	}
}

// VerifyEmailRequest is the body of the legacy /verify-email endpoint.
type VerifyEmailRequest struct {
	FirstName string `json:"first_name" validate:"required,notblank,max=100"`
	LastName  string `json:"last_name" validate:"required,notblank,max=100"`
	Domain    string `json:"domain" validate:"required,notblank,max=2048"`
}

// --- Response DTOs ---

// VerifyEmailResponse keeps the field names existing clients expect.
type VerifyEmailResponse struct {
	Email   string `json:"email"`
	IsValid bool   `json:"isValid"`
	Status  string `json:"status"`
}

// EnqueueResponse acknowledges an asynchronous lookup.
type EnqueueResponse struct {
	EventID string `json:"event_id"`
}

// --- Handlers ---

// FindEmail handles POST /api/v1/emails/find
func (h *FinderHandler) FindEmail(w http.ResponseWriter, r *http.Request) {
	var req FindEmailRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	lookup, err := h.service.FindEmail(r.Context(), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusCreated
	if lookup.Cached {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: lookup})
}

// EnqueueLookup handles POST /api/v1/emails/enqueue
func (h *FinderHandler) EnqueueLookup(w http.ResponseWriter, r *http.Request) {
	var req FindEmailRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	eventID, err := h.service.EnqueueLookup(r.Context(), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: EnqueueResponse{EventID: eventID}})
}

// VerifyEmail handles POST /verify-email. A miss is reported as isValid
// false with the reason as status.
func (h *FinderHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	lookup, err := h.service.FindEmail(r.Context(), &service.FindEmailInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Domain:    req.Domain,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := VerifyEmailResponse{
		Email:   lookup.Email,
		IsValid: lookup.Verified,
		Status:  lookup.Status,
	}
	if !lookup.Verified {
		resp.Status = string(lookup.Reason)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetLookup handles GET /api/v1/lookups/{id}
func (h *FinderHandler) GetLookup(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	lookup, err := h.service.GetLookup(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: lookup})
}

// ListLookups handles GET /api/v1/lookups?domain=
func (h *FinderHandler) ListLookups(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListLookupsByDomain(r.Context(), r.URL.Query().Get("domain"), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
