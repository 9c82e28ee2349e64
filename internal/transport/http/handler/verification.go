package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nayeem-ahmad/ndc95/internal/application/verification"
	"github.com/nayeem-ahmad/ndc95/internal/pkg/validate"
	"github.com/nayeem-ahmad/ndc95/internal/transport/http/middleware"
)

// VerificationHandler exposes the verification-code endpoints.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

// SendTest issues a verification code for the given recipient. The record
// write triggers the email; nothing is sent inline, so the response only
// promises that mail is on its way.
func (h *VerificationHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.ClaimsFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated, "user must be authenticated")
		return
	}

	var req verification.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidArgument, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidArgument, err.Error())
		return
	}

	v, err := h.svc.Issue(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IssueEnvelope{
		Success: true,
		Message: "Verification email will be sent shortly",
		Code:    v.Code, // testing-only; omit in a production variant
	})
}

// Get returns the stored record for a recipient, including any recorded
// delivery failure. Admin-only: the audit path for failed sends.
func (h *VerificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidArgument, "email is required")
		return
	}
	v, err := h.svc.Get(r.Context(), email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Cleanup runs the expired-code sweep on demand. Admin-only; the same sweep
// also runs on the hourly schedule.
func (h *VerificationHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.CleanupExpired(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CleanupEnvelope{Success: true, Deleted: deleted})
}
