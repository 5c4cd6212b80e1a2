package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"UnjobCore/internal/escrow"
	"UnjobCore/internal/hiring"
	"UnjobCore/internal/models"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Hiring *hiring.Service
	Escrow *escrow.Coordinator
}

func NewHandler(hiringSvc *hiring.Service, escrowSvc *escrow.Coordinator) *Handler {
	return &Handler{Hiring: hiringSvc, Escrow: escrowSvc}
}

type createGigRequest struct {
	Title    string `json:"title"`
	Budget   int64  `json:"budget"`
	Quantity int    `json:"quantity"`
}

type gigResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Budget      int64  `json:"budget"`
	Quantity    int    `json:"quantity"`
	FilledCount int    `json:"filledCount"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
}

type applyRequest struct {
	Iterations int `json:"iterations"`
}

type applicationResponse struct {
	ID         string `json:"id"`
	GigID      string `json:"gigId"`
	Status     string `json:"status"`
	Iterations int    `json:"iterations"`
	IsPriority bool   `json:"isPriority"`
	CreatedAt  string `json:"createdAt"`
}

type acceptResponse struct {
	Accepted        bool   `json:"accepted"`
	RequiresPayment bool   `json:"requiresPayment"`
	GatewayOrderID  string `json:"gatewayOrderId,omitempty"`
	Amount          int64  `json:"amount,omitempty"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type verifyRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

func (h *Handler) CreateGig(w http.ResponseWriter, r *http.Request) {
	companyID := r.Header.Get("X-User-Id")
	if companyID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user id")
		return
	}

	var req createGigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	gig, err := h.Hiring.CreateGig(r.Context(), companyID, req.Title, req.Budget, req.Quantity)
	if err != nil {
		h.writeHiringError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGigResponse(gig))
}

func (h *Handler) GetGig(w http.ResponseWriter, r *http.Request) {
	gig, err := h.Hiring.GetGig(r.Context(), chi.URLParam(r, "gigId"))
	if err != nil {
		h.writeHiringError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGigResponse(gig))
}

func (h *Handler) CloseGig(w http.ResponseWriter, r *http.Request) {
	companyID := r.Header.Get("X-User-Id")
	if companyID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user id")
		return
	}
	if err := h.Hiring.CloseGig(r.Context(), companyID, chi.URLParam(r, "gigId")); err != nil {
		h.writeHiringError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	freelancerID := r.Header.Get("X-User-Id")
	if freelancerID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user id")
		return
	}

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	if req.Iterations == 0 {
		req.Iterations = 1
	}

	app, err := h.Hiring.Apply(r.Context(), chi.URLParam(r, "gigId"), freelancerID, req.Iterations)
	if err != nil {
		h.writeHiringError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, applicationResponse{
		ID:         app.ID,
		GigID:      app.GigID,
		Status:     string(app.Status),
		Iterations: app.Iterations,
		IsPriority: app.IsPriority,
		CreatedAt:  app.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	companyID := r.Header.Get("X-User-Id")
	if companyID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user id")
		return
	}

	res, err := h.Hiring.Accept(r.Context(), companyID, chi.URLParam(r, "gigId"), chi.URLParam(r, "freelancerId"))
	if err != nil {
		h.writeHiringError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acceptResponse{
		Accepted:        res.Accepted,
		RequiresPayment: res.RequiresPayment,
		GatewayOrderID:  res.GatewayOrderID,
		Amount:          res.Amount,
	})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	companyID := r.Header.Get("X-User-Id")
	if companyID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user id")
		return
	}

	var req rejectRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.Hiring.Reject(r.Context(), companyID, chi.URLParam(r, "gigId"), chi.URLParam(r, "freelancerId"), req.Reason); err != nil {
		h.writeHiringError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// VerifyPayment is the gateway callback. The response stays coarse: the
// gateway gets success or a status code, never internal error detail.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "missing verification fields")
		return
	}

	_, err := h.Escrow.Verify(r.Context(), req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, escrow.ErrInvalidSignature):
			writeError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "signature mismatch")
		case errors.Is(err, escrow.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "unknown order")
		default:
			writeError(w, http.StatusInternalServerError, "VERIFY_FAILED", "verification failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeHiringError(w http.ResponseWriter, err error) {
	var authErr *hiring.AuthorizationError
	if errors.As(err, &authErr) {
		writeBillingError(w, http.StatusForbidden, string(authErr.Reason), "subscription does not permit this action")
		return
	}

	switch {
	case errors.Is(err, hiring.ErrGigNotFound):
		writeError(w, http.StatusNotFound, "GIG_NOT_FOUND", "gig not found")
	case errors.Is(err, hiring.ErrApplicationNotFound):
		writeError(w, http.StatusNotFound, "APPLICATION_NOT_FOUND", "application not found")
	case errors.Is(err, hiring.ErrGigFull):
		writeError(w, http.StatusConflict, "GIG_FULL", "gig has no free slots")
	case errors.Is(err, hiring.ErrGigNotOpen):
		writeError(w, http.StatusConflict, "GIG_NOT_OPEN", "gig is not open")
	case errors.Is(err, hiring.ErrAlreadyApplied):
		writeError(w, http.StatusConflict, "ALREADY_APPLIED", "already applied to this gig")
	case errors.Is(err, hiring.ErrNotPending):
		writeError(w, http.StatusConflict, "NOT_PENDING", "application is not pending")
	case errors.Is(err, hiring.ErrNotOwner):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "gig belongs to another company")
	case errors.Is(err, hiring.ErrInvalidIterations):
		writeError(w, http.StatusBadRequest, "INVALID_ITERATIONS", "iterations must be within 1..20")
	case errors.Is(err, hiring.ErrInvalidGig):
		writeError(w, http.StatusBadRequest, "INVALID_GIG", "budget and quantity must be positive")
	case errors.Is(err, hiring.ErrPaymentInit):
		writeError(w, http.StatusBadGateway, "PAYMENT_INIT_FAILED", "payment gateway unavailable, retry acceptance")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "request failed")
	}
}

func toGigResponse(gig *models.Gig) gigResponse {
	return gigResponse{
		ID:          gig.ID,
		Title:       gig.Title,
		Budget:      gig.Budget,
		Quantity:    gig.Quantity,
		FilledCount: gig.FilledCount,
		Status:      string(gig.Status),
		CreatedAt:   gig.CreatedAt.Format(time.RFC3339),
	}
}
