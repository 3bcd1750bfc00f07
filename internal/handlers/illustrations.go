package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/platform/httpx"
	"github.com/atelier-mirabelle/api/internal/services"
)

var validIllustrationStatuses = map[domain.IllustrationStatus]struct{}{
	domain.IllustrationStatusPending:        {},
	domain.IllustrationStatusDepositPending: {},
	domain.IllustrationStatusDepositPaid:    {},
	domain.IllustrationStatusInProgress:     {},
	domain.IllustrationStatusClientReview:   {},
	domain.IllustrationStatusPaymentPending: {},
	domain.IllustrationStatusCompleted:      {},
	domain.IllustrationStatusCancelled:      {},
}

// IllustrationHandlers exposes the commissioned illustration endpoints nested
// under their parent order.
type IllustrationHandlers struct {
	illustrations services.IllustrationService
}

// NewIllustrationHandlers constructs a new IllustrationHandlers instance.
func NewIllustrationHandlers(illustrations services.IllustrationService) *IllustrationHandlers {
	return &IllustrationHandlers{illustrations: illustrations}
}

// Routes registers the customer facing read endpoints under /orders.
func (h *IllustrationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{orderID}/illustrations", h.listIllustrations)
	r.Get("/{orderID}/illustrations/{illustrationID}", h.getIllustration)
}

// AdminRoutes registers the back-office endpoints under /admin/orders.
func (h *IllustrationHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders/{orderID}/illustrations", h.listIllustrations)
	r.Get("/orders/{orderID}/illustrations/{illustrationID}", h.getIllustration)
	r.Post("/orders/{orderID}/illustrations/{illustrationID}:transition", h.transitionIllustration)
	r.Get("/orders/{orderID}/illustrations/{illustrationID}/status-changes", h.listStatusChanges)
}

type transitionIllustrationRequest struct {
	Status             string         `json:"status"`
	Reason             string         `json:"reason"`
	CancellationReason string         `json:"cancellation_reason"`
	ActorID            string         `json:"actor_id"`
	Metadata           map[string]any `json:"metadata"`
}

func (h *IllustrationHandlers) listIllustrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.illustrations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("illustration_service_unavailable", "illustration service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	items, err := h.illustrations.ListByOrder(ctx, orderID)
	if err != nil {
		writeIllustrationError(ctx, w, err)
		return
	}

	payloads := make([]illustrationPayload, 0, len(items))
	for _, ill := range items {
		payloads = append(payloads, buildIllustrationPayload(ill))
	}
	writeJSONResponse(w, http.StatusOK, illustrationListResponse{Items: payloads})
}

func (h *IllustrationHandlers) getIllustration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.illustrations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("illustration_service_unavailable", "illustration service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	illustrationID := strings.TrimSpace(chi.URLParam(r, "illustrationID"))
	if orderID == "" || illustrationID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id and illustration id are required", http.StatusBadRequest))
		return
	}

	ill, err := h.illustrations.Get(ctx, orderID, illustrationID)
	if err != nil {
		writeIllustrationError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, illustrationResponse{Illustration: buildIllustrationPayload(ill)})
}

func (h *IllustrationHandlers) transitionIllustration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.illustrations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("illustration_service_unavailable", "illustration service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	illustrationID := strings.TrimSpace(chi.URLParam(r, "illustrationID"))
	if orderID == "" || illustrationID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id and illustration id are required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxTransitionBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req transitionIllustrationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	status, ok := parseIllustrationStatus(req.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid illustration status", http.StatusBadRequest))
		return
	}

	ill, err := h.illustrations.TransitionStatus(ctx, services.IllustrationTransitionCommand{
		OrderID:        orderID,
		IllustrationID: illustrationID,
		ToStatus:       status,
		Reason:         cancellationReason(req.Reason, req.CancellationReason),
		TriggeredBy:    domain.TriggerManual,
		ActorID:        strings.TrimSpace(req.ActorID),
		Metadata:       cloneMap(req.Metadata),
	})
	if err != nil {
		writeIllustrationError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, illustrationResponse{Illustration: buildIllustrationPayload(ill)})
}

func (h *IllustrationHandlers) listStatusChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.illustrations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("illustration_service_unavailable", "illustration service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	illustrationID := strings.TrimSpace(chi.URLParam(r, "illustrationID"))
	if orderID == "" || illustrationID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id and illustration id are required", http.StatusBadRequest))
		return
	}

	changes, err := h.illustrations.ListStatusChanges(ctx, orderID, illustrationID)
	if err != nil {
		writeIllustrationError(ctx, w, err)
		return
	}

	items := make([]statusChangePayload, 0, len(changes))
	for _, change := range changes {
		items = append(items, buildIllustrationStatusChangePayload(change))
	}
	writeJSONResponse(w, http.StatusOK, statusChangeListResponse{Items: items})
}

type illustrationListResponse struct {
	Items []illustrationPayload `json:"items"`
}

type illustrationResponse struct {
	Illustration illustrationPayload `json:"illustration"`
}

type illustrationPayload struct {
	ID           string  `json:"id"`
	OrderID      string  `json:"order_id"`
	Kind         string  `json:"kind"`
	Status       string  `json:"status"`
	HumanCount   int     `json:"human_count,omitempty"`
	AnimalCount  int     `json:"animal_count,omitempty"`
	ItemCount    int     `json:"item_count,omitempty"`
	Pose         string  `json:"pose,omitempty"`
	Background   string  `json:"background,omitempty"`
	Description  string  `json:"description,omitempty"`
	Print        bool    `json:"print"`
	AddTracking  bool    `json:"add_tracking"`
	Price        int64   `json:"price"`
	CancelReason *string `json:"cancel_reason,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
	CompletedAt  string  `json:"completed_at,omitempty"`
	CancelledAt  string  `json:"cancelled_at,omitempty"`
}

func buildIllustrationPayload(ill services.Illustration) illustrationPayload {
	return illustrationPayload{
		ID:           strings.TrimSpace(ill.ID),
		OrderID:      strings.TrimSpace(ill.OrderID),
		Kind:         strings.TrimSpace(string(ill.Kind)),
		Status:       strings.TrimSpace(string(ill.Status)),
		HumanCount:   ill.HumanCount,
		AnimalCount:  ill.AnimalCount,
		ItemCount:    ill.ItemCount,
		Pose:         strings.TrimSpace(ill.Pose),
		Background:   strings.TrimSpace(ill.Background),
		Description:  strings.TrimSpace(ill.Description),
		Print:        ill.Print,
		AddTracking:  ill.AddTracking,
		Price:        ill.Price.Cents(),
		CancelReason: cloneStringPointer(ill.CancelReason),
		CreatedAt:    formatTime(ill.CreatedAt),
		UpdatedAt:    formatTime(ill.UpdatedAt),
		CompletedAt:  formatTime(pointerTime(ill.CompletedAt)),
		CancelledAt:  formatTime(pointerTime(ill.CancelledAt)),
	}
}

func buildIllustrationStatusChangePayload(change services.IllustrationStatusChange) statusChangePayload {
	payload := statusChangePayload{
		ID:          strings.TrimSpace(change.ID),
		ToStatus:    strings.TrimSpace(string(change.ToStatus)),
		Reason:      strings.TrimSpace(change.Reason),
		Metadata:    cloneMap(change.Metadata),
		TriggeredBy: strings.TrimSpace(string(change.TriggeredBy)),
		UserID:      strings.TrimSpace(change.UserID),
		CreatedAt:   formatTime(change.CreatedAt),
	}
	if change.FromStatus != nil {
		from := string(*change.FromStatus)
		payload.FromStatus = &from
	}
	return payload
}

func writeIllustrationError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrIllustrationInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrIllustrationNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("illustration_not_found", "illustration not found", http.StatusNotFound))
	case errors.Is(err, services.ErrIllustrationConflict):
		httpx.WriteError(ctx, w, httpx.NewError("illustration_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrIllustrationInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("illustration_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("illustration_error", "failed to process illustration request", http.StatusInternalServerError))
	}
}

func parseIllustrationStatus(raw string) (services.IllustrationStatus, bool) {
	status := domain.IllustrationStatus(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := validIllustrationStatuses[status]; !ok {
		return "", false
	}
	return status, true
}
