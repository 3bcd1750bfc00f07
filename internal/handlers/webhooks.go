package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/platform/httpx"
	"github.com/atelier-mirabelle/api/internal/platform/idempotency"
	"github.com/atelier-mirabelle/api/internal/services"
)

const (
	maxWebhookBodySize = 256 * 1024
	webhookEventTTL    = 72 * time.Hour
)

// StripeWebhookHandlers receives payment processor callbacks and routes
// confirmed checkout sessions to the order and illustration services.
type StripeWebhookHandlers struct {
	orders        services.OrderService
	illustrations services.IllustrationService
	secret        string
	events        idempotency.Store
	clock         func() time.Time
	logger        func(ctx context.Context, event string, fields map[string]any)
}

// StripeWebhookConfig carries the collaborators for NewStripeWebhookHandlers.
type StripeWebhookConfig struct {
	Orders        services.OrderService
	Illustrations services.IllustrationService
	// SigningSecret verifies the Stripe-Signature header. Empty disables
	// verification, which is only acceptable in local development.
	SigningSecret string
	// Events deduplicates processor event ids across retries.
	Events idempotency.Store
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

// NewStripeWebhookHandlers constructs a new StripeWebhookHandlers instance.
func NewStripeWebhookHandlers(cfg StripeWebhookConfig) *StripeWebhookHandlers {
	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &StripeWebhookHandlers{
		orders:        cfg.Orders,
		illustrations: cfg.Illustrations,
		secret:        strings.TrimSpace(cfg.SigningSecret),
		events:        cfg.Events,
		clock:         clock,
		logger:        logger,
	}
}

// Routes registers the /webhooks endpoints.
func (h *StripeWebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.handleStripeEvent)
}

type webhookAckResponse struct {
	Received bool   `json:"received"`
	EventID  string `json:"event_id,omitempty"`
	Replay   bool   `json:"replay,omitempty"`
	Ignored  bool   `json:"ignored,omitempty"`
}

func (h *StripeWebhookHandlers) handleStripeEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	event, err := h.parseEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
		return
	}

	eventID := strings.TrimSpace(event.ID)
	if eventID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "event id is required", http.StatusBadRequest))
		return
	}

	if h.events != nil {
		reservation, err := h.events.Reserve(ctx, "stripe_event_"+eventID, eventID, h.clock(), webhookEventTTL)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("webhook_error", "failed to reserve webhook event", http.StatusInternalServerError))
			return
		}
		if reservation.State != idempotency.ReservationStateNew {
			h.logger(ctx, "webhook.replay_skipped", map[string]any{"event_id": eventID, "type": string(event.Type)})
			writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true, EventID: eventID, Replay: true})
			return
		}
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(ctx, w, event, eventID)
	default:
		h.logger(ctx, "webhook.ignored", map[string]any{"event_id": eventID, "type": string(event.Type)})
		h.completeEvent(ctx, eventID)
		writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true, EventID: eventID, Ignored: true})
	}
}

func (h *StripeWebhookHandlers) handleCheckoutCompleted(ctx context.Context, w http.ResponseWriter, event stripe.Event, eventID string) {
	if event.Data == nil {
		h.releaseEvent(ctx, eventID)
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "event has no data payload", http.StatusBadRequest))
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.releaseEvent(ctx, eventID)
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed checkout session payload", http.StatusBadRequest))
		return
	}

	intentID := ""
	if session.PaymentIntent != nil {
		intentID = strings.TrimSpace(session.PaymentIntent.ID)
	}
	if intentID == "" {
		h.releaseEvent(ctx, eventID)
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "checkout session has no payment intent", http.StatusBadRequest))
		return
	}

	cmd := services.PaymentConfirmedCommand{
		IntentID:    intentID,
		EventID:     eventID,
		TriggeredBy: domain.TriggerWebhook,
	}

	if h.orders != nil {
		_, err := h.orders.MarkPaidFromWebhook(ctx, cmd)
		switch {
		case err == nil:
			h.logger(ctx, "webhook.order_paid", map[string]any{"event_id": eventID, "intent_id": intentID})
			h.completeEvent(ctx, eventID)
			writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true, EventID: eventID})
			return
		case !errors.Is(err, services.ErrOrderInvalidInput):
			h.releaseEvent(ctx, eventID)
			writeOrderError(ctx, w, err)
			return
		}
	}

	// Not an order charge, so the intent belongs to an illustration deposit
	// or balance payment.
	if h.illustrations == nil {
		h.releaseEvent(ctx, eventID)
		httpx.WriteError(ctx, w, httpx.NewError("illustration_service_unavailable", "illustration service unavailable", http.StatusServiceUnavailable))
		return
	}

	if _, err := h.illustrations.MarkPaidFromWebhook(ctx, cmd); err != nil {
		h.releaseEvent(ctx, eventID)
		writeIllustrationError(ctx, w, err)
		return
	}

	h.logger(ctx, "webhook.illustration_paid", map[string]any{"event_id": eventID, "intent_id": intentID})
	h.completeEvent(ctx, eventID)
	writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true, EventID: eventID})
}

func (h *StripeWebhookHandlers) parseEvent(body []byte, signature string) (stripe.Event, error) {
	if h.secret != "" {
		return webhook.ConstructEvent(body, signature, h.secret)
	}
	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return stripe.Event{}, err
	}
	return event, nil
}

// completeEvent marks the event as processed so processor retries replay
// instead of reprocessing.
func (h *StripeWebhookHandlers) completeEvent(ctx context.Context, eventID string) {
	if h.events == nil {
		return
	}
	resp := idempotency.Response{Status: http.StatusOK}
	if err := h.events.SaveResponse(ctx, "stripe_event_"+eventID, eventID, resp, h.clock(), webhookEventTTL); err != nil {
		h.logger(ctx, "webhook.save_event_failed", map[string]any{"event_id": eventID, "error": err.Error()})
	}
}

// releaseEvent frees the reservation after a failure so the processor retry
// can run the handler again.
func (h *StripeWebhookHandlers) releaseEvent(ctx context.Context, eventID string) {
	if h.events == nil {
		return
	}
	if err := h.events.Release(ctx, "stripe_event_"+eventID, eventID); err != nil {
		h.logger(ctx, "webhook.release_event_failed", map[string]any{"event_id": eventID, "error": err.Error()})
	}
}
