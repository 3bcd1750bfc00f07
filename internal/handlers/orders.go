package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/platform/httpx"
	"github.com/atelier-mirabelle/api/internal/platform/observability"
	"github.com/atelier-mirabelle/api/internal/platform/pagination"
	"github.com/atelier-mirabelle/api/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
	maxOrderBodySize     = 64 * 1024
	maxTransitionBody    = 8 * 1024
)

var validOrderStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusNew:            {},
	domain.OrderStatusInProgress:     {},
	domain.OrderStatusPendingPayment: {},
	domain.OrderStatusPaid:           {},
	domain.OrderStatusToShip:         {},
	domain.OrderStatusShipped:        {},
	domain.OrderStatusDone:           {},
	domain.OrderStatusCancelled:      {},
}

// OrderHandlers exposes the storefront order endpoints and their back-office
// counterparts.
type OrderHandlers struct {
	orders  services.OrderService
	refunds services.RefundService
	limiter RateLimiter
}

// OrderHandlersConfig carries the collaborators for NewOrderHandlers.
type OrderHandlersConfig struct {
	Orders  services.OrderService
	Refunds services.RefundService
	// Limiter throttles order creation per client IP. Nil disables throttling.
	Limiter RateLimiter
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(cfg OrderHandlersConfig) *OrderHandlers {
	return &OrderHandlers{
		orders:  cfg.Orders,
		refunds: cfg.Refunds,
		limiter: cfg.Limiter,
	}
}

// Routes registers the customer facing /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/{orderID}", h.getOrder)
	r.Get("/reference/{reference}", h.getOrderByReference)
	r.Get("/{orderID}/fees", h.getOrderFees)
	r.Post("/{orderID}:cancel", h.cancelOrder)
}

// AdminRoutes registers the back-office /admin/orders endpoints.
func (h *OrderHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/{orderID}:transition", h.transitionOrder)
	r.Get("/orders/{orderID}/status-changes", h.listStatusChanges)
	r.Get("/orders/{orderID}/refund-summary", h.getRefundSummary)
	r.Post("/orders/{orderID}/payments/{paymentID}:refund", h.refundPayment)
}

type createOrderRequest struct {
	Customer struct {
		UserID  string `json:"user_id"`
		GuestID string `json:"guest_id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
	} `json:"customer"`
	Lines []struct {
		ProductID string `json:"product_id"`
		SKU       string `json:"sku"`
		Name      string `json:"name"`
		Quantity  int    `json:"quantity"`
		UnitPrice int64  `json:"unit_price"`
	} `json:"lines"`
	Illustrations []struct {
		Kind        string `json:"kind"`
		HumanCount  int    `json:"human_count"`
		AnimalCount int    `json:"animal_count"`
		ItemCount   int    `json:"item_count"`
		Pose        string `json:"pose"`
		Background  string `json:"background"`
		Description string `json:"description"`
		Print       bool   `json:"print"`
		AddTracking bool   `json:"add_tracking"`
		Price       int64  `json:"price"`
	} `json:"illustrations"`
	ShipmentFee     int64             `json:"shipment_fee"`
	ShippingAddress *addressPayload   `json:"shipping_address"`
	BillingAddress  *addressPayload   `json:"billing_address"`
	UseSameAddress  bool              `json:"use_same_address"`
	Metadata        map[string]string `json:"metadata"`
}

type transitionOrderRequest struct {
	Status             string         `json:"status"`
	Reason             string         `json:"reason"`
	CancellationReason string         `json:"cancellation_reason"`
	TrackingNumber     string         `json:"tracking_number"`
	ActorID            string         `json:"actor_id"`
	Metadata           map[string]any `json:"metadata"`
}

type cancelOrderRequest struct {
	Reason             string `json:"reason"`
	CancellationReason string `json:"cancellation_reason"`
}

type refundPaymentRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(r.RemoteAddr) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many checkout attempts, retry later", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	cmd := services.CreateOrderCommand{
		Customer: services.Customer{
			UserID:  strings.TrimSpace(req.Customer.UserID),
			GuestID: strings.TrimSpace(req.Customer.GuestID),
			Email:   strings.TrimSpace(req.Customer.Email),
			Name:    strings.TrimSpace(req.Customer.Name),
		},
		ShipmentFee:    domain.MoneyFromCents(req.ShipmentFee),
		UseSameAddress: req.UseSameAddress,
		Metadata:       cloneStringMap(req.Metadata),
	}
	for _, line := range req.Lines {
		cmd.Lines = append(cmd.Lines, services.CreateOrderLine{
			ProductID: strings.TrimSpace(line.ProductID),
			SKU:       strings.TrimSpace(line.SKU),
			Name:      strings.TrimSpace(line.Name),
			Quantity:  line.Quantity,
			UnitPrice: domain.MoneyFromCents(line.UnitPrice),
		})
	}
	for _, ill := range req.Illustrations {
		cmd.Illustrations = append(cmd.Illustrations, services.CreateIllustrationInput{
			Kind:        services.IllustrationKind(strings.ToLower(strings.TrimSpace(ill.Kind))),
			HumanCount:  ill.HumanCount,
			AnimalCount: ill.AnimalCount,
			ItemCount:   ill.ItemCount,
			Pose:        strings.TrimSpace(ill.Pose),
			Background:  strings.TrimSpace(ill.Background),
			Description: strings.TrimSpace(ill.Description),
			Print:       ill.Print,
			AddTracking: ill.AddTracking,
			Price:       domain.MoneyFromCents(ill.Price),
		})
	}
	if req.ShippingAddress != nil {
		addr := req.ShippingAddress.toAddress()
		cmd.ShippingTo = &addr
	}
	if req.BillingAddress != nil {
		addr := req.BillingAddress.toAddress()
		cmd.BillingTo = &addr
	}

	order, err := h.orders.CreateOrder(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID, services.OrderReadOptions{
		IncludeIllustrations: true,
		IncludePayments:      true,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) getOrderByReference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	reference := strings.TrimSpace(chi.URLParam(r, "reference"))
	if reference == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order reference is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrderByReference(ctx, reference, services.OrderReadOptions{
		IncludeIllustrations: true,
		IncludePayments:      true,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) getOrderFees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	fees, err := h.orders.CalculateFees(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, feeBreakdownPayload{
		Subtotal:     fees.Subtotal.Cents(),
		ShipmentFee:  fees.ShipmentFee.Cents(),
		ProcessorFee: fees.ProcessorFee.Cents(),
		Estimated:    fees.Estimated,
		Total:        fees.Total.Cents(),
	})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req cancelOrderRequest
	body, err := readLimitedBody(r, maxTransitionBody)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyError(ctx, w, err)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID:     orderID,
		Reason:      cancellationReason(req.Reason, req.CancellationReason),
		TriggeredBy: domain.TriggerCustomer,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()

	var statuses []domain.OrderStatus
	for _, value := range parseFilterValues(query["status"]) {
		status, ok := parseOrderStatus(value)
		if !ok {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status filter contains an unknown order status", http.StatusBadRequest))
			return
		}
		statuses = append(statuses, domain.OrderStatus(status))
	}

	var dateRange domain.RangeQuery[time.Time]
	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		dateRange.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		dateRange.To = &ts
	}

	pageParams, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultOrderPageSize,
		MaxPageSize:     maxOrderPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid pagination parameters", http.StatusBadRequest))
		return
	}

	filter := services.OrderListFilter{
		UserID:    observability.SanitizeUserID(strings.TrimSpace(query.Get("user_id"))),
		GuestID:   observability.SanitizeUserID(strings.TrimSpace(query.Get("guest_id"))),
		Status:    statuses,
		DateRange: dateRange,
		Pagination: services.Pagination{
			PageSize:  pageParams.PageSize,
			PageToken: pageParams.PageToken,
		},
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}

	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *OrderHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxTransitionBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req transitionOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	status, ok := parseOrderStatus(req.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderTransitionCommand{
		OrderID:        orderID,
		ToStatus:       status,
		Reason:         cancellationReason(req.Reason, req.CancellationReason),
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
		TriggeredBy:    domain.TriggerManual,
		ActorID:        strings.TrimSpace(req.ActorID),
		Metadata:       cloneMap(req.Metadata),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listStatusChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	changes, err := h.orders.ListStatusChanges(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]statusChangePayload, 0, len(changes))
	for _, change := range changes {
		items = append(items, buildOrderStatusChangePayload(change))
	}
	writeJSONResponse(w, http.StatusOK, statusChangeListResponse{Items: items})
}

func (h *OrderHandlers) getRefundSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.refunds == nil {
		httpx.WriteError(ctx, w, httpx.NewError("refund_service_unavailable", "refund service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	summary, err := h.refunds.OrderRefundSummary(ctx, orderID)
	if err != nil {
		writeRefundError(ctx, w, err)
		return
	}

	payload := refundSummaryPayload{
		TotalPaid:     summary.TotalPaid.Cents(),
		TotalRefunded: summary.TotalRefunded.Cents(),
		Refundable:    summary.Refundable.Cents(),
		CanBeRefunded: summary.CanBeRefunded,
		Payments:      buildPaymentPayloads(summary.Payments),
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *OrderHandlers) refundPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.refunds == nil {
		httpx.WriteError(ctx, w, httpx.NewError("refund_service_unavailable", "refund service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	paymentID := strings.TrimSpace(chi.URLParam(r, "paymentID"))
	if orderID == "" || paymentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id and payment id are required", http.StatusBadRequest))
		return
	}

	var req refundPaymentRequest
	body, err := readLimitedBody(r, maxTransitionBody)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyError(ctx, w, err)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	}
	if req.Amount < 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "amount must not be negative", http.StatusBadRequest))
		return
	}

	result, err := h.refunds.RefundPayment(ctx, services.RefundPaymentCommand{
		OrderID:   orderID,
		PaymentID: paymentID,
		Amount:    domain.MoneyFromCents(req.Amount),
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil && !result.Succeeded {
		writeRefundError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildRefundResultPayload(result))
}

// Response payloads ----------------------------------------------------------

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type orderSummaryPayload struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	Total         int64  `json:"total"`
	CustomerEmail string `json:"customer_email,omitempty"`
	LineCount     int    `json:"line_count"`
	CreatedAt     string `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID             string                `json:"id"`
	Reference      string                `json:"reference"`
	Customer       customerPayload       `json:"customer"`
	Status         string                `json:"status"`
	Total          int64                 `json:"total"`
	ShipmentFee    int64                 `json:"shipment_fee"`
	Lines          []orderLinePayload    `json:"lines"`
	Illustrations  []illustrationPayload `json:"illustrations,omitempty"`
	Payments       []paymentPayload      `json:"payments,omitempty"`
	ShippingTo     *addressPayload       `json:"shipping_address,omitempty"`
	BillingTo      *addressPayload       `json:"billing_address,omitempty"`
	UseSameAddress bool                  `json:"use_same_address"`
	TrackingNumber string                `json:"tracking_number,omitempty"`
	CancelReason   *string               `json:"cancel_reason,omitempty"`
	Metadata       map[string]any        `json:"metadata,omitempty"`
	CreatedAt      string                `json:"created_at"`
	UpdatedAt      string                `json:"updated_at,omitempty"`
	PaidAt         string                `json:"paid_at,omitempty"`
	ShippedAt      string                `json:"shipped_at,omitempty"`
	CompletedAt    string                `json:"completed_at,omitempty"`
	CancelledAt    string                `json:"cancelled_at,omitempty"`
}

type customerPayload struct {
	UserID  string `json:"user_id,omitempty"`
	GuestID string `json:"guest_id,omitempty"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
}

type orderLinePayload struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku,omitempty"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Total     int64  `json:"total"`
}

type paymentPayload struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	IllustrationID string `json:"illustration_id,omitempty"`
	Kind           string `json:"kind"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	ProcessorFee   int64  `json:"processor_fee,omitempty"`
	RefundedAmount int64  `json:"refunded_amount,omitempty"`
	PaymentLink    string `json:"payment_link,omitempty"`
	RefundReason   string `json:"refund_reason,omitempty"`
	CreatedAt      string `json:"created_at"`
	PaidAt         string `json:"paid_at,omitempty"`
	RefundedAt     string `json:"refunded_at,omitempty"`
}

type statusChangeListResponse struct {
	Items []statusChangePayload `json:"items"`
}

type statusChangePayload struct {
	ID          string         `json:"id"`
	FromStatus  *string        `json:"from_status,omitempty"`
	ToStatus    string         `json:"to_status"`
	Reason      string         `json:"reason,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	TriggeredBy string         `json:"triggered_by"`
	UserID      string         `json:"user_id,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

type feeBreakdownPayload struct {
	Subtotal     int64 `json:"subtotal"`
	ShipmentFee  int64 `json:"shipment_fee"`
	ProcessorFee int64 `json:"processor_fee"`
	Estimated    bool  `json:"estimated"`
	Total        int64 `json:"total"`
}

type refundSummaryPayload struct {
	TotalPaid     int64            `json:"total_paid"`
	TotalRefunded int64            `json:"total_refunded"`
	Refundable    int64            `json:"refundable"`
	CanBeRefunded bool             `json:"can_be_refunded"`
	Payments      []paymentPayload `json:"payments,omitempty"`
}

type refundResultPayload struct {
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

func buildOrderSummary(order services.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:            strings.TrimSpace(order.ID),
		Reference:     strings.TrimSpace(order.Reference),
		Status:        strings.TrimSpace(string(order.Status)),
		Total:         order.Total.Cents(),
		CustomerEmail: strings.TrimSpace(order.Customer.Email),
		LineCount:     len(order.Lines),
		CreatedAt:     formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:        strings.TrimSpace(order.ID),
		Reference: strings.TrimSpace(order.Reference),
		Customer: customerPayload{
			UserID:  strings.TrimSpace(order.Customer.UserID),
			GuestID: strings.TrimSpace(order.Customer.GuestID),
			Email:   strings.TrimSpace(order.Customer.Email),
			Name:    strings.TrimSpace(order.Customer.Name),
		},
		Status:         strings.TrimSpace(string(order.Status)),
		Total:          order.Total.Cents(),
		ShipmentFee:    order.ShipmentFee.Cents(),
		Lines:          make([]orderLinePayload, 0, len(order.Lines)),
		UseSameAddress: order.UseSameAddress,
		TrackingNumber: strings.TrimSpace(order.TrackingNumber),
		CancelReason:   cloneStringPointer(order.CancelReason),
		Metadata:       cloneMap(order.Metadata),
		CreatedAt:      formatTime(order.CreatedAt),
		UpdatedAt:      formatTime(order.UpdatedAt),
		PaidAt:         formatTime(pointerTime(order.PaidAt)),
		ShippedAt:      formatTime(pointerTime(order.ShippedAt)),
		CompletedAt:    formatTime(pointerTime(order.CompletedAt)),
		CancelledAt:    formatTime(pointerTime(order.CancelledAt)),
	}

	for _, line := range order.Lines {
		payload.Lines = append(payload.Lines, orderLinePayload{
			ProductID: strings.TrimSpace(line.ProductID),
			SKU:       strings.TrimSpace(line.SKU),
			Name:      strings.TrimSpace(line.Name),
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.Cents(),
			Total:     line.Total.Cents(),
		})
	}

	for _, ill := range order.Illustrations {
		payload.Illustrations = append(payload.Illustrations, buildIllustrationPayload(ill))
	}
	payload.Payments = buildPaymentPayloads(order.Payments)

	if order.ShippingTo != nil {
		addr := buildAddressPayload(*order.ShippingTo)
		payload.ShippingTo = &addr
	}
	if order.BillingTo != nil {
		addr := buildAddressPayload(*order.BillingTo)
		payload.BillingTo = &addr
	}

	return payload
}

func buildPaymentPayloads(payments []services.OrderPayment) []paymentPayload {
	if len(payments) == 0 {
		return nil
	}
	result := make([]paymentPayload, 0, len(payments))
	for _, payment := range payments {
		result = append(result, paymentPayload{
			ID:             strings.TrimSpace(payment.ID),
			OrderID:        strings.TrimSpace(payment.OrderID),
			IllustrationID: strings.TrimSpace(payment.IllustrationID),
			Kind:           strings.TrimSpace(string(payment.Kind)),
			Status:         strings.TrimSpace(string(payment.Status)),
			Amount:         payment.Amount.Cents(),
			ProcessorFee:   payment.ProcessorFee.Cents(),
			RefundedAmount: payment.RefundedAmount.Cents(),
			PaymentLink:    strings.TrimSpace(payment.PaymentLink),
			RefundReason:   strings.TrimSpace(payment.RefundReason),
			CreatedAt:      formatTime(payment.CreatedAt),
			PaidAt:         formatTime(pointerTime(payment.PaidAt)),
			RefundedAt:     formatTime(pointerTime(payment.RefundedAt)),
		})
	}
	return result
}

func buildOrderStatusChangePayload(change services.OrderStatusChange) statusChangePayload {
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

func buildRefundResultPayload(result services.RefundResult) refundResultPayload {
	return refundResultPayload{
		PaymentID: strings.TrimSpace(result.PaymentID),
		Amount:    result.Amount.Cents(),
		Succeeded: result.Succeeded,
		Error:     strings.TrimSpace(result.Error),
	}
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order_unavailable", "order storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func writeRefundError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrRefundInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrRefundNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("payment_not_found", "payment not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("refund_error", "failed to process refund request", http.StatusInternalServerError))
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

// cancellationReason prefers the canonical reason field but accepts the legacy
// cancellation_reason key sent by older storefront clients.
func cancellationReason(reason, legacy string) string {
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(legacy)
}

func parseOrderStatus(raw string) (services.OrderStatus, bool) {
	status := domain.OrderStatus(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := validOrderStatuses[status]; !ok {
		return "", false
	}
	return status, true
}
