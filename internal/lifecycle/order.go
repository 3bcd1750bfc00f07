package lifecycle

import (
	"github.com/atelier-mirabelle/api/internal/domain"
)

// NewOrderMachine returns the order status transition table.
//
// SHIPPED orders cannot be cancelled through any path; once a parcel is with
// the carrier the only way forward is DONE.
func NewOrderMachine() Machine[domain.OrderStatus] {
	return NewMachine("order", map[domain.OrderStatus][]domain.OrderStatus{
		domain.OrderStatusNew:            {domain.OrderStatusInProgress, domain.OrderStatusPendingPayment, domain.OrderStatusCancelled},
		domain.OrderStatusInProgress:     {domain.OrderStatusPendingPayment, domain.OrderStatusPaid, domain.OrderStatusCancelled},
		domain.OrderStatusPendingPayment: {domain.OrderStatusPaid},
		domain.OrderStatusPaid:           {domain.OrderStatusToShip, domain.OrderStatusDone, domain.OrderStatusCancelled},
		domain.OrderStatusToShip:         {domain.OrderStatusShipped, domain.OrderStatusCancelled},
		domain.OrderStatusShipped:        {domain.OrderStatusDone},
	})
}

// OrderRequiresRefund reports whether the transition cancels an order that
// already holds customer money.
func OrderRequiresRefund(from, to domain.OrderStatus) bool {
	if to != domain.OrderStatusCancelled {
		return false
	}
	return from == domain.OrderStatusPaid || from == domain.OrderStatusToShip
}

// OrderRequiresWarning reports whether the transition is destructive enough
// that interactive callers should confirm before committing.
func OrderRequiresWarning(from, to domain.OrderStatus) bool {
	return to == domain.OrderStatusCancelled
}
