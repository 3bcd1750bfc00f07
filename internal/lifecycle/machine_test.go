package lifecycle

import (
	"testing"

	domain "github.com/atelier-mirabelle/api/internal/domain"
)

var orderStatuses = []domain.OrderStatus{
	domain.OrderStatusNew,
	domain.OrderStatusInProgress,
	domain.OrderStatusPendingPayment,
	domain.OrderStatusPaid,
	domain.OrderStatusToShip,
	domain.OrderStatusShipped,
	domain.OrderStatusDone,
	domain.OrderStatusCancelled,
}

var illustrationStatuses = []domain.IllustrationStatus{
	domain.IllustrationStatusPending,
	domain.IllustrationStatusDepositPending,
	domain.IllustrationStatusDepositPaid,
	domain.IllustrationStatusInProgress,
	domain.IllustrationStatusClientReview,
	domain.IllustrationStatusPaymentPending,
	domain.IllustrationStatusCompleted,
	domain.IllustrationStatusCancelled,
}

func TestOrderMachineTransitionTable(t *testing.T) {
	machine := NewOrderMachine()
	allowed := map[[2]domain.OrderStatus]bool{
		{domain.OrderStatusNew, domain.OrderStatusInProgress}:            true,
		{domain.OrderStatusNew, domain.OrderStatusPendingPayment}:        true,
		{domain.OrderStatusNew, domain.OrderStatusCancelled}:             true,
		{domain.OrderStatusInProgress, domain.OrderStatusPendingPayment}: true,
		{domain.OrderStatusInProgress, domain.OrderStatusPaid}:           true,
		{domain.OrderStatusInProgress, domain.OrderStatusCancelled}:      true,
		{domain.OrderStatusPendingPayment, domain.OrderStatusPaid}:       true,
		{domain.OrderStatusPaid, domain.OrderStatusToShip}:               true,
		{domain.OrderStatusPaid, domain.OrderStatusDone}:                 true,
		{domain.OrderStatusPaid, domain.OrderStatusCancelled}:            true,
		{domain.OrderStatusToShip, domain.OrderStatusShipped}:            true,
		{domain.OrderStatusToShip, domain.OrderStatusCancelled}:          true,
		{domain.OrderStatusShipped, domain.OrderStatusDone}:              true,
	}

	for _, from := range orderStatuses {
		for _, to := range orderStatuses {
			want := allowed[[2]domain.OrderStatus{from, to}]
			if got := machine.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	if machine.CanTransition(domain.OrderStatusShipped, domain.OrderStatusCancelled) {
		t.Fatalf("shipped orders must not be cancellable")
	}
}

func TestOrderMachineTerminalStates(t *testing.T) {
	machine := NewOrderMachine()
	for _, status := range orderStatuses {
		terminal := status == domain.OrderStatusDone || status == domain.OrderStatusCancelled
		if got := machine.IsTerminal(status); got != terminal {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, got, terminal)
		}
		if terminal && len(machine.AllowedTransitions(status)) != 0 {
			t.Errorf("terminal status %s has outbound transitions", status)
		}
	}
}

func TestOrderRequiresRefund(t *testing.T) {
	cases := []struct {
		from domain.OrderStatus
		to   domain.OrderStatus
		want bool
	}{
		{domain.OrderStatusPaid, domain.OrderStatusCancelled, true},
		{domain.OrderStatusToShip, domain.OrderStatusCancelled, true},
		{domain.OrderStatusNew, domain.OrderStatusCancelled, false},
		{domain.OrderStatusInProgress, domain.OrderStatusCancelled, false},
		{domain.OrderStatusShipped, domain.OrderStatusCancelled, false},
		{domain.OrderStatusPaid, domain.OrderStatusToShip, false},
	}
	for _, tc := range cases {
		if got := OrderRequiresRefund(tc.from, tc.to); got != tc.want {
			t.Errorf("OrderRequiresRefund(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOrderRequiresWarning(t *testing.T) {
	for _, from := range orderStatuses {
		if !OrderRequiresWarning(from, domain.OrderStatusCancelled) {
			t.Errorf("cancellation from %s should require a warning", from)
		}
	}
	if OrderRequiresWarning(domain.OrderStatusToShip, domain.OrderStatusShipped) {
		t.Fatalf("shipping should not require a warning")
	}
}

func TestIllustrationMachineTransitionTable(t *testing.T) {
	machine := NewIllustrationMachine()
	allowed := map[[2]domain.IllustrationStatus]bool{
		{domain.IllustrationStatusPending, domain.IllustrationStatusDepositPending}:         true,
		{domain.IllustrationStatusPending, domain.IllustrationStatusCancelled}:              true,
		{domain.IllustrationStatusDepositPending, domain.IllustrationStatusDepositPaid}:     true,
		{domain.IllustrationStatusDepositPaid, domain.IllustrationStatusInProgress}:         true,
		{domain.IllustrationStatusDepositPaid, domain.IllustrationStatusCancelled}:          true,
		{domain.IllustrationStatusInProgress, domain.IllustrationStatusClientReview}:        true,
		{domain.IllustrationStatusInProgress, domain.IllustrationStatusPaymentPending}:      true,
		{domain.IllustrationStatusInProgress, domain.IllustrationStatusCancelled}:           true,
		{domain.IllustrationStatusClientReview, domain.IllustrationStatusInProgress}:        true,
		{domain.IllustrationStatusClientReview, domain.IllustrationStatusPaymentPending}:    true,
		{domain.IllustrationStatusClientReview, domain.IllustrationStatusCancelled}:         true,
		{domain.IllustrationStatusPaymentPending, domain.IllustrationStatusCompleted}:       true,
	}

	for _, from := range illustrationStatuses {
		for _, to := range illustrationStatuses {
			want := allowed[[2]domain.IllustrationStatus{from, to}]
			if got := machine.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestIllustrationRevisionLoop(t *testing.T) {
	machine := NewIllustrationMachine()
	if !machine.CanTransition(domain.IllustrationStatusInProgress, domain.IllustrationStatusClientReview) {
		t.Fatalf("in_progress -> client_review must be permitted")
	}
	if !machine.CanTransition(domain.IllustrationStatusClientReview, domain.IllustrationStatusInProgress) {
		t.Fatalf("client_review -> in_progress must be permitted")
	}
}

func TestIllustrationTerminalStates(t *testing.T) {
	machine := NewIllustrationMachine()
	for _, status := range illustrationStatuses {
		terminal := status == domain.IllustrationStatusCompleted || status == domain.IllustrationStatusCancelled
		if got := machine.IsTerminal(status); got != terminal {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, got, terminal)
		}
	}
}

func TestIllustrationRefundable(t *testing.T) {
	refundable := map[domain.IllustrationStatus]bool{
		domain.IllustrationStatusPending:        true,
		domain.IllustrationStatusDepositPending: true,
		domain.IllustrationStatusDepositPaid:    true,
		domain.IllustrationStatusInProgress:     true,
		domain.IllustrationStatusClientReview:   true,
		domain.IllustrationStatusPaymentPending: false,
		domain.IllustrationStatusCompleted:      false,
		domain.IllustrationStatusCancelled:      true,
	}
	for status, want := range refundable {
		if got := IllustrationRefundable(status); got != want {
			t.Errorf("IllustrationRefundable(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestIllustrationPointOfNoReturn(t *testing.T) {
	for _, from := range illustrationStatuses {
		for _, to := range illustrationStatuses {
			want := from == domain.IllustrationStatusClientReview && to == domain.IllustrationStatusPaymentPending
			if got := IllustrationPointOfNoReturn(from, to); got != want {
				t.Errorf("IllustrationPointOfNoReturn(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestIllustrationTriggersPaymentLink(t *testing.T) {
	cases := []struct {
		from domain.IllustrationStatus
		to   domain.IllustrationStatus
		want bool
	}{
		{domain.IllustrationStatusPending, domain.IllustrationStatusDepositPending, true},
		{domain.IllustrationStatusInProgress, domain.IllustrationStatusPaymentPending, true},
		{domain.IllustrationStatusClientReview, domain.IllustrationStatusPaymentPending, true},
		{domain.IllustrationStatusDepositPending, domain.IllustrationStatusDepositPaid, false},
		{domain.IllustrationStatusPaymentPending, domain.IllustrationStatusCompleted, false},
	}
	for _, tc := range cases {
		if got := IllustrationTriggersPaymentLink(tc.from, tc.to); got != tc.want {
			t.Errorf("IllustrationTriggersPaymentLink(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
