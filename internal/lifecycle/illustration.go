package lifecycle

import (
	"github.com/atelier-mirabelle/api/internal/domain"
)

// NewIllustrationMachine returns the illustration status transition table.
//
// CLIENT_REVIEW and IN_PROGRESS form a revision loop with no iteration limit.
func NewIllustrationMachine() Machine[domain.IllustrationStatus] {
	return NewMachine("illustration", map[domain.IllustrationStatus][]domain.IllustrationStatus{
		domain.IllustrationStatusPending:        {domain.IllustrationStatusDepositPending, domain.IllustrationStatusCancelled},
		domain.IllustrationStatusDepositPending: {domain.IllustrationStatusDepositPaid},
		domain.IllustrationStatusDepositPaid:    {domain.IllustrationStatusInProgress, domain.IllustrationStatusCancelled},
		domain.IllustrationStatusInProgress:     {domain.IllustrationStatusClientReview, domain.IllustrationStatusPaymentPending, domain.IllustrationStatusCancelled},
		domain.IllustrationStatusClientReview:   {domain.IllustrationStatusInProgress, domain.IllustrationStatusPaymentPending, domain.IllustrationStatusCancelled},
		domain.IllustrationStatusPaymentPending: {domain.IllustrationStatusCompleted},
	})
}

// IllustrationRefundable reports whether an illustration in the given state is
// still eligible for a refund. Eligibility ends once the client has approved
// the work and the final payment is requested.
func IllustrationRefundable(state domain.IllustrationStatus) bool {
	switch state {
	case domain.IllustrationStatusPaymentPending, domain.IllustrationStatusCompleted:
		return false
	}
	return true
}

// IllustrationPointOfNoReturn reports whether the transition locks the
// illustration out of any future cancellation or refund. Only the client
// approving the final work qualifies.
func IllustrationPointOfNoReturn(from, to domain.IllustrationStatus) bool {
	return from == domain.IllustrationStatusClientReview && to == domain.IllustrationStatusPaymentPending
}

// IllustrationRequiresWarning reports whether interactive callers should
// confirm the transition before committing.
func IllustrationRequiresWarning(from, to domain.IllustrationStatus) bool {
	return to == domain.IllustrationStatusCancelled
}

// IllustrationTriggersPaymentLink reports whether the transition must produce
// a payment link for the customer, for the deposit or the final balance.
func IllustrationTriggersPaymentLink(from, to domain.IllustrationStatus) bool {
	return to == domain.IllustrationStatusDepositPending || to == domain.IllustrationStatusPaymentPending
}
