package statemachine

import (
	"restaurant-api/apperrors"
	"restaurant-api/models"
)

var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentPending:   {models.PaymentCompleted, models.PaymentFailed},
	models.PaymentCompleted: {models.PaymentRefunded},
}

// CanTransitionPayment validates a payment status change. Values outside the
// enumeration are a validation error, legal values in the wrong order an
// invalid transition.
func CanTransitionPayment(from, to models.PaymentStatus) error {
	if !to.Valid() {
		return apperrors.Validation("invalid payment status", apperrors.FieldError{
			Field:   "payment_status",
			Message: "must be one of pending, completed, failed, refunded",
		})
	}
	for _, next := range paymentTransitions[from] {
		if next == to {
			return nil
		}
	}
	return apperrors.InvalidTransition("cannot move payment from %s to %s", from, to)
}

// PaymentTransitionsFrom returns the payment states reachable from status.
func PaymentTransitionsFrom(status models.PaymentStatus) []models.PaymentStatus {
	return append([]models.PaymentStatus(nil), paymentTransitions[status]...)
}
