package services

import (
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrNotFound                = errors.New("not found")
	ErrForbidden               = errors.New("forbidden")
	ErrDuplicateRequest        = errors.New("request already sent and awaiting processing")
	ErrAlreadyProcessed        = errors.New("request already processed")
	ErrAlreadyRefunded         = errors.New("payment already refunded or not completed")
	ErrSubscriptionNotAssigned = errors.New("subscription not assigned")
	ErrAlreadyAssigned         = errors.New("subscription already assigned")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrInvalidPlan             = errors.New("invalid plan")
	ErrInvalidDate             = errors.New("invalid date")
	ErrPlanInUse               = errors.New("plan has assigned users")

	// ErrPersistenceFailure marks datastore failures. Callers should report
	// it as an internal error.
	ErrPersistenceFailure = store.ErrPersistence
)

// detail returns an error carrying msg that still matches ref via errors.Is.
func detail(ref error, msg string) error {
	return errors.Mark(errors.New(msg), ref)
}

// fromStore maps a store error onto the service taxonomy. what names the
// missing entity for not-found errors.
func fromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrRecordNotFound) {
		return detail(ErrNotFound, what+" not found")
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrRecordNotFound)
}
