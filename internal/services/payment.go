package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var paymentMethods = []string{models.MethodBalance, models.MethodCard, models.MethodYooMoney}

type PaymentService struct {
	store     store.Store
	ledger    *LedgerService
	lifecycle *LifecycleService
	settler   Settler
	authz     Authorizer
	notifier  Notifier
	clock     Clock
	currency  string
}

func NewPaymentService(
	s store.Store,
	ledger *LedgerService,
	lifecycle *LifecycleService,
	settler Settler,
	authz Authorizer,
	notifier Notifier,
	clock Clock,
	currency string,
) *PaymentService {
	return &PaymentService{
		store:     s,
		ledger:    ledger,
		lifecycle: lifecycle,
		settler:   settler,
		authz:     authz,
		notifier:  notifier,
		clock:     clock,
		currency:  currency,
	}
}

// CreatePayment charges the actor for an assigned plan and activates the
// assignment on success. Balance, ledger, assignment, payment and
// notification commit together or not at all.
func (s *PaymentService) CreatePayment(ctx context.Context, actor Actor, planID uuid.UUID, amount decimal.Decimal, method string) (*models.Payment, error) {
	if !lo.Contains(paymentMethods, method) {
		return nil, ErrInvalidPaymentMethod
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	day := today(s.clock)
	var payment *models.Payment
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		user, err := tx.LockUser(ctx, actor.UserID)
		if err != nil {
			return fromStore(err, "user")
		}

		assignment, err := tx.FindAssignment(ctx, actor.UserID, planID)
		if err != nil {
			return s.assignmentErr(err)
		}
		if method == models.MethodBalance && amount.GreaterThan(user.Balance) {
			return ErrInsufficientFunds
		}

		plan, err := tx.GetPlan(ctx, planID)
		if err != nil {
			return fromStore(err, "plan")
		}

		outcome, err := s.settler.Settle(ctx, amount, method)
		if err != nil {
			slog.WarnContext(ctx, "settlement failed",
				"action", "create_payment",
				"plan_id", planID.String(),
				"error", err.Error(),
			)
			outcome = Outcome{Status: models.PaymentFailed}
		}

		if outcome.Status == models.PaymentCompleted {
			if method == models.MethodBalance {
				reason := fmt.Sprintf("payment for subscription #%s", planID)
				if _, err := s.ledger.Debit(ctx, tx, actor.UserID, amount, reason); err != nil {
					return err
				}
			}
			if err := s.lifecycle.Activate(ctx, tx, assignment, plan, day); err != nil {
				return err
			}
		}

		payment = &models.Payment{
			ID:         uuid.New(),
			UserID:     actor.UserID,
			PlanID:     planID,
			Amount:     amount,
			Method:     method,
			Status:     outcome.Status,
			ExternalID: outcome.TransactionID,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		message := fmt.Sprintf("Payment of %s %s for %s failed", amount.StringFixed(2), s.currency, plan.Name)
		if outcome.Status == models.PaymentCompleted {
			message = fmt.Sprintf("Payment of %s %s for %s succeeded", amount.StringFixed(2), s.currency, plan.Name)
		}
		return s.notifier.Notify(ctx, tx, Notice{
			UserID:    actor.UserID,
			Message:   message,
			Category:  models.CategoryPayment,
			Reference: &payment.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) assignmentErr(err error) error {
	if isNotFound(err) {
		return ErrSubscriptionNotAssigned
	}
	return err
}

// Refund returns a completed payment to the actor's wallet and cancels the
// linked assignment. Payments owned by someone else read as missing.
func (s *PaymentService) Refund(ctx context.Context, actor Actor, paymentID uuid.UUID, reason string) (*models.Payment, error) {
	day := today(s.clock)
	var payment *models.Payment
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		payment, err = tx.LockPayment(ctx, paymentID)
		if err != nil {
			return fromStore(err, "payment")
		}
		if payment.UserID != actor.UserID {
			return detail(ErrNotFound, "payment not found")
		}
		if payment.Status != models.PaymentCompleted || payment.IsRefunded {
			return ErrAlreadyRefunded
		}

		note := fmt.Sprintf("refund for payment #%s", payment.ID)
		if _, err := s.ledger.Credit(ctx, tx, payment.UserID, payment.Amount, note); err != nil {
			return err
		}

		payment.IsRefunded = true
		payment.Status = models.PaymentRefunded
		payment.RefundReason = &reason
		if err := tx.SavePayment(ctx, payment); err != nil {
			return err
		}

		assignment, err := tx.FindAssignment(ctx, payment.UserID, payment.PlanID)
		switch {
		case err == nil:
			if err := s.lifecycle.CancelOnRefund(ctx, tx, assignment, day); err != nil {
				return err
			}
		case !isNotFound(err):
			return err
		}

		return s.notifier.Notify(ctx, tx, Notice{
			UserID:    payment.UserID,
			Message:   fmt.Sprintf("Payment of %s %s was refunded to your balance", payment.Amount.StringFixed(2), s.currency),
			Category:  models.CategoryRefund,
			Reference: &payment.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ToggleAutoRenew switches auto-renewal for an assignment. Owner or admin
// only.
func (s *PaymentService) ToggleAutoRenew(ctx context.Context, actor Actor, assignmentID uuid.UUID, enabled bool) (*models.Assignment, error) {
	var a *models.Assignment
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		a, err = tx.LockAssignment(ctx, assignmentID)
		if err != nil {
			return fromStore(err, "assignment")
		}
		if !canManage(s.authz, actor, a.UserID) {
			return ErrForbidden
		}
		a.AutoRenew = enabled
		return tx.SaveAssignment(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	RecomputeActivity(a, today(s.clock))
	return a, nil
}

// ListPayments returns the actor's payments, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, actor Actor, page store.Page) ([]models.Payment, error) {
	return s.store.ListPayments(ctx, actor.UserID, page)
}
