package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/panics"
)

const reasonAutoRenewal = "auto-renewal"

// SweepReport summarizes one renewal sweep.
type SweepReport struct {
	Day               time.Time `json:"day"`
	Due               int       `json:"due"`
	Renewed           int       `json:"renewed"`
	InsufficientFunds int       `json:"insufficient_funds"`
	Skipped           int       `json:"skipped"`
	Failed            int       `json:"failed"`
}

type renewalResult int

const (
	renewalDone renewalResult = iota
	renewalNoFunds
	renewalSkipped
)

// RenewalService charges auto-renewing assignments that end today.
type RenewalService struct {
	store    store.Store
	ledger   *LedgerService
	notifier Notifier
	clock    Clock
	currency string
}

func NewRenewalService(s store.Store, ledger *LedgerService, notifier Notifier, clock Clock, currency string) *RenewalService {
	return &RenewalService{
		store:    s,
		ledger:   ledger,
		notifier: notifier,
		clock:    clock,
		currency: currency,
	}
}

// Sweep processes every assignment due today. Each row commits on its own;
// a failing row is logged and counted but does not stop the batch. Running
// Sweep twice on the same day renews nothing the second time.
func (s *RenewalService) Sweep(ctx context.Context) (*SweepReport, error) {
	day := today(s.clock)
	report := &SweepReport{Day: day}

	due, err := s.store.ListDueForRenewal(ctx, day)
	if err != nil {
		return nil, err
	}
	report.Due = len(due)

	for i := range due {
		a := due[i]
		result, err := s.safeRenew(ctx, a.ID, day)
		if err != nil {
			report.Failed++
			slog.Error("auto-renewal failed",
				"assignment_id", a.ID.String(),
				"user_id", a.UserID.String(),
				"action", "auto_renew",
				"error", err.Error(),
			)
			sentry.CaptureException(err)
			continue
		}
		switch result {
		case renewalDone:
			report.Renewed++
		case renewalNoFunds:
			report.InsufficientFunds++
		case renewalSkipped:
			report.Skipped++
		}
	}

	slog.Info("renewal sweep finished",
		"day", day.Format(time.DateOnly),
		"due", report.Due,
		"renewed", report.Renewed,
		"insufficient_funds", report.InsufficientFunds,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *RenewalService) safeRenew(ctx context.Context, assignmentID uuid.UUID, day time.Time) (result renewalResult, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		result, err = s.renew(ctx, assignmentID, day)
	})
	if r := pc.Recovered(); r != nil {
		return renewalSkipped, errors.Wrap(r.AsError(), "renewal panicked")
	}
	return result, err
}

func (s *RenewalService) renew(ctx context.Context, assignmentID uuid.UUID, day time.Time) (renewalResult, error) {
	result := renewalSkipped
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		// Lock order matches CreatePayment: user first, then assignment.
		probe, err := tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		user, err := tx.LockUser(ctx, probe.UserID)
		if err != nil {
			return err
		}
		a, err := tx.LockAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}

		// Re-check under lock: a concurrent renewal or refund may have moved it.
		if !a.AutoRenew || a.Status != models.AssignmentActive || a.EndDate == nil || !a.EndDate.Equal(day) {
			return nil
		}

		plan, err := tx.GetPlan(ctx, a.PlanID)
		if err != nil {
			return err
		}
		price := plan.Price

		if user.Balance.LessThan(price) {
			result = renewalNoFunds
			return s.notifyNoFunds(ctx, tx, a, plan, price, day)
		}

		if _, err := s.ledger.Debit(ctx, tx, a.UserID, price, reasonAutoRenewal); err != nil {
			return err
		}

		end := AddDays(day, plan.DurationDays)
		a.StartDate = day
		a.EndDate = &end
		if err := tx.SaveAssignment(ctx, a); err != nil {
			return err
		}

		payment := &models.Payment{
			ID:         uuid.New(),
			UserID:     a.UserID,
			PlanID:     a.PlanID,
			Amount:     price,
			Method:     models.MethodBalance,
			Status:     models.PaymentCompleted,
			ExternalID: "auto_" + uuid.NewString(),
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		result = renewalDone
		return s.notifier.Notify(ctx, tx, Notice{
			UserID:    a.UserID,
			Message:   fmt.Sprintf("Subscription %s renewed until %s for %s %s", plan.Name, end.Format(time.DateOnly), price.StringFixed(2), s.currency),
			Category:  models.CategoryRenewal,
			Reference: &a.ID,
		})
	})
	if err != nil {
		return renewalSkipped, err
	}
	return result, nil
}

func (s *RenewalService) notifyNoFunds(ctx context.Context, tx store.Store, a *models.Assignment, plan *models.Plan, price decimal.Decimal, day time.Time) error {
	sent, err := tx.NotificationExists(ctx, a.UserID, models.CategoryInsufficientFunds, a.ID, day)
	if err != nil || sent {
		return err
	}
	return s.notifier.Notify(ctx, tx, Notice{
		UserID:    a.UserID,
		Message:   fmt.Sprintf("Not enough balance to renew %s: %s %s required", plan.Name, price.StringFixed(2), s.currency),
		Category:  models.CategoryInsufficientFunds,
		Reference: &a.ID,
	})
}
