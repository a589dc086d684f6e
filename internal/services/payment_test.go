package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type failingSettler struct{}

func (failingSettler) Settle(context.Context, decimal.Decimal, string) (services.Outcome, error) {
	return services.Outcome{}, errors.New("gateway timeout")
}

type PaymentSuite struct {
	BaseSuite
}

func TestPaymentSuite(t *testing.T) {
	suite.Run(t, new(PaymentSuite))
}

func (s *PaymentSuite) TestBalancePaymentActivatesAssignment() {
	actor := s.user("100")
	plan := s.plan("60", 30)
	a := s.assignment(actor, plan, models.AssignmentInactive, nil, false)

	payment, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("60"), models.MethodBalance)
	s.Require().NoError(err)

	s.Equal(models.PaymentCompleted, payment.Status)
	s.True(strings.HasPrefix(payment.ExternalID, "pay_"))
	s.assertMoney("40", s.balance(actor))
	s.assertLedgerMatches(actor)

	got := s.reload(a.ID)
	s.Equal(models.AssignmentActive, got.Status)
	s.Equal(s.today, got.StartDate)
	s.Require().NotNil(got.EndDate)
	s.Equal(s.days(30), *got.EndDate)

	mine, err := s.lifecycle.ListMine(s.ctx, actor)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.True(mine[0].IsActive)

	entries, err := s.ledger.History(s.ctx, actor.UserID)
	s.Require().NoError(err)
	s.Equal("payment for subscription #"+plan.ID.String(), entries[0].Description)

	s.Len(s.notificationsOf(actor, models.CategoryPayment), 1)
}

func (s *PaymentSuite) TestCardPaymentDoesNotDebit() {
	actor := s.user("10")
	plan := s.plan("60", 30)
	a := s.assignment(actor, plan, models.AssignmentInactive, nil, false)

	payment, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("60"), models.MethodCard)
	s.Require().NoError(err)

	s.Equal(models.PaymentCompleted, payment.Status)
	s.assertMoney("10", s.balance(actor))
	s.Equal(models.AssignmentActive, s.reload(a.ID).Status)
}

func (s *PaymentSuite) TestPaymentRequiresAssignment() {
	actor := s.user("100")
	plan := s.plan("60", 30)

	_, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("60"), models.MethodBalance)
	s.isErr(err, services.ErrSubscriptionNotAssigned)
	s.assertMoney("100", s.balance(actor))
}

func (s *PaymentSuite) TestPaymentInsufficientFunds() {
	actor := s.user("50")
	plan := s.plan("60", 30)
	a := s.assignment(actor, plan, models.AssignmentInactive, nil, false)

	_, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("60"), models.MethodBalance)
	s.isErr(err, services.ErrInsufficientFunds)

	s.assertMoney("50", s.balance(actor))
	s.Equal(models.AssignmentInactive, s.reload(a.ID).Status)
	list, err := s.payments.ListPayments(s.ctx, actor, store.Page{})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *PaymentSuite) TestPaymentRejectsBadInput() {
	actor := s.user("100")
	plan := s.plan("60", 30)
	s.assignment(actor, plan, models.AssignmentInactive, nil, false)

	_, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("0"), models.MethodBalance)
	s.isErr(err, services.ErrInvalidAmount)

	_, err = s.payments.CreatePayment(s.ctx, actor, plan.ID, money("60"), "bitcoin")
	s.isErr(err, services.ErrInvalidPaymentMethod)
}

func (s *PaymentSuite) TestPaymentRollsBackOnPersistenceFailure() {
	actor := s.user("100")
	plan := s.plan("60", 30)
	a := s.assignment(actor, plan, models.AssignmentInactive, nil, false)
	s.store.FailOn("CreatePayment", errors.New("connection lost"))

	_, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("60"), models.MethodBalance)
	s.isErr(err, services.ErrPersistenceFailure)

	s.assertMoney("100", s.balance(actor))
	s.assertLedgerMatches(actor)
	got := s.reload(a.ID)
	s.Equal(models.AssignmentInactive, got.Status)
	s.Nil(got.EndDate)
	s.Empty(s.notificationsOf(actor, models.CategoryPayment))
}

func (s *PaymentSuite) TestNotificationFailureRollsBackEverything() {
	actor := s.user("100")
	plan := s.plan("60", 30)
	a := s.assignment(actor, plan, models.AssignmentInactive, nil, false)
	s.store.FailOn("CreateNotification", errors.New("connection lost"))

	_, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("60"), models.MethodBalance)
	s.isErr(err, services.ErrPersistenceFailure)
	s.store.FailOn("CreateNotification", nil)

	s.assertMoney("100", s.balance(actor))
	s.Equal(models.AssignmentInactive, s.reload(a.ID).Status)
	list, err := s.payments.ListPayments(s.ctx, actor, store.Page{})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *PaymentSuite) TestFailedSettlementIsRecorded() {
	s.settler = failingSettler{}
	s.wire()
	actor := s.user("100")
	plan := s.plan("60", 30)
	a := s.assignment(actor, plan, models.AssignmentInactive, nil, false)

	payment, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("60"), models.MethodBalance)
	s.Require().NoError(err)

	s.Equal(models.PaymentFailed, payment.Status)
	s.assertMoney("100", s.balance(actor))
	s.Equal(models.AssignmentInactive, s.reload(a.ID).Status)
	s.Len(s.notificationsOf(actor, models.CategoryPayment), 1)
}

func (s *PaymentSuite) TestRefundRestoresBalanceAndCancels() {
	actor := s.user("100")
	plan := s.plan("60", 30)
	a := s.assignment(actor, plan, models.AssignmentInactive, nil, false)
	payment, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("60"), models.MethodBalance)
	s.Require().NoError(err)

	refunded, err := s.payments.Refund(s.ctx, actor, payment.ID, "changed my mind")
	s.Require().NoError(err)

	s.Equal(models.PaymentRefunded, refunded.Status)
	s.True(refunded.IsRefunded)
	s.Require().NotNil(refunded.RefundReason)
	s.Equal("changed my mind", *refunded.RefundReason)
	s.assertMoney("100", s.balance(actor))
	s.assertLedgerMatches(actor)

	got := s.reload(a.ID)
	s.Equal(models.AssignmentCancelled, got.Status)
	s.Equal(s.today, *got.EndDate)
	mine, err := s.lifecycle.ListMine(s.ctx, actor)
	s.Require().NoError(err)
	s.False(mine[0].IsActive)
	s.Equal(models.AssignmentCancelled, mine[0].State)

	entries, err := s.ledger.History(s.ctx, actor.UserID)
	s.Require().NoError(err)
	s.Equal("refund for payment #"+payment.ID.String(), entries[0].Description)
	s.Len(s.notificationsOf(actor, models.CategoryRefund), 1)
}

func (s *PaymentSuite) TestRefundTwiceFails() {
	actor := s.user("100")
	plan := s.plan("60", 30)
	s.assignment(actor, plan, models.AssignmentInactive, nil, false)
	payment, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("60"), models.MethodBalance)
	s.Require().NoError(err)

	_, err = s.payments.Refund(s.ctx, actor, payment.ID, "first")
	s.Require().NoError(err)
	_, err = s.payments.Refund(s.ctx, actor, payment.ID, "second")
	s.isErr(err, services.ErrAlreadyRefunded)

	s.assertMoney("100", s.balance(actor))
	s.assertLedgerMatches(actor)
}

func (s *PaymentSuite) TestRefundOfFailedPaymentFails() {
	s.settler = failingSettler{}
	s.wire()
	actor := s.user("100")
	plan := s.plan("60", 30)
	s.assignment(actor, plan, models.AssignmentInactive, nil, false)
	payment, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("60"), models.MethodBalance)
	s.Require().NoError(err)

	_, err = s.payments.Refund(s.ctx, actor, payment.ID, "nothing to refund")
	s.isErr(err, services.ErrAlreadyRefunded)
	s.assertMoney("100", s.balance(actor))
}

func (s *PaymentSuite) TestRefundOfOtherUsersPayment() {
	owner := s.user("100")
	stranger := s.user("0")
	plan := s.plan("60", 30)
	s.assignment(owner, plan, models.AssignmentInactive, nil, false)
	payment, err := s.payments.CreatePayment(s.ctx, owner, plan.ID, money("60"), models.MethodBalance)
	s.Require().NoError(err)

	_, err = s.payments.Refund(s.ctx, stranger, payment.ID, "not mine")
	s.isErr(err, services.ErrNotFound)

	_, err = s.payments.Refund(s.ctx, owner, uuid.New(), "missing")
	s.isErr(err, services.ErrNotFound)
	s.assertMoney("40", s.balance(owner))
}

func (s *PaymentSuite) TestToggleAutoRenew() {
	owner := s.user("0")
	stranger := s.user("0")
	admin := s.admin()
	plan := s.plan("60", 30)
	a := s.assignment(owner, plan, models.AssignmentActive, s.datePtr(5), false)

	got, err := s.payments.ToggleAutoRenew(s.ctx, owner, a.ID, true)
	s.Require().NoError(err)
	s.True(got.AutoRenew)
	s.True(got.IsActive)

	_, err = s.payments.ToggleAutoRenew(s.ctx, stranger, a.ID, false)
	s.isErr(err, services.ErrForbidden)
	s.True(s.reload(a.ID).AutoRenew)

	_, err = s.payments.ToggleAutoRenew(s.ctx, admin, a.ID, false)
	s.Require().NoError(err)
	s.False(s.reload(a.ID).AutoRenew)

	_, err = s.payments.ToggleAutoRenew(s.ctx, owner, uuid.New(), true)
	s.isErr(err, services.ErrNotFound)
}

func (s *PaymentSuite) TestListPaymentsNewestFirst() {
	actor := s.user("100")
	plan := s.plan("10", 30)
	s.assignment(actor, plan, models.AssignmentInactive, nil, false)

	first, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("10"), models.MethodBalance)
	s.Require().NoError(err)
	second, err := s.payments.CreatePayment(s.ctx, actor, plan.ID, money("10"), models.MethodCard)
	s.Require().NoError(err)

	list, err := s.payments.ListPayments(s.ctx, actor, store.Page{Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(second.ID, list[0].ID)
	s.Equal(first.ID, list[1].ID)

	page, err := s.payments.ListPayments(s.ctx, actor, store.Page{Offset: 1, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal(first.ID, page[0].ID)
}
