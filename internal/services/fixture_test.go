package services_test

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/testutil"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

var baseTime = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// BaseSuite wires every service against a fresh MemStore and a fixed clock.
type BaseSuite struct {
	suite.Suite

	ctx   context.Context
	now   time.Time
	today time.Time
	store *testutil.MemStore
	authz *services.RoleAuthorizer

	notifier      services.Notifier
	settler       services.Settler
	policy        services.ActivationPolicy
	ledger        *services.LedgerService
	lifecycle     *services.LifecycleService
	payments      *services.PaymentService
	renewals      *services.RenewalService
	plans         *services.PlanService
	notifications *services.NotificationService
}

func (s *BaseSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = baseTime
	s.today = services.DateOf(baseTime)
	s.store = testutil.NewMemStore()
	s.store.SetClock(s.clock)
	s.authz = services.NewRoleAuthorizer("")
	s.notifier = services.StoreNotifier{}
	s.settler = services.MockSettler{}
	s.policy = services.ActivationKeep
	s.wire()
}

func (s *BaseSuite) clock() time.Time {
	return s.now
}

// wire rebuilds the services after a collaborator was swapped.
func (s *BaseSuite) wire() {
	s.ledger = services.NewLedgerService(s.store)
	s.lifecycle = services.NewLifecycleService(s.store, s.authz, s.notifier, s.clock, s.policy)
	s.payments = services.NewPaymentService(s.store, s.ledger, s.lifecycle, s.settler, s.authz, s.notifier, s.clock, "RUB")
	s.renewals = services.NewRenewalService(s.store, s.ledger, s.notifier, s.clock, "RUB")
	s.plans = services.NewPlanService(s.store, s.authz)
	s.notifications = services.NewNotificationService(s.store)
}

func (s *BaseSuite) days(n int) time.Time {
	return services.AddDays(s.today, n)
}

func (s *BaseSuite) datePtr(n int) *time.Time {
	d := s.days(n)
	return &d
}

// user creates a user and funds the wallet through the ledger.
func (s *BaseSuite) user(balance string) services.Actor {
	u := &models.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Role: models.RoleUser}
	s.Require().NoError(s.store.CreateUser(s.ctx, u))
	actor := services.Actor{UserID: u.ID, Role: u.Role}
	if b := money(balance); b.IsPositive() {
		_, err := s.ledger.TopUp(s.ctx, actor, b)
		s.Require().NoError(err)
	}
	return actor
}

func (s *BaseSuite) admin() services.Actor {
	u := &models.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Role: models.RoleAdmin}
	s.Require().NoError(s.store.CreateUser(s.ctx, u))
	return services.Actor{UserID: u.ID, Role: u.Role}
}

func (s *BaseSuite) plan(price string, duration int) *models.Plan {
	p := &models.Plan{
		ID:           uuid.New(),
		Name:         "Plan " + price,
		Price:        money(price),
		DurationDays: duration,
		IsActive:     true,
	}
	s.Require().NoError(s.store.CreatePlan(s.ctx, p))
	return p
}

func (s *BaseSuite) assignment(actor services.Actor, plan *models.Plan, status string, end *time.Time, autoRenew bool) *models.Assignment {
	a := &models.Assignment{
		ID:        uuid.New(),
		UserID:    actor.UserID,
		PlanID:    plan.ID,
		StartDate: s.days(-plan.DurationDays),
		EndDate:   end,
		Status:    status,
		AutoRenew: autoRenew,
	}
	s.Require().NoError(s.store.CreateAssignment(s.ctx, a))
	return a
}

func (s *BaseSuite) reload(id uuid.UUID) *models.Assignment {
	a, err := s.store.GetAssignment(s.ctx, id)
	s.Require().NoError(err)
	return a
}

func (s *BaseSuite) balance(actor services.Actor) decimal.Decimal {
	b, err := s.ledger.Balance(s.ctx, actor.UserID)
	s.Require().NoError(err)
	return b
}

func (s *BaseSuite) assertMoney(want string, got decimal.Decimal) {
	s.Truef(money(want).Equal(got), "expected %s, got %s", want, got)
}

// assertLedgerMatches checks balance == sum(topup) - sum(withdraw).
func (s *BaseSuite) assertLedgerMatches(actor services.Actor) {
	entries, err := s.ledger.History(s.ctx, actor.UserID)
	s.Require().NoError(err)
	sum := decimal.Zero
	for i := range entries {
		sum = sum.Add(entries[i].Signed())
	}
	s.assertMoney(sum.String(), s.balance(actor))
}

func (s *BaseSuite) notificationsOf(actor services.Actor, category string) []models.Notification {
	list, err := s.notifications.List(s.ctx, actor)
	s.Require().NoError(err)
	var out []models.Notification
	for _, n := range list {
		if n.Category == category {
			out = append(out, n)
		}
	}
	return out
}

// isErr asserts with errors.Is from cockroachdb/errors, which also matches
// marked errors.
func (s *BaseSuite) isErr(err, target error, msgAndArgs ...interface{}) {
	s.Truef(errors.Is(err, target), "expected %v, got %v %v", target, err, msgAndArgs)
}

// staleLookups hides existing users and assignments from the pre-insert
// checks, as a concurrent writer committing in between would.
type staleLookups struct {
	store.Store
}

func (s staleLookups) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(staleLookups{tx})
	})
}

func (staleLookups) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.Wrap(store.ErrRecordNotFound, "get user by email")
}

func (staleLookups) FindAssignment(context.Context, uuid.UUID, uuid.UUID) (*models.Assignment, error) {
	return nil, errors.Wrap(store.ErrRecordNotFound, "find assignment")
}
