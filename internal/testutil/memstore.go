// Package testutil provides an in-memory store.Store for service and handler
// tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type memData struct {
	users         map[uuid.UUID]models.User
	transactions  []models.BalanceTransaction
	plans         map[uuid.UUID]models.Plan
	assignments   map[uuid.UUID]models.Assignment
	payments      map[uuid.UUID]models.Payment
	notifications map[uuid.UUID]models.Notification
	requests      map[uuid.UUID]models.SubscriptionRequest
}

func newMemData() *memData {
	return &memData{
		users:         make(map[uuid.UUID]models.User),
		plans:         make(map[uuid.UUID]models.Plan),
		assignments:   make(map[uuid.UUID]models.Assignment),
		payments:      make(map[uuid.UUID]models.Payment),
		notifications: make(map[uuid.UUID]models.Notification),
		requests:      make(map[uuid.UUID]models.SubscriptionRequest),
	}
}

func (d *memData) clone() *memData {
	return &memData{
		users:         cloneMap(d.users),
		transactions:  append([]models.BalanceTransaction(nil), d.transactions...),
		plans:         cloneMap(d.plans),
		assignments:   cloneMap(d.assignments),
		payments:      cloneMap(d.payments),
		notifications: cloneMap(d.notifications),
		requests:      cloneMap(d.requests),
	}
}

func cloneMap[V any](m map[uuid.UUID]V) map[uuid.UUID]V {
	out := make(map[uuid.UUID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memState struct {
	mu     sync.Mutex
	data   *memData
	faults map[string]error
	seq    time.Duration
	now    func() time.Time
}

// MemStore implements store.Store in memory. Transactions are serialized
// and roll back by restoring a snapshot taken at WithTx.
type MemStore struct {
	state *memState
	inTx  bool
}

var _ store.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{state: &memState{data: newMemData(), faults: make(map[string]error)}}
}

// FailOn makes the named operation (e.g. "CreatePayment") return err until
// cleared with a nil err.
func (m *MemStore) FailOn(op string, err error) {
	unlock := m.lock()
	defer unlock()
	if err == nil {
		delete(m.state.faults, op)
		return
	}
	m.state.faults[op] = err
}

// SetClock makes created_at/updated_at stamps follow clock instead of the
// wall clock.
func (m *MemStore) SetClock(clock func() time.Time) {
	unlock := m.lock()
	defer unlock()
	m.state.now = clock
}

func (m *MemStore) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.state.mu.Lock()
	return m.state.mu.Unlock
}

func (m *MemStore) fault(op string) error {
	if err, ok := m.state.faults[op]; ok {
		return errors.Mark(errors.Wrap(err, op), store.ErrPersistence)
	}
	return nil
}

// stamp returns a strictly increasing timestamp so ordering by created_at
// is deterministic.
func (m *MemStore) stamp() time.Time {
	m.state.seq += time.Microsecond
	now := time.Now
	if m.state.now != nil {
		now = m.state.now
	}
	return now().UTC().Add(m.state.seq)
}

func notFound(op string) error {
	return errors.Wrap(store.ErrRecordNotFound, op)
}

func (m *MemStore) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.state.mu.Lock()
	defer m.state.mu.Unlock()

	snapshot := m.state.data.clone()
	committed := false
	// Restores on error and on panic.
	defer func() {
		if !committed {
			m.state.data = snapshot
		}
	}()

	tx := &MemStore{state: m.state, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (m *MemStore) CreateUser(ctx context.Context, user *models.User) error {
	unlock := m.lock()
	defer unlock()
	if err := m.fault("CreateUser"); err != nil {
		return err
	}
	for _, u := range m.state.data.users {
		if u.Email == user.Email {
			return errors.Mark(errors.New("duplicate email"), store.ErrDuplicate)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt = m.stamp()
	user.UpdatedAt = user.CreatedAt
	m.state.data.users[user.ID] = *user
	return nil
}

func (m *MemStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	unlock := m.lock()
	defer unlock()
	u, ok := m.state.data.users[id]
	if !ok {
		return nil, notFound("get user")
	}
	return &u, nil
}

func (m *MemStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	unlock := m.lock()
	defer unlock()
	for _, u := range m.state.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, notFound("get user by email")
}

func (m *MemStore) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	unlock := m.lock()
	defer unlock()
	if err := m.fault("LockUser"); err != nil {
		return nil, err
	}
	u, ok := m.state.data.users[id]
	if !ok {
		return nil, notFound("lock user")
	}
	return &u, nil
}

func (m *MemStore) SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	unlock := m.lock()
	defer unlock()
	if err := m.fault("SetBalance"); err != nil {
		return err
	}
	u, ok := m.state.data.users[id]
	if !ok {
		return notFound("set balance")
	}
	u.Balance = balance
	u.UpdatedAt = m.stamp()
	m.state.data.users[id] = u
	return nil
}

func (m *MemStore) AppendTransaction(ctx context.Context, txn *models.BalanceTransaction) error {
	unlock := m.lock()
	defer unlock()
	if err := m.fault("AppendTransaction"); err != nil {
		return err
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	txn.CreatedAt = m.stamp()
	m.state.data.transactions = append(m.state.data.transactions, *txn)
	return nil
}

func (m *MemStore) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.BalanceTransaction, error) {
	unlock := m.lock()
	defer unlock()
	list := lo.Filter(m.state.data.transactions, func(t models.BalanceTransaction, _ int) bool {
		return t.UserID == userID
	})
	return lo.Reverse(list), nil
}

func (m *MemStore) CreatePlan(ctx context.Context, plan *models.Plan) error {
	unlock := m.lock()
	defer unlock()
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	plan.CreatedAt = m.stamp()
	plan.UpdatedAt = plan.CreatedAt
	m.state.data.plans[plan.ID] = *plan
	return nil
}

func (m *MemStore) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	unlock := m.lock()
	defer unlock()
	p, ok := m.state.data.plans[id]
	if !ok {
		return nil, notFound("get plan")
	}
	return &p, nil
}

func (m *MemStore) ListPlans(ctx context.Context, activeOnly bool, page store.Page) ([]models.Plan, error) {
	unlock := m.lock()
	defer unlock()
	list := lo.Filter(lo.Values(m.state.data.plans), func(p models.Plan, _ int) bool {
		return !activeOnly || p.IsActive
	})
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return paginate(list, page), nil
}

func (m *MemStore) SavePlan(ctx context.Context, plan *models.Plan) error {
	unlock := m.lock()
	defer unlock()
	plan.UpdatedAt = m.stamp()
	m.state.data.plans[plan.ID] = *plan
	return nil
}

func (m *MemStore) DeletePlan(ctx context.Context, id uuid.UUID) error {
	unlock := m.lock()
	defer unlock()
	if _, ok := m.state.data.plans[id]; !ok {
		return notFound("delete plan")
	}
	delete(m.state.data.plans, id)
	return nil
}

func (m *MemStore) CountAssignmentsForPlan(ctx context.Context, planID uuid.UUID) (int64, error) {
	unlock := m.lock()
	defer unlock()
	n := lo.CountBy(lo.Values(m.state.data.assignments), func(a models.Assignment) bool {
		return a.PlanID == planID
	})
	return int64(n), nil
}

func (m *MemStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	unlock := m.lock()
	defer unlock()
	if err := m.fault("CreateAssignment"); err != nil {
		return err
	}
	for _, existing := range m.state.data.assignments {
		if existing.UserID == a.UserID && existing.PlanID == a.PlanID {
			return errors.Mark(errors.New("duplicate assignment"), store.ErrDuplicate)
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = m.stamp()
	a.UpdatedAt = a.CreatedAt
	m.state.data.assignments[a.ID] = *a
	return nil
}

func (m *MemStore) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	unlock := m.lock()
	defer unlock()
	a, ok := m.state.data.assignments[id]
	if !ok {
		return nil, notFound("get assignment")
	}
	return &a, nil
}

func (m *MemStore) LockAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	return m.GetAssignment(ctx, id)
}

func (m *MemStore) FindAssignment(ctx context.Context, userID, planID uuid.UUID) (*models.Assignment, error) {
	unlock := m.lock()
	defer unlock()
	for _, a := range m.state.data.assignments {
		if a.UserID == userID && a.PlanID == planID {
			return &a, nil
		}
	}
	return nil, notFound("find assignment")
}

func (m *MemStore) ListAssignments(ctx context.Context, userID uuid.UUID) ([]models.Assignment, error) {
	unlock := m.lock()
	defer unlock()
	list := lo.Filter(lo.Values(m.state.data.assignments), func(a models.Assignment, _ int) bool {
		return a.UserID == userID
	})
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (m *MemStore) ListDueForRenewal(ctx context.Context, day time.Time) ([]models.Assignment, error) {
	unlock := m.lock()
	defer unlock()
	if err := m.fault("ListDueForRenewal"); err != nil {
		return nil, err
	}
	list := lo.Filter(lo.Values(m.state.data.assignments), func(a models.Assignment, _ int) bool {
		return a.AutoRenew && a.Status == models.AssignmentActive && a.EndDate != nil && a.EndDate.Equal(day)
	})
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (m *MemStore) SaveAssignment(ctx context.Context, a *models.Assignment) error {
	unlock := m.lock()
	defer unlock()
	if err := m.fault("SaveAssignment"); err != nil {
		return err
	}
	a.UpdatedAt = m.stamp()
	m.state.data.assignments[a.ID] = *a
	return nil
}

func (m *MemStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	unlock := m.lock()
	defer unlock()
	if err := m.fault("CreatePayment"); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = m.stamp()
	p.UpdatedAt = p.CreatedAt
	m.state.data.payments[p.ID] = *p
	return nil
}

func (m *MemStore) LockPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	unlock := m.lock()
	defer unlock()
	p, ok := m.state.data.payments[id]
	if !ok {
		return nil, notFound("lock payment")
	}
	return &p, nil
}

func (m *MemStore) ListPayments(ctx context.Context, userID uuid.UUID, page store.Page) ([]models.Payment, error) {
	unlock := m.lock()
	defer unlock()
	list := lo.Filter(lo.Values(m.state.data.payments), func(p models.Payment, _ int) bool {
		return p.UserID == userID
	})
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return paginate(list, page), nil
}

func (m *MemStore) SavePayment(ctx context.Context, p *models.Payment) error {
	unlock := m.lock()
	defer unlock()
	if err := m.fault("SavePayment"); err != nil {
		return err
	}
	p.UpdatedAt = m.stamp()
	m.state.data.payments[p.ID] = *p
	return nil
}

func (m *MemStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	unlock := m.lock()
	defer unlock()
	if err := m.fault("CreateNotification"); err != nil {
		return err
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = m.stamp()
	m.state.data.notifications[n.ID] = *n
	return nil
}

func (m *MemStore) ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	unlock := m.lock()
	defer unlock()
	list := lo.Filter(lo.Values(m.state.data.notifications), func(n models.Notification, _ int) bool {
		return n.UserID == userID
	})
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (m *MemStore) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	unlock := m.lock()
	defer unlock()
	n, ok := m.state.data.notifications[id]
	if !ok {
		return nil, notFound("get notification")
	}
	return &n, nil
}

func (m *MemStore) SaveNotification(ctx context.Context, n *models.Notification) error {
	unlock := m.lock()
	defer unlock()
	m.state.data.notifications[n.ID] = *n
	return nil
}

func (m *MemStore) NotificationExists(ctx context.Context, userID uuid.UUID, category string, reference uuid.UUID, since time.Time) (bool, error) {
	unlock := m.lock()
	defer unlock()
	for _, n := range m.state.data.notifications {
		if n.UserID == userID && n.Category == category && n.Reference != nil &&
			*n.Reference == reference && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) CreateRequest(ctx context.Context, r *models.SubscriptionRequest) error {
	unlock := m.lock()
	defer unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = m.stamp()
	m.state.data.requests[r.ID] = *r
	return nil
}

func (m *MemStore) LockRequest(ctx context.Context, id uuid.UUID) (*models.SubscriptionRequest, error) {
	unlock := m.lock()
	defer unlock()
	r, ok := m.state.data.requests[id]
	if !ok {
		return nil, notFound("lock subscription request")
	}
	return &r, nil
}

func (m *MemStore) FindPendingRequest(ctx context.Context, userID, planID uuid.UUID) (*models.SubscriptionRequest, error) {
	unlock := m.lock()
	defer unlock()
	for _, r := range m.state.data.requests {
		if r.UserID == userID && r.PlanID == planID && r.Status == models.RequestPending {
			return &r, nil
		}
	}
	return nil, notFound("find pending request")
}

func (m *MemStore) ListRequests(ctx context.Context) ([]models.SubscriptionRequest, error) {
	unlock := m.lock()
	defer unlock()
	list := lo.Values(m.state.data.requests)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (m *MemStore) SaveRequest(ctx context.Context, r *models.SubscriptionRequest) error {
	unlock := m.lock()
	defer unlock()
	m.state.data.requests[r.ID] = *r
	return nil
}

func paginate[T any](list []T, page store.Page) []T {
	if page.Offset >= len(list) {
		return []T{}
	}
	list = list[page.Offset:]
	if page.Limit > 0 && page.Limit < len(list) {
		list = list[:page.Limit]
	}
	return list
}
