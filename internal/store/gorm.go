package store

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *GormStore) locked(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

// wrap converts gorm errors into the store's error contract.
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(ErrRecordNotFound, op)
	}
	if isUniqueViolation(err) {
		return errors.Mark(errors.Wrap(err, op), ErrDuplicate)
	}
	return errors.Mark(errors.Wrap(err, op), ErrPersistence)
}

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return wrap(s.conn(ctx).Create(user).Error, "create user")
}

func (s *GormStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "get user")
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrap(err, "get user by email")
	}
	return &user, nil
}

func (s *GormStore) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.locked(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "lock user")
	}
	return &user, nil
}

func (s *GormStore) SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	res := s.conn(ctx).Model(&models.User{}).Where("id = ?", id).Update("balance", balance)
	if res.Error != nil {
		return wrap(res.Error, "set balance")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrRecordNotFound, "set balance")
	}
	return nil
}

func (s *GormStore) AppendTransaction(ctx context.Context, txn *models.BalanceTransaction) error {
	return wrap(s.conn(ctx).Create(txn).Error, "append balance transaction")
}

func (s *GormStore) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.BalanceTransaction, error) {
	var txns []models.BalanceTransaction
	err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&txns).Error
	return txns, wrap(err, "list balance transactions")
}

func (s *GormStore) CreatePlan(ctx context.Context, plan *models.Plan) error {
	return wrap(s.conn(ctx).Create(plan).Error, "create plan")
}

func (s *GormStore) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := s.conn(ctx).First(&plan, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "get plan")
	}
	return &plan, nil
}

func (s *GormStore) ListPlans(ctx context.Context, activeOnly bool, page Page) ([]models.Plan, error) {
	q := s.conn(ctx).Order("created_at ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var plans []models.Plan
	err := q.Offset(page.Offset).Limit(page.Limit).Find(&plans).Error
	return plans, wrap(err, "list plans")
}

func (s *GormStore) SavePlan(ctx context.Context, plan *models.Plan) error {
	return wrap(s.conn(ctx).Save(plan).Error, "save plan")
}

func (s *GormStore) DeletePlan(ctx context.Context, id uuid.UUID) error {
	res := s.conn(ctx).Delete(&models.Plan{}, "id = ?", id)
	if res.Error != nil {
		return wrap(res.Error, "delete plan")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrRecordNotFound, "delete plan")
	}
	return nil
}

func (s *GormStore) CountAssignmentsForPlan(ctx context.Context, planID uuid.UUID) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Assignment{}).Where("plan_id = ?", planID).Count(&n).Error
	return n, wrap(err, "count assignments")
}

func (s *GormStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	return wrap(s.conn(ctx).Create(a).Error, "create assignment")
}

func (s *GormStore) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var a models.Assignment
	if err := s.conn(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "get assignment")
	}
	return &a, nil
}

func (s *GormStore) LockAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var a models.Assignment
	if err := s.locked(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "lock assignment")
	}
	return &a, nil
}

func (s *GormStore) FindAssignment(ctx context.Context, userID, planID uuid.UUID) (*models.Assignment, error) {
	var a models.Assignment
	err := s.locked(ctx).Where("user_id = ? AND plan_id = ?", userID, planID).First(&a).Error
	if err != nil {
		return nil, wrap(err, "find assignment")
	}
	return &a, nil
}

func (s *GormStore) ListAssignments(ctx context.Context, userID uuid.UUID) ([]models.Assignment, error) {
	var list []models.Assignment
	err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&list).Error
	return list, wrap(err, "list assignments")
}

func (s *GormStore) ListDueForRenewal(ctx context.Context, day time.Time) ([]models.Assignment, error) {
	var list []models.Assignment
	err := s.conn(ctx).
		Where("auto_renew = ? AND status = ? AND end_date = ?", true, models.AssignmentActive, day).
		Order("created_at ASC").
		Find(&list).Error
	return list, wrap(err, "list due assignments")
}

func (s *GormStore) SaveAssignment(ctx context.Context, a *models.Assignment) error {
	return wrap(s.conn(ctx).Save(a).Error, "save assignment")
}

func (s *GormStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	return wrap(s.conn(ctx).Create(p).Error, "create payment")
}

func (s *GormStore) LockPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := s.locked(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "lock payment")
	}
	return &p, nil
}

func (s *GormStore) ListPayments(ctx context.Context, userID uuid.UUID, page Page) ([]models.Payment, error) {
	var list []models.Payment
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(page.Offset).Limit(page.Limit).
		Find(&list).Error
	return list, wrap(err, "list payments")
}

func (s *GormStore) SavePayment(ctx context.Context, p *models.Payment) error {
	return wrap(s.conn(ctx).Save(p).Error, "save payment")
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return wrap(s.conn(ctx).Create(n).Error, "create notification")
}

func (s *GormStore) ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	var list []models.Notification
	err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, wrap(err, "list notifications")
}

func (s *GormStore) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := s.conn(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "get notification")
	}
	return &n, nil
}

func (s *GormStore) SaveNotification(ctx context.Context, n *models.Notification) error {
	return wrap(s.conn(ctx).Save(n).Error, "save notification")
}

func (s *GormStore) NotificationExists(ctx context.Context, userID uuid.UUID, category string, reference uuid.UUID, since time.Time) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND category = ? AND reference = ? AND created_at >= ?", userID, category, reference, since).
		Count(&n).Error
	if err != nil {
		return false, wrap(err, "check notification")
	}
	return n > 0, nil
}

func (s *GormStore) CreateRequest(ctx context.Context, r *models.SubscriptionRequest) error {
	return wrap(s.conn(ctx).Create(r).Error, "create subscription request")
}

func (s *GormStore) LockRequest(ctx context.Context, id uuid.UUID) (*models.SubscriptionRequest, error) {
	var r models.SubscriptionRequest
	if err := s.locked(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "lock subscription request")
	}
	return &r, nil
}

func (s *GormStore) FindPendingRequest(ctx context.Context, userID, planID uuid.UUID) (*models.SubscriptionRequest, error) {
	var r models.SubscriptionRequest
	err := s.conn(ctx).
		Where("user_id = ? AND plan_id = ? AND status = ?", userID, planID, models.RequestPending).
		First(&r).Error
	if err != nil {
		return nil, wrap(err, "find pending request")
	}
	return &r, nil
}

func (s *GormStore) ListRequests(ctx context.Context) ([]models.SubscriptionRequest, error) {
	var list []models.SubscriptionRequest
	err := s.conn(ctx).Order("created_at DESC").Find(&list).Error
	return list, wrap(err, "list subscription requests")
}

func (s *GormStore) SaveRequest(ctx context.Context, r *models.SubscriptionRequest) error {
	return wrap(s.conn(ctx).Save(r).Error, "save subscription request")
}
