// Package store is the persistence handle used by the services. Every
// multi-step operation runs inside WithTx and sees its own transactional
// Store; an error returned from the callback rolls the whole unit back.
package store

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrRecordNotFound is returned by single-row lookups that match nothing.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicate marks writes rejected by a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrPersistence marks every other datastore failure.
	ErrPersistence = errors.New("persistence failure")
)

// Page is an offset/limit window for list queries.
type Page struct {
	Offset int
	Limit  int
}

type Store interface {
	// WithTx runs fn in one atomic transaction. Calling WithTx on a
	// transactional Store joins the enclosing transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// LockUser reads the user row and holds a row lock until the
	// transaction ends.
	LockUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error

	AppendTransaction(ctx context.Context, txn *models.BalanceTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.BalanceTransaction, error)

	CreatePlan(ctx context.Context, plan *models.Plan) error
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	ListPlans(ctx context.Context, activeOnly bool, page Page) ([]models.Plan, error)
	SavePlan(ctx context.Context, plan *models.Plan) error
	DeletePlan(ctx context.Context, id uuid.UUID) error
	CountAssignmentsForPlan(ctx context.Context, planID uuid.UUID) (int64, error)

	CreateAssignment(ctx context.Context, a *models.Assignment) error
	GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	LockAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	FindAssignment(ctx context.Context, userID, planID uuid.UUID) (*models.Assignment, error)
	ListAssignments(ctx context.Context, userID uuid.UUID) ([]models.Assignment, error)
	// ListDueForRenewal returns active auto-renewing assignments ending on day.
	ListDueForRenewal(ctx context.Context, day time.Time) ([]models.Assignment, error)
	SaveAssignment(ctx context.Context, a *models.Assignment) error

	CreatePayment(ctx context.Context, p *models.Payment) error
	LockPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, userID uuid.UUID, page Page) ([]models.Payment, error)
	SavePayment(ctx context.Context, p *models.Payment) error

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	SaveNotification(ctx context.Context, n *models.Notification) error
	// NotificationExists reports whether userID already got a notification
	// of category about reference at or after since.
	NotificationExists(ctx context.Context, userID uuid.UUID, category string, reference uuid.UUID, since time.Time) (bool, error)

	CreateRequest(ctx context.Context, r *models.SubscriptionRequest) error
	LockRequest(ctx context.Context, id uuid.UUID) (*models.SubscriptionRequest, error)
	FindPendingRequest(ctx context.Context, userID, planID uuid.UUID) (*models.SubscriptionRequest, error)
	ListRequests(ctx context.Context) ([]models.SubscriptionRequest, error)
	SaveRequest(ctx context.Context, r *models.SubscriptionRequest) error
}
