package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ActivationPolicy decides what a payment does to an assignment whose
// end date has not lapsed yet.
type ActivationPolicy string

const (
	// ActivationKeep leaves a still-valid end date untouched.
	ActivationKeep ActivationPolicy = "keep"
	// ActivationExtend pushes a still-valid end date by one plan duration.
	ActivationExtend ActivationPolicy = "extend"
)

// ParseActivationPolicy falls back to ActivationKeep for unknown values.
func ParseActivationPolicy(s string) ActivationPolicy {
	if ActivationPolicy(s) == ActivationExtend {
		return ActivationExtend
	}
	return ActivationKeep
}

// LifecycleService drives assignments through
// request -> approved (inactive) -> active -> expired | cancelled.
type LifecycleService struct {
	store    store.Store
	authz    Authorizer
	notifier Notifier
	clock    Clock
	policy   ActivationPolicy
}

func NewLifecycleService(s store.Store, authz Authorizer, notifier Notifier, clock Clock, policy ActivationPolicy) *LifecycleService {
	return &LifecycleService{
		store:    s,
		authz:    authz,
		notifier: notifier,
		clock:    clock,
		policy:   policy,
	}
}

// RecomputeActivity fills the projected IsActive and State fields of a as of
// the given day. It never writes.
func RecomputeActivity(a *models.Assignment, asOf time.Time) {
	switch a.Status {
	case models.AssignmentActive:
		if a.EndDate != nil && !a.EndDate.Before(asOf) {
			a.IsActive = true
			a.State = models.AssignmentActive
			return
		}
		a.IsActive = false
		a.State = models.StateExpired
	case models.AssignmentCancelled:
		a.IsActive = false
		a.State = models.AssignmentCancelled
	default:
		a.IsActive = false
		a.State = models.AssignmentInactive
	}
}

// Request files a pending request for planID on behalf of actor.
func (s *LifecycleService) Request(ctx context.Context, actor Actor, planID uuid.UUID) (*models.SubscriptionRequest, error) {
	var req *models.SubscriptionRequest
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		// Serializes concurrent requests from the same user.
		if _, err := tx.LockUser(ctx, actor.UserID); err != nil {
			return fromStore(err, "user")
		}

		plan, err := tx.GetPlan(ctx, planID)
		if err != nil {
			return fromStore(err, "plan")
		}
		if !plan.IsActive {
			return detail(ErrNotFound, "plan not found")
		}

		_, err = tx.FindPendingRequest(ctx, actor.UserID, planID)
		if err == nil {
			return ErrDuplicateRequest
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}

		req = &models.SubscriptionRequest{
			ID:     uuid.New(),
			UserID: actor.UserID,
			PlanID: planID,
			Status: models.RequestPending,
		}
		return tx.CreateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListRequests returns every request, newest first. Admin only.
func (s *LifecycleService) ListRequests(ctx context.Context, actor Actor) ([]models.SubscriptionRequest, error) {
	if !s.authz.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	return s.store.ListRequests(ctx)
}

// Approve accepts a pending request and creates an inactive assignment for
// it unless one already exists. Admin only.
func (s *LifecycleService) Approve(ctx context.Context, actor Actor, requestID uuid.UUID) (*models.SubscriptionRequest, error) {
	return s.process(ctx, actor, requestID, models.RequestApproved)
}

// Reject declines a pending request. Admin only.
func (s *LifecycleService) Reject(ctx context.Context, actor Actor, requestID uuid.UUID) (*models.SubscriptionRequest, error) {
	return s.process(ctx, actor, requestID, models.RequestRejected)
}

func (s *LifecycleService) process(ctx context.Context, actor Actor, requestID uuid.UUID, status string) (*models.SubscriptionRequest, error) {
	if !s.authz.IsAdmin(actor) {
		return nil, ErrForbidden
	}

	day := today(s.clock)
	var req *models.SubscriptionRequest
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		req, err = tx.LockRequest(ctx, requestID)
		if err != nil {
			return fromStore(err, "request")
		}
		if req.Status != models.RequestPending {
			return ErrAlreadyProcessed
		}

		message := "Your subscription request was rejected"
		if status == models.RequestApproved {
			if err := s.ensureAssignment(ctx, tx, req, day); err != nil {
				return err
			}
			message = "Your subscription request was approved, pay to activate it"
		}

		now := s.now()
		req.Status = status
		req.ProcessedBy = &actor.UserID
		req.ProcessedAt = &now
		if err := tx.SaveRequest(ctx, req); err != nil {
			return err
		}

		return s.notifier.Notify(ctx, tx, Notice{
			UserID:    req.UserID,
			Message:   message,
			Category:  models.CategoryRequest,
			Reference: &req.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *LifecycleService) ensureAssignment(ctx context.Context, tx store.Store, req *models.SubscriptionRequest, day time.Time) error {
	_, err := tx.FindAssignment(ctx, req.UserID, req.PlanID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return err
	}
	return tx.CreateAssignment(ctx, &models.Assignment{
		ID:        uuid.New(),
		UserID:    req.UserID,
		PlanID:    req.PlanID,
		StartDate: day,
		Status:    models.AssignmentInactive,
	})
}

// AssignInput describes an admin's manual assignment.
type AssignInput struct {
	UserID    uuid.UUID
	PlanID    uuid.UUID
	EndDate   *time.Time
	AutoRenew bool
}

// Assign creates an active assignment directly, bypassing the request
// workflow. Admin only.
func (s *LifecycleService) Assign(ctx context.Context, actor Actor, in AssignInput) (*models.Assignment, error) {
	if !s.authz.IsAdmin(actor) {
		return nil, ErrForbidden
	}

	day := today(s.clock)
	if in.EndDate != nil && DateOf(*in.EndDate).Before(day) {
		return nil, detail(ErrInvalidDate, "end date is in the past")
	}

	var a *models.Assignment
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.LockUser(ctx, in.UserID); err != nil {
			return fromStore(err, "user")
		}
		plan, err := tx.GetPlan(ctx, in.PlanID)
		if err != nil {
			return fromStore(err, "plan")
		}

		_, err = tx.FindAssignment(ctx, in.UserID, in.PlanID)
		if err == nil {
			return ErrAlreadyAssigned
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}

		end := AddDays(day, plan.DurationDays)
		if in.EndDate != nil {
			end = DateOf(*in.EndDate)
		}
		a = &models.Assignment{
			ID:        uuid.New(),
			UserID:    in.UserID,
			PlanID:    in.PlanID,
			StartDate: day,
			EndDate:   &end,
			Status:    models.AssignmentActive,
			AutoRenew: in.AutoRenew,
		}
		if err := tx.CreateAssignment(ctx, a); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrAlreadyAssigned
			}
			return err
		}

		return s.notifier.Notify(ctx, tx, Notice{
			UserID:    in.UserID,
			Message:   fmt.Sprintf("Subscription %s was assigned to you until %s", plan.Name, end.Format(time.DateOnly)),
			Category:  models.CategorySubscription,
			Reference: &a.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	RecomputeActivity(a, day)
	return a, nil
}

// Activate marks a as active after a successful payment. A lapsed or unset
// end date restarts the period from day; a still-valid one follows the
// activation policy. tx must be a transactional store.
func (s *LifecycleService) Activate(ctx context.Context, tx store.Store, a *models.Assignment, plan *models.Plan, day time.Time) error {
	switch {
	case a.EndDate == nil || a.EndDate.Before(day):
		end := AddDays(day, plan.DurationDays)
		a.StartDate = day
		a.EndDate = &end
	case s.policy == ActivationExtend:
		end := AddDays(*a.EndDate, plan.DurationDays)
		a.EndDate = &end
	}
	a.Status = models.AssignmentActive
	return tx.SaveAssignment(ctx, a)
}

// CancelOnRefund ends a on day. tx must be a transactional store.
func (s *LifecycleService) CancelOnRefund(ctx context.Context, tx store.Store, a *models.Assignment, day time.Time) error {
	end := day
	a.EndDate = &end
	a.Status = models.AssignmentCancelled
	RecomputeActivity(a, day)
	return tx.SaveAssignment(ctx, a)
}

// Renew extends an assignment by one plan duration. Owner or admin only.
func (s *LifecycleService) Renew(ctx context.Context, actor Actor, assignmentID uuid.UUID) (*models.Assignment, error) {
	day := today(s.clock)
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

		plan, err := tx.GetPlan(ctx, a.PlanID)
		if err != nil {
			return fromStore(err, "plan")
		}

		base := day
		if a.EndDate != nil {
			base = *a.EndDate
		}
		end := AddDays(base, plan.DurationDays)
		a.EndDate = &end
		a.Status = models.AssignmentActive
		return tx.SaveAssignment(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	RecomputeActivity(a, day)
	return a, nil
}

// Get returns one assignment with its projection applied. Owner or admin
// only; other actors see ErrNotFound.
func (s *LifecycleService) Get(ctx context.Context, actor Actor, assignmentID uuid.UUID) (*models.Assignment, error) {
	a, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fromStore(err, "assignment")
	}
	if !canManage(s.authz, actor, a.UserID) {
		return nil, detail(ErrNotFound, "assignment not found")
	}
	RecomputeActivity(a, today(s.clock))
	return a, nil
}

// ListMine returns the actor's assignments with their projection applied.
func (s *LifecycleService) ListMine(ctx context.Context, actor Actor) ([]models.Assignment, error) {
	list, err := s.store.ListAssignments(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	day := today(s.clock)
	for i := range list {
		RecomputeActivity(&list[i], day)
	}
	return list, nil
}

func (s *LifecycleService) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
