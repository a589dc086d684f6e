package services

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanInput is the full set of admin-editable plan fields.
type PlanInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	DurationDays  int
	IsActive      bool
	DiscountRate  *decimal.Decimal
	DiscountUntil *time.Time
}

// PlanPatch carries a partial plan update; nil fields are left alone.
type PlanPatch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	DurationDays  *int
	IsActive      *bool
	DiscountRate  *decimal.Decimal
	DiscountUntil *time.Time
	ClearDiscount bool
}

type PlanService struct {
	store store.Store
	authz Authorizer
}

func NewPlanService(s store.Store, authz Authorizer) *PlanService {
	return &PlanService{store: s, authz: authz}
}

func validatePlan(p *models.Plan) error {
	if p.Name == "" {
		return detail(ErrInvalidPlan, "name is required")
	}
	if err := ValidateAmount(p.Price); err != nil {
		return detail(ErrInvalidPlan, "price must be greater than 0 with at most 2 decimal places")
	}
	if p.DurationDays <= 0 {
		return detail(ErrInvalidPlan, "duration_days must be greater than 0")
	}
	if p.DiscountRate != nil {
		one := decimal.NewFromInt(1)
		if !p.DiscountRate.IsPositive() || !p.DiscountRate.LessThan(one) {
			return detail(ErrInvalidPlan, "discount_rate must be between 0 and 1")
		}
		if !p.DiscountRate.Equal(p.DiscountRate.Round(2)) {
			return detail(ErrInvalidPlan, "discount_rate must have at most 2 decimal places")
		}
		if p.DiscountUntil == nil {
			return detail(ErrInvalidPlan, "discount_until is required with discount_rate")
		}
	}
	return nil
}

// List returns the catalogue. Inactive plans are included only when
// activeOnly is false.
func (s *PlanService) List(ctx context.Context, activeOnly bool, page store.Page) ([]models.Plan, error) {
	return s.store.ListPlans(ctx, activeOnly, page)
}

func (s *PlanService) Get(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	plan, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, fromStore(err, "plan")
	}
	return plan, nil
}

func (s *PlanService) Create(ctx context.Context, actor Actor, in PlanInput) (*models.Plan, error) {
	if !s.authz.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	plan := &models.Plan{
		ID:           uuid.New(),
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		DurationDays: in.DurationDays,
		IsActive:     in.IsActive,
		DiscountRate: in.DiscountRate,
	}
	if in.DiscountUntil != nil {
		until := DateOf(*in.DiscountUntil)
		plan.DiscountUntil = &until
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	if err := s.store.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) Update(ctx context.Context, actor Actor, id uuid.UUID, patch PlanPatch) (*models.Plan, error) {
	if !s.authz.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	plan, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, fromStore(err, "plan")
	}

	if patch.Name != nil {
		plan.Name = *patch.Name
	}
	if patch.Description != nil {
		plan.Description = *patch.Description
	}
	if patch.Price != nil {
		plan.Price = *patch.Price
	}
	if patch.DurationDays != nil {
		plan.DurationDays = *patch.DurationDays
	}
	if patch.IsActive != nil {
		plan.IsActive = *patch.IsActive
	}
	if patch.DiscountRate != nil {
		plan.DiscountRate = patch.DiscountRate
	}
	if patch.DiscountUntil != nil {
		until := DateOf(*patch.DiscountUntil)
		plan.DiscountUntil = &until
	}
	if patch.ClearDiscount {
		plan.DiscountRate = nil
		plan.DiscountUntil = nil
	}

	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	if err := s.store.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Delete removes a plan nobody is assigned to.
func (s *PlanService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !s.authz.IsAdmin(actor) {
		return ErrForbidden
	}
	return s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetPlan(ctx, id); err != nil {
			return fromStore(err, "plan")
		}
		n, err := tx.CountAssignmentsForPlan(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrPlanInUse
		}
		return fromStore(tx.DeletePlan(ctx, id), "plan")
	})
}
