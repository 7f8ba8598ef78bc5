package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ecommerce/pkg/domain/model"
)

type CreateCouponInput struct {
	Code     string
	Amount   int
	FromDate time.Time
	ToDate   time.Time
}

type UpdateCouponInput struct {
	Code     *string
	Amount   *int
	FromDate *time.Time
	ToDate   *time.Time
}

type CouponService interface {
	Create(ctx context.Context, actor model.ObjectID, input CreateCouponInput) (*model.Coupon, error)
	Update(ctx context.Context, actor, id model.ObjectID, input UpdateCouponInput) (*model.Coupon, error)
	Freeze(ctx context.Context, actor, id model.ObjectID) error
	Restore(ctx context.Context, actor, id model.ObjectID) error
	Delete(ctx context.Context, actor, id model.ObjectID) error
	List(ctx context.Context, page model.Page) (*model.Paginated[model.Coupon], error)
}

func NewCouponService(repo model.CouponRepository) CouponService {
	return &couponService{repo: repo}
}

type couponService struct {
	repo model.CouponRepository
}

func (s *couponService) Create(ctx context.Context, actor model.ObjectID, input CreateCouponInput) (*model.Coupon, error) {
	now := time.Now().UTC()
	if !model.ValidCouponWindow(input.FromDate, input.ToDate, now) {
		return nil, model.ErrCouponWindow
	}
	code := strings.ToLower(input.Code)
	if err := s.ensureCodeFree(ctx, code); err != nil {
		return nil, err
	}

	coupon := &model.Coupon{
		ID:       s.repo.NextID(),
		Code:     code,
		Amount:   input.Amount,
		FromDate: input.FromDate,
		ToDate:   input.ToDate,
		UsedBy:   []model.ObjectID{},
		Audit:    model.Audit{CreatedBy: actor, CreatedAt: now, UpdatedAt: now},
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *couponService) Update(ctx context.Context, actor, id model.ObjectID, input UpdateCouponInput) (*model.Coupon, error) {
	if input.Code == nil && input.Amount == nil && input.FromDate == nil && input.ToDate == nil {
		return nil, model.ErrNothingToDo
	}

	coupon, err := s.findOwned(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}

	if input.Code != nil {
		code := strings.ToLower(*input.Code)
		if code == coupon.Code {
			return nil, model.ErrCouponExists
		}
		if err := s.ensureCodeFree(ctx, code); err != nil {
			return nil, err
		}
		coupon.Code = code
	}
	if input.Amount != nil {
		coupon.Amount = *input.Amount
	}

	now := time.Now().UTC()
	if input.FromDate != nil || input.ToDate != nil {
		from, to := coupon.FromDate, coupon.ToDate
		if input.FromDate != nil {
			from = *input.FromDate
		}
		if input.ToDate != nil {
			to = *input.ToDate
		}
		if !model.ValidCouponWindow(from, to, now) {
			return nil, model.ErrCouponWindow
		}
		coupon.FromDate, coupon.ToDate = from, to
	}

	coupon.Touch(actor, now)
	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *couponService) Freeze(ctx context.Context, actor, id model.ObjectID) error {
	coupon, err := s.findOwned(ctx, actor, id, false)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := coupon.Freeze(now); err != nil {
		return err
	}
	coupon.Touch(actor, now)
	return s.repo.Update(ctx, coupon)
}

func (s *couponService) Restore(ctx context.Context, actor, id model.ObjectID) error {
	coupon, err := s.findOwned(ctx, actor, id, true)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := coupon.Restore(now); err != nil {
		return err
	}
	coupon.Touch(actor, now)
	return s.repo.Update(ctx, coupon)
}

func (s *couponService) Delete(ctx context.Context, actor, id model.ObjectID) error {
	coupon, err := s.findOwned(ctx, actor, id, true)
	if err != nil {
		return err
	}
	if !coupon.Frozen() {
		return model.ErrCouponNotFound
	}
	return s.repo.Delete(ctx, coupon.ID)
}

func (s *couponService) List(ctx context.Context, page model.Page) (*model.Paginated[model.Coupon], error) {
	return s.repo.List(ctx, page)
}

func (s *couponService) ensureCodeFree(ctx context.Context, code string) error {
	_, err := s.repo.FindByCode(ctx, code, true)
	if err == nil {
		return model.ErrCouponExists
	}
	if errors.Is(err, model.ErrCouponNotFound) {
		return nil
	}
	return err
}

func (s *couponService) findOwned(ctx context.Context, actor, id model.ObjectID, includeDeleted bool) (*model.Coupon, error) {
	coupon, err := s.repo.Find(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	if coupon.CreatedBy != actor {
		return nil, model.ErrCouponNotFound
	}
	return coupon, nil
}
