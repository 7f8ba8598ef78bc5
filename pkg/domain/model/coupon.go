package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrCouponNotFound      = newError(ErrNotFound, "coupon doesn't exist or you're not the owner of this coupon")
	ErrCouponExists        = newError(ErrConflict, "coupon already exists")
	ErrCouponNotRedeemable = newError(ErrNotFound, "invalid or expired coupon")
	ErrCouponWindow        = newError(ErrBadRequest, "fromDate must not be in the past and must be before toDate")
)

type Coupon struct {
	ID         primitive.ObjectID   `bson:"_id" json:"id"`
	Code       string               `bson:"code" json:"code"`
	Amount     int                  `bson:"amount" json:"amount"`
	FromDate   time.Time            `bson:"fromDate" json:"fromDate"`
	ToDate     time.Time            `bson:"toDate" json:"toDate"`
	UsedBy     []primitive.ObjectID `bson:"usedBy" json:"usedBy"`
	Audit      `bson:",inline"`
	SoftDelete `bson:",inline"`
}

// ValidCouponWindow reports whether from is not before now and strictly before to.
func ValidCouponWindow(from, to, now time.Time) bool {
	return !from.Before(now) && from.Before(to)
}

func (c *Coupon) UsedByUser(userID primitive.ObjectID) bool {
	for _, id := range c.UsedBy {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Coupon) Redeemable(userID primitive.ObjectID, now time.Time) bool {
	if c.Frozen() || c.UsedByUser(userID) {
		return false
	}
	return !now.Before(c.FromDate) && !now.After(c.ToDate)
}

type CouponRepository interface {
	NextID() primitive.ObjectID
	Create(ctx context.Context, coupon *Coupon) error
	Update(ctx context.Context, coupon *Coupon) error
	Find(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*Coupon, error)
	FindByCode(ctx context.Context, code string, includeDeleted bool) (*Coupon, error)
	// MarkUsed adds userID to the coupon's usedBy set.
	MarkUsed(ctx context.Context, id, userID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, page Page) (*Paginated[Coupon], error)
}
