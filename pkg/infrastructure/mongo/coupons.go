package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ecommerce/pkg/domain/model"
)

type couponRepository struct {
	*Repository[model.Coupon]
}

func NewCouponRepository(db *mongo.Database) model.CouponRepository {
	return &couponRepository{NewRepository[model.Coupon](db, "coupons")}
}

func (r *couponRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }

func (r *couponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	return translate(r.Repository.Create(ctx, coupon), model.ErrCouponNotFound, model.ErrCouponExists)
}

func (r *couponRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	err := r.ReplaceOne(ctx, bson.M{"_id": coupon.ID}, coupon, true)
	return translate(err, model.ErrCouponNotFound, model.ErrCouponExists)
}

func (r *couponRepository) Find(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*model.Coupon, error) {
	coupon, err := r.FindByID(ctx, id, includeDeleted)
	return coupon, translate(err, model.ErrCouponNotFound, nil)
}

func (r *couponRepository) FindByCode(ctx context.Context, code string, includeDeleted bool) (*model.Coupon, error) {
	coupon, err := r.FindOne(ctx, bson.M{"code": code}, includeDeleted)
	return coupon, translate(err, model.ErrCouponNotFound, nil)
}

func (r *couponRepository) MarkUsed(ctx context.Context, id, userID primitive.ObjectID) error {
	err := r.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"usedBy": userID}}, true)
	return translate(err, model.ErrCouponNotFound, nil)
}

func (r *couponRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return translate(r.DeleteOne(ctx, bson.M{"_id": id}), model.ErrCouponNotFound, nil)
}

func (r *couponRepository) List(ctx context.Context, page model.Page) (*model.Paginated[model.Coupon], error) {
	return r.GetAllPaginated(ctx, bson.M{}, page, false)
}
