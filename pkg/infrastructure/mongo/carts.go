package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ecommerce/pkg/domain/model"
)

type cartRepository struct {
	*Repository[model.Cart]
}

func NewCartRepository(db *mongo.Database) model.CartRepository {
	return &cartRepository{NewRepository[model.Cart](db, "carts")}
}

func (r *cartRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }

func (r *cartRepository) Create(ctx context.Context, cart *model.Cart) error {
	return r.Repository.Create(ctx, cart)
}

func (r *cartRepository) Update(ctx context.Context, cart *model.Cart) error {
	err := r.ReplaceOne(ctx, bson.M{"_id": cart.ID}, cart, true)
	return translate(err, model.ErrCartNotFound, nil)
}

func (r *cartRepository) FindByOwner(ctx context.Context, owner primitive.ObjectID) (*model.Cart, error) {
	cart, err := r.FindOne(ctx, bson.M{"createdBy": owner}, true)
	return cart, translate(err, model.ErrCartNotFound, nil)
}
