package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ecommerce/pkg/domain/model"
)

type orderRepository struct {
	*Repository[model.Order]
}

func NewOrderRepository(db *mongo.Database) model.OrderRepository {
	return &orderRepository{NewRepository[model.Order](db, "orders")}
}

func (r *orderRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.Repository.Create(ctx, order)
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	err := r.ReplaceOne(ctx, bson.M{"_id": order.ID}, order, true)
	return translate(err, model.ErrOrderNotFound, nil)
}

func (r *orderRepository) Find(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	order, err := r.FindByID(ctx, id, true)
	return order, translate(err, model.ErrOrderNotFound, nil)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, page model.Page) (*model.Paginated[model.Order], error) {
	return r.GetAllPaginated(ctx, bson.M{"userId": userID}, page, true)
}

func (r *orderRepository) FindAwaitingPayment(ctx context.Context, before time.Time) ([]model.Order, error) {
	return r.Repository.Find(ctx, bson.M{
		"status":                  model.Pending,
		"paymentMethod":           model.Card,
		"createdAt":               bson.M{"$lt": before},
		"orderChanges.remindedAt": bson.M{"$exists": false},
	}, true)
}
