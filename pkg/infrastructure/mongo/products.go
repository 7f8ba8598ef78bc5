package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ecommerce/pkg/domain/model"
)

type productRepository struct {
	*Repository[model.Product]
}

func NewProductRepository(db *mongo.Database) model.ProductRepository {
	return &productRepository{NewRepository[model.Product](db, "products")}
}

func (r *productRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.Repository.Create(ctx, product)
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	err := r.ReplaceOne(ctx, bson.M{"_id": product.ID}, product, true)
	return translate(err, model.ErrProductNotFound, nil)
}

func (r *productRepository) Find(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*model.Product, error) {
	product, err := r.FindByID(ctx, id, includeDeleted)
	return product, translate(err, model.ErrProductNotFound, nil)
}

// DecrementStock is a conditional $inc, so concurrent orders cannot drive stock negative.
func (r *productRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) (*model.Product, error) {
	product, err := r.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": quantity}},
		bson.M{"$inc": bson.M{"stock": -quantity}},
		false,
	)
	return product, translate(err, model.ErrInsufficientStock, nil)
}

func (r *productRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return translate(r.DeleteOne(ctx, bson.M{"_id": id}), model.ErrProductNotFound, nil)
}

func (r *productRepository) List(ctx context.Context, search string, page model.Page) (*model.Paginated[model.Product], error) {
	return r.GetAllPaginated(ctx, searchFilter(search, "name", "description"), page, false)
}
