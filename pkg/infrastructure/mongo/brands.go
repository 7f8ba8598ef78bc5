package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ecommerce/pkg/domain/model"
)

type brandRepository struct {
	*Repository[model.Brand]
}

func NewBrandRepository(db *mongo.Database) model.BrandRepository {
	return &brandRepository{NewRepository[model.Brand](db, "brands")}
}

func (r *brandRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }

func (r *brandRepository) Create(ctx context.Context, brand *model.Brand) error {
	return translate(r.Repository.Create(ctx, brand), model.ErrBrandNotFound, model.ErrBrandExists)
}

func (r *brandRepository) Update(ctx context.Context, brand *model.Brand) error {
	err := r.ReplaceOne(ctx, bson.M{"_id": brand.ID}, brand, true)
	return translate(err, model.ErrBrandNotFound, model.ErrBrandExists)
}

func (r *brandRepository) Find(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*model.Brand, error) {
	brand, err := r.FindByID(ctx, id, includeDeleted)
	return brand, translate(err, model.ErrBrandNotFound, nil)
}

// FindByName looks at frozen brands too since names are unique across the collection.
func (r *brandRepository) FindByName(ctx context.Context, name string) (*model.Brand, error) {
	brand, err := r.FindOne(ctx, bson.M{"name": name}, true)
	return brand, translate(err, model.ErrBrandNotFound, nil)
}

func (r *brandRepository) CountExisting(ctx context.Context, ids []primitive.ObjectID) (int, error) {
	n, err := r.Count(ctx, bson.M{"_id": bson.M{"$in": ids}}, false)
	return int(n), err
}

func (r *brandRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return translate(r.DeleteOne(ctx, bson.M{"_id": id}), model.ErrBrandNotFound, nil)
}

func (r *brandRepository) List(ctx context.Context, search string, page model.Page) (*model.Paginated[model.Brand], error) {
	return r.GetAllPaginated(ctx, searchFilter(search, "name", "slogan"), page, false)
}

func (r *brandRepository) All(ctx context.Context) ([]model.Brand, error) {
	return r.Repository.Find(ctx, bson.M{}, false, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}
