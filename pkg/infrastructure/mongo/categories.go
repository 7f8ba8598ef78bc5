package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ecommerce/pkg/domain/model"
)

const categoriesCollection = "categories"

type categoryRepository struct {
	*Repository[model.Category]
}

func NewCategoryRepository(db *mongo.Database) model.CategoryRepository {
	return &categoryRepository{NewRepository[model.Category](db, categoriesCollection)}
}

func (r *categoryRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	return translate(r.Repository.Create(ctx, category), model.ErrCategoryNotFound, model.ErrCategoryExists)
}

func (r *categoryRepository) Update(ctx context.Context, category *model.Category) error {
	err := r.ReplaceOne(ctx, bson.M{"_id": category.ID}, category, true)
	return translate(err, model.ErrCategoryNotFound, model.ErrCategoryExists)
}

func (r *categoryRepository) Find(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*model.Category, error) {
	category, err := r.FindByID(ctx, id, includeDeleted)
	return category, translate(err, model.ErrCategoryNotFound, nil)
}

func (r *categoryRepository) FindByName(ctx context.Context, name string) (*model.Category, error) {
	category, err := r.FindOne(ctx, bson.M{"name": name}, true)
	return category, translate(err, model.ErrCategoryNotFound, nil)
}

// descendantsPipeline walks parentId links below id with a single $graphLookup.
func descendantsPipeline(id primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id}}},
		{{Key: "$graphLookup", Value: bson.M{
			"from":             categoriesCollection,
			"startWith":        "$_id",
			"connectFromField": "_id",
			"connectToField":   "parentId",
			"as":               "descendants",
		}}},
		{{Key: "$unwind", Value: "$descendants"}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$descendants"}}},
	}
}

func (r *categoryRepository) Descendants(ctx context.Context, id primitive.ObjectID) ([]model.Category, error) {
	descendants := []model.Category{}
	if err := r.Aggregate(ctx, descendantsPipeline(id), &descendants); err != nil {
		return nil, err
	}
	return descendants, nil
}

func (r *categoryRepository) FreezeMany(ctx context.Context, ids []primitive.ObjectID, at time.Time, by primitive.ObjectID) error {
	_, err := r.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"deletedAt": at, "updatedBy": by, "updatedAt": at}},
		true,
	)
	return err
}

func (r *categoryRepository) RestoreMany(ctx context.Context, ids []primitive.ObjectID, at time.Time, by primitive.ObjectID) error {
	_, err := r.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{
			"$unset": bson.M{"deletedAt": ""},
			"$set":   bson.M{"restoredAt": at, "updatedBy": by, "updatedAt": at},
		},
		true,
	)
	return err
}

func (r *categoryRepository) DeleteMany(ctx context.Context, ids []primitive.ObjectID) error {
	_, err := r.Repository.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (r *categoryRepository) List(ctx context.Context, search string, page model.Page) (*model.Paginated[model.Category], error) {
	return r.GetAllPaginated(ctx, searchFilter(search, "name"), page, false)
}
