package mongo

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ecommerce/pkg/domain/model"
)

// Repository is the shared data access layer over one collection. Every read
// takes an explicit includeDeleted flag; without it soft-deleted documents are
// filtered out.
type Repository[T any] struct {
	coll *mongo.Collection
}

func NewRepository[T any](db *mongo.Database, collection string) *Repository[T] {
	return &Repository[T]{coll: db.Collection(collection)}
}

func (r *Repository[T]) Collection() *mongo.Collection { return r.coll }

// scope returns a copy of filter restricted to live documents unless includeDeleted is set.
func scope(filter bson.M, includeDeleted bool) bson.M {
	scoped := bson.M{}
	for k, v := range filter {
		scoped[k] = v
	}
	if !includeDeleted {
		scoped["deletedAt"] = bson.M{"$exists": false}
	}
	return scoped
}

// searchFilter matches search case-insensitively against any of fields.
func searchFilter(search string, fields ...string) bson.M {
	if search == "" {
		return bson.M{}
	}
	pattern := containsPattern(search)
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: pattern})
	}
	return bson.M{"$or": or}
}

func containsPattern(search string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
}

func (r *Repository[T]) Create(ctx context.Context, doc *T) error {
	_, err := r.coll.InsertOne(ctx, doc)
	return errors.Wrapf(err, "insert into %s", r.coll.Name())
}

func (r *Repository[T]) Find(ctx context.Context, filter bson.M, includeDeleted bool, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := r.coll.Find(ctx, scope(filter, includeDeleted), opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "find in %s", r.coll.Name())
	}
	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "decode %s", r.coll.Name())
	}
	return docs, nil
}

// FindOne returns mongo.ErrNoDocuments when nothing matches.
func (r *Repository[T]) FindOne(ctx context.Context, filter bson.M, includeDeleted bool, opts ...*options.FindOneOptions) (*T, error) {
	var doc T
	err := r.coll.FindOne(ctx, scope(filter, includeDeleted), opts...).Decode(&doc)
	if err != nil {
		return nil, errors.Wrapf(err, "find one in %s", r.coll.Name())
	}
	return &doc, nil
}

func (r *Repository[T]) FindByID(ctx context.Context, id model.ObjectID, includeDeleted bool) (*T, error) {
	return r.FindOne(ctx, bson.M{"_id": id}, includeDeleted)
}

// UpdateOne returns mongo.ErrNoDocuments when nothing matched the filter.
func (r *Repository[T]) UpdateOne(ctx context.Context, filter, update bson.M, includeDeleted bool) error {
	res, err := r.coll.UpdateOne(ctx, scope(filter, includeDeleted), update)
	if err != nil {
		return errors.Wrapf(err, "update %s", r.coll.Name())
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(mongo.ErrNoDocuments, "update %s", r.coll.Name())
	}
	return nil
}

func (r *Repository[T]) UpdateMany(ctx context.Context, filter, update bson.M, includeDeleted bool) (int64, error) {
	res, err := r.coll.UpdateMany(ctx, scope(filter, includeDeleted), update)
	if err != nil {
		return 0, errors.Wrapf(err, "update many %s", r.coll.Name())
	}
	return res.ModifiedCount, nil
}

// ReplaceOne returns mongo.ErrNoDocuments when nothing matched the filter.
func (r *Repository[T]) ReplaceOne(ctx context.Context, filter bson.M, doc *T, includeDeleted bool) error {
	res, err := r.coll.ReplaceOne(ctx, scope(filter, includeDeleted), doc)
	if err != nil {
		return errors.Wrapf(err, "replace in %s", r.coll.Name())
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(mongo.ErrNoDocuments, "replace in %s", r.coll.Name())
	}
	return nil
}

// FindOneAndUpdate applies update and returns the document after the change.
func (r *Repository[T]) FindOneAndUpdate(ctx context.Context, filter, update bson.M, includeDeleted bool) (*T, error) {
	var doc T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.coll.FindOneAndUpdate(ctx, scope(filter, includeDeleted), update, opts).Decode(&doc)
	if err != nil {
		return nil, errors.Wrapf(err, "find and update %s", r.coll.Name())
	}
	return &doc, nil
}

func (r *Repository[T]) FindOneAndDelete(ctx context.Context, filter bson.M) (*T, error) {
	var doc T
	if err := r.coll.FindOneAndDelete(ctx, filter).Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "find and delete %s", r.coll.Name())
	}
	return &doc, nil
}

// DeleteOne returns mongo.ErrNoDocuments when nothing was removed.
func (r *Repository[T]) DeleteOne(ctx context.Context, filter bson.M) error {
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return errors.Wrapf(err, "delete from %s", r.coll.Name())
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(mongo.ErrNoDocuments, "delete from %s", r.coll.Name())
	}
	return nil
}

func (r *Repository[T]) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, errors.Wrapf(err, "delete many from %s", r.coll.Name())
	}
	return res.DeletedCount, nil
}

func (r *Repository[T]) Count(ctx context.Context, filter bson.M, includeDeleted bool) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, scope(filter, includeDeleted))
	return n, errors.Wrapf(err, "count %s", r.coll.Name())
}

// GetAllPaginated returns one page of documents newest first; the total
// count is taken with the same filter.
func (r *Repository[T]) GetAllPaginated(ctx context.Context, filter bson.M, page model.Page, includeDeleted bool) (*model.Paginated[T], error) {
	page = model.NewPage(page.Number, page.Limit)
	opts := options.Find().
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit)).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	docs, err := r.Find(ctx, filter, includeDeleted, opts)
	if err != nil {
		return nil, err
	}
	total, err := r.Count(ctx, filter, includeDeleted)
	if err != nil {
		return nil, err
	}
	return model.NewPaginated(docs, page, total), nil
}

func (r *Repository[T]) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return errors.Wrapf(err, "aggregate %s", r.coll.Name())
	}
	return errors.Wrapf(cursor.All(ctx, out), "decode aggregate %s", r.coll.Name())
}

// translate maps driver errors onto domain sentinels.
func translate(err, notFound, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return notFound
	case duplicate != nil && mongo.IsDuplicateKeyError(err):
		return duplicate
	default:
		return err
	}
}
