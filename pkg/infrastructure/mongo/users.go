package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ecommerce/pkg/domain/model"
)

type userRepository struct {
	*Repository[model.User]
}

func NewUserRepository(db *mongo.Database) model.UserRepository {
	return &userRepository{NewRepository[model.User](db, "users")}
}

func (r *userRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.Repository.Create(ctx, user), model.ErrUserNotFound, model.ErrEmailTaken)
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	err := r.ReplaceOne(ctx, bson.M{"_id": user.ID}, user, true)
	return translate(err, model.ErrUserNotFound, model.ErrEmailTaken)
}

func (r *userRepository) Find(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	user, err := r.FindByID(ctx, id, true)
	return user, translate(err, model.ErrUserNotFound, nil)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := r.FindOne(ctx, bson.M{"email": email}, true)
	return user, translate(err, model.ErrUserNotFound, nil)
}
