package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ecommerce/pkg/domain/model"
)

type otpRepository struct {
	*Repository[model.Otp]
}

func NewOtpRepository(db *mongo.Database) model.OtpRepository {
	return &otpRepository{NewRepository[model.Otp](db, "otps")}
}

func (r *otpRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }

func (r *otpRepository) Create(ctx context.Context, otp *model.Otp) error {
	return r.Repository.Create(ctx, otp)
}

// FindActive filters on expiresAt itself; the TTL monitor only sweeps once a minute.
func (r *otpRepository) FindActive(ctx context.Context, userID primitive.ObjectID, purpose model.OtpPurpose, now time.Time) (*model.Otp, error) {
	filter := bson.M{
		"createdBy": userID,
		"type":      purpose,
		"expiresAt": bson.M{"$gt": now},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	otp, err := r.FindOne(ctx, filter, true, opts)
	return otp, translate(err, model.ErrOtpNotFound, nil)
}

func (r *otpRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return translate(r.DeleteOne(ctx, bson.M{"_id": id}), model.ErrOtpNotFound, nil)
}
