package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrOtpNotFound    = newError(ErrBadRequest, "invalid otp")
	ErrOtpAlreadySent = newError(ErrBadRequest, "otp already sent")
)

type OtpPurpose string

const (
	ConfirmEmail  OtpPurpose = "confirm-email"
	ResetPassword OtpPurpose = "reset-password"
)

type Otp struct {
	ID        primitive.ObjectID `bson:"_id"`
	Code      string             `bson:"code"`
	CreatedBy primitive.ObjectID `bson:"createdBy"`
	Purpose   OtpPurpose         `bson:"type"`
	ExpiresAt time.Time          `bson:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (o *Otp) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

type OtpRepository interface {
	NextID() primitive.ObjectID
	Create(ctx context.Context, otp *Otp) error
	// FindActive returns the newest unexpired otp of the purpose owned by userID.
	FindActive(ctx context.Context, userID primitive.ObjectID, purpose OtpPurpose, now time.Time) (*Otp, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type OtpGenerator interface {
	Generate() (string, error)
}
