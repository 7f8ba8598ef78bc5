package model

import (
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidID = newError(ErrBadRequest, "invalid id")

type ObjectID = primitive.ObjectID

func ParseID(hex string) (ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

// SoftDelete is embedded by every freezable entity. A nil DeletedAt means
// the entity is visible to default reads.
type SoftDelete struct {
	DeletedAt  *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	RestoredAt *time.Time `bson:"restoredAt,omitempty" json:"restoredAt,omitempty"`
}

func (s *SoftDelete) Frozen() bool { return s.DeletedAt != nil }

func (s *SoftDelete) Freeze(at time.Time) error {
	if s.DeletedAt != nil {
		return ErrAlreadyFrozen
	}
	s.DeletedAt = &at
	return nil
}

func (s *SoftDelete) Restore(at time.Time) error {
	if s.DeletedAt == nil {
		return ErrNotFrozen
	}
	s.DeletedAt = nil
	s.RestoredAt = &at
	return nil
}

type Audit struct {
	CreatedBy primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	UpdatedBy primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (a *Audit) Touch(by primitive.ObjectID, at time.Time) {
	a.UpdatedBy = by
	a.UpdatedAt = at
}

// Slugify derives the url slug stored next to a name.
func Slugify(name string) string {
	return slug.Make(name)
}
