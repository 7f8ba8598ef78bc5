package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrCartNotFound         = newError(ErrNotFound, "cart doesn't exist")
	ErrCartEmpty            = newError(ErrNotFound, "cart is empty")
	ErrProductAlreadyInCart = newError(ErrConflict, "product already exists in cart")
	ErrProductNotInCart     = newError(ErrNotFound, "product doesn't exist in cart")
)

type CartLine struct {
	ProductID  primitive.ObjectID `bson:"productId" json:"productId"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	PriceCents int64              `bson:"price" json:"price"`
}

type Cart struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Owner         primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Lines         []CartLine         `bson:"products" json:"products"`
	SubtotalCents int64              `bson:"subTotal" json:"subTotal"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Subtotal sums price times quantity over lines.
func Subtotal(lines []CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.PriceCents * int64(line.Quantity)
	}
	return total
}

func (c *Cart) indexOf(productID primitive.ObjectID) int {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) Has(productID primitive.ObjectID) bool {
	return c.indexOf(productID) >= 0
}

func (c *Cart) Add(line CartLine) error {
	if c.Has(line.ProductID) {
		return ErrProductAlreadyInCart
	}
	c.Lines = append(c.Lines, line)
	c.SubtotalCents = Subtotal(c.Lines)
	return nil
}

func (c *Cart) Remove(productID primitive.ObjectID) error {
	i := c.indexOf(productID)
	if i < 0 {
		return ErrProductNotInCart
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	c.SubtotalCents = Subtotal(c.Lines)
	return nil
}

func (c *Cart) SetQuantity(productID primitive.ObjectID, quantity int) error {
	i := c.indexOf(productID)
	if i < 0 {
		return ErrProductNotInCart
	}
	c.Lines[i].Quantity = quantity
	c.SubtotalCents = Subtotal(c.Lines)
	return nil
}

func (c *Cart) Clear() {
	c.Lines = []CartLine{}
	c.SubtotalCents = 0
}

type CartRepository interface {
	NextID() primitive.ObjectID
	Create(ctx context.Context, cart *Cart) error
	Update(ctx context.Context, cart *Cart) error
	FindByOwner(ctx context.Context, owner primitive.ObjectID) (*Cart, error)
}
