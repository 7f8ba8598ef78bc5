package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrOrderNotFound          = newError(ErrNotFound, "order not found")
	ErrInvalidOrderTransition = newError(ErrBadRequest, "order status doesn't allow this operation")
	ErrOrderNotPayable        = newError(ErrBadRequest, "only pending card orders can be checked out")
	ErrInvalidWebhook         = newError(ErrBadRequest, "invalid webhook signature or payload")
)

type OrderStatus string

const (
	Pending   OrderStatus = "PENDING"
	Paid      OrderStatus = "PAID"
	Placed    OrderStatus = "PLACED"
	Delivered OrderStatus = "DELIVERED"
	Canceled  OrderStatus = "CANCELED"
	Refunded  OrderStatus = "REFUNDED"
)

type PaymentMethod string

const (
	Cash PaymentMethod = "CASH"
	Card PaymentMethod = "CARD"
)

type OrderLine struct {
	ProductID  primitive.ObjectID `bson:"productId" json:"productId"`
	Name       string             `bson:"name" json:"name"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	PriceCents int64              `bson:"price" json:"price"`
}

type OrderChanges struct {
	PaidAt      *time.Time          `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	DeliveredAt *time.Time          `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	DeliveredBy *primitive.ObjectID `bson:"deliveredBy,omitempty" json:"deliveredBy,omitempty"`
	CanceledAt  *time.Time          `bson:"canceledAt,omitempty" json:"canceledAt,omitempty"`
	CanceledBy  *primitive.ObjectID `bson:"canceledBy,omitempty" json:"canceledBy,omitempty"`
	RefundedAt  *time.Time          `bson:"refundedAt,omitempty" json:"refundedAt,omitempty"`
	RefundedBy  *primitive.ObjectID `bson:"refundedBy,omitempty" json:"refundedBy,omitempty"`
	RemindedAt  *time.Time          `bson:"remindedAt,omitempty" json:"-"`
}

type Order struct {
	ID            primitive.ObjectID  `bson:"_id" json:"id"`
	UserID        primitive.ObjectID  `bson:"userId" json:"userId"`
	CartID        primitive.ObjectID  `bson:"cart" json:"cart"`
	Lines         []OrderLine         `bson:"products" json:"products"`
	Address       string              `bson:"address" json:"address"`
	Phone         string              `bson:"phone" json:"phone"`
	PaymentMethod PaymentMethod       `bson:"paymentMethod" json:"paymentMethod"`
	Status        OrderStatus         `bson:"status" json:"status"`
	CouponID      *primitive.ObjectID `bson:"coupon,omitempty" json:"coupon,omitempty"`
	CouponAmount  int                 `bson:"couponAmount,omitempty" json:"couponAmount,omitempty"`
	SubtotalCents int64               `bson:"subTotal" json:"subTotal"`
	TotalCents    int64               `bson:"total" json:"total"`
	PaymentIntent string              `bson:"paymentIntent,omitempty" json:"paymentIntent,omitempty"`
	Changes       OrderChanges        `bson:"orderChanges" json:"orderChanges"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// OrderTotal applies a percentage coupon to subtotal, rounded to the nearest cent.
func OrderTotal(subtotal int64, couponPercent int) int64 {
	return ApplyPercentOff(subtotal, couponPercent)
}

func InitialStatus(method PaymentMethod) OrderStatus {
	if method == Card {
		return Pending
	}
	return Placed
}

func (o *Order) MarkPaid(paymentIntent string, at time.Time) error {
	if o.Status != Pending {
		return ErrInvalidOrderTransition
	}
	o.Status = Paid
	o.PaymentIntent = paymentIntent
	o.Changes.PaidAt = &at
	o.UpdatedAt = at
	return nil
}

func (o *Order) Cancel(by primitive.ObjectID, at time.Time) error {
	switch o.Status {
	case Pending, Placed, Paid:
	default:
		return ErrInvalidOrderTransition
	}
	o.Status = Canceled
	o.Changes.CanceledAt = &at
	o.Changes.CanceledBy = &by
	o.UpdatedAt = at
	return nil
}

// Refundable reports whether money was captured and can be returned.
func (o *Order) Refundable() bool {
	return o.PaymentMethod == Card && o.PaymentIntent != ""
}

func (o *Order) MarkRefunded(by primitive.ObjectID, at time.Time) error {
	if o.Status != Canceled || !o.Refundable() {
		return ErrInvalidOrderTransition
	}
	o.Status = Refunded
	o.Changes.RefundedAt = &at
	o.Changes.RefundedBy = &by
	o.UpdatedAt = at
	return nil
}

func (o *Order) Deliver(by primitive.ObjectID, at time.Time) error {
	if o.Status != Paid && o.Status != Placed {
		return ErrInvalidOrderTransition
	}
	o.Status = Delivered
	o.Changes.DeliveredAt = &at
	o.Changes.DeliveredBy = &by
	o.UpdatedAt = at
	return nil
}

type OrderRepository interface {
	NextID() primitive.ObjectID
	Create(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	Find(ctx context.Context, id primitive.ObjectID) (*Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, page Page) (*Paginated[Order], error)
	// FindAwaitingPayment returns card orders still pending since before and never reminded.
	FindAwaitingPayment(ctx context.Context, before time.Time) ([]Order, error)
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type PaymentGateway interface {
	// CreateCheckoutSession opens a hosted payment page for the order lines.
	// A positive couponPercent is applied as a one-off discount.
	CreateCheckoutSession(ctx context.Context, order *Order, customerEmail string, couponPercent int) (*CheckoutSession, error)
	Refund(ctx context.Context, paymentIntent string) (string, error)
}

// PaymentEvent is a verified notification from the payment processor.
type PaymentEvent struct {
	ID            string
	Type          string
	OrderID       primitive.ObjectID
	PaymentIntent string
}

const CheckoutCompleted = "checkout.session.completed"

type PaymentLedger interface {
	// Seen reports whether an event id was recorded.
	Seen(ctx context.Context, eventID string) (bool, error)
	// RecordEvent stores the event id once it has been applied and reports false
	// when it was already recorded.
	RecordEvent(ctx context.Context, event *PaymentEvent) (bool, error)
	RecordRefund(ctx context.Context, orderID primitive.ObjectID, paymentIntent, refundID string, amountCents int64) error
}
