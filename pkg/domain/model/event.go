package model

import "go.mongodb.org/mongo-driver/bson/primitive"

type UserRegistered struct {
	UserID   primitive.ObjectID
	Email    string
	Provider UserProvider
}

func (e UserRegistered) Type() string { return "UserRegistered" }

// OtpIssued carries the plaintext code; it is the only place the code leaves the service.
type OtpIssued struct {
	UserID  primitive.ObjectID
	Email   string
	Name    string
	Purpose OtpPurpose
	Code    string
}

func (e OtpIssued) Type() string { return "OtpIssued" }

type ProductQuantityChanged struct {
	ProductID primitive.ObjectID `json:"productId"`
	Quantity  int                `json:"quantity"`
}

func (e ProductQuantityChanged) Type() string { return "ProductQuantityChanged" }

type OrderCreated struct {
	OrderID    primitive.ObjectID
	UserID     primitive.ObjectID
	Email      string
	Status     OrderStatus
	TotalCents int64
}

func (e OrderCreated) Type() string { return "OrderCreated" }

type OrderPaid struct {
	OrderID       primitive.ObjectID
	PaymentIntent string
}

func (e OrderPaid) Type() string { return "OrderPaid" }

type OrderCanceled struct {
	OrderID primitive.ObjectID
	By      primitive.ObjectID
}

func (e OrderCanceled) Type() string { return "OrderCanceled" }

type OrderRefunded struct {
	OrderID  primitive.ObjectID
	RefundID string
}

func (e OrderRefunded) Type() string { return "OrderRefunded" }

type OrderDelivered struct {
	OrderID primitive.ObjectID
	By      primitive.ObjectID
}

func (e OrderDelivered) Type() string { return "OrderDelivered" }

type PaymentReminderDue struct {
	OrderID    primitive.ObjectID
	Email      string
	Name       string
	TotalCents int64
}

func (e PaymentReminderDue) Type() string { return "PaymentReminderDue" }
