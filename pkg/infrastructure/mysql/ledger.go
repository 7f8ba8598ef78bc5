package mysql

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ecommerce/pkg/domain/model"
)

type paymentLedger struct {
	db *sqlx.DB
}

func NewPaymentLedger(db *sqlx.DB) model.PaymentLedger {
	return &paymentLedger{db: db}
}

type paymentEventRow struct {
	EventID       string    `db:"event_id"`
	EventType     string    `db:"event_type"`
	OrderID       string    `db:"order_id"`
	PaymentIntent *string   `db:"payment_intent"`
	ReceivedAt    time.Time `db:"received_at"`
}

type paymentRefundRow struct {
	RefundID      string    `db:"refund_id"`
	OrderID       string    `db:"order_id"`
	PaymentIntent string    `db:"payment_intent"`
	AmountCents   int64     `db:"amount_cents"`
	CreatedAt     time.Time `db:"created_at"`
}

func (l *paymentLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	var count int
	err := l.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM payment_event WHERE event_id = ?`, eventID)
	if err != nil {
		return false, errors.Wrap(err, "look up payment event")
	}
	return count > 0, nil
}

// RecordEvent relies on the primary key: a replayed event id inserts no row.
func (l *paymentLedger) RecordEvent(ctx context.Context, event *model.PaymentEvent) (bool, error) {
	row := paymentEventRow{
		EventID:    event.ID,
		EventType:  event.Type,
		OrderID:    event.OrderID.Hex(),
		ReceivedAt: time.Now().UTC(),
	}
	if event.PaymentIntent != "" {
		row.PaymentIntent = &event.PaymentIntent
	}

	res, err := l.db.NamedExecContext(ctx, `
		INSERT IGNORE INTO payment_event (event_id, event_type, order_id, payment_intent, received_at)
		VALUES (:event_id, :event_type, :order_id, :payment_intent, :received_at)`, row)
	if err != nil {
		return false, errors.Wrap(err, "record payment event")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "record payment event")
	}
	return affected == 1, nil
}

func (l *paymentLedger) RecordRefund(ctx context.Context, orderID primitive.ObjectID, paymentIntent, refundID string, amountCents int64) error {
	_, err := l.db.NamedExecContext(ctx, `
		INSERT INTO payment_refund (refund_id, order_id, payment_intent, amount_cents, created_at)
		VALUES (:refund_id, :order_id, :payment_intent, :amount_cents, :created_at)`,
		paymentRefundRow{
			RefundID:      refundID,
			OrderID:       orderID.Hex(),
			PaymentIntent: paymentIntent,
			AmountCents:   amountCents,
			CreatedAt:     time.Now().UTC(),
		})
	return errors.Wrap(err, "record refund")
}
