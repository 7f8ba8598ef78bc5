package mail

import (
	"context"
	"encoding/json"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// Channel is the subset of *amqp.Channel the queue uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

func declare(ch Channel, queue string) error {
	_, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	return errors.Wrapf(err, "declare queue %s", queue)
}

type amqpQueue struct {
	ch    Channel
	queue string
}

func NewQueue(ch Channel, queue string) (Queue, error) {
	if err := declare(ch, queue); err != nil {
		return nil, err
	}
	return &amqpQueue{ch: ch, queue: queue}, nil
}

func (q *amqpQueue) Enqueue(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encode mail")
	}
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	return errors.Wrap(err, "publish mail")
}

type Worker struct {
	ch         Channel
	queue      string
	sender     Sender
	maxRetries uint64
}

func NewWorker(ch Channel, queue string, sender Sender, maxRetries uint64) *Worker {
	return &Worker{ch: ch, queue: queue, sender: sender, maxRetries: maxRetries}
}

// Run consumes the queue until ctx is done or the delivery channel closes.
// Messages that still fail after the retries are dropped.
func (w *Worker) Run(ctx context.Context) error {
	if err := declare(w.ch, w.queue); err != nil {
		return err
	}
	if err := w.ch.Qos(1, 0, false); err != nil {
		return errors.Wrap(err, "set qos")
	}
	deliveries, err := w.ch.Consume(w.queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "consume")
	}

	log.WithField("queue", w.queue).Info("mail worker started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.WithError(err).Error("drop malformed mail task")
		_ = d.Nack(false, false)
		return
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), w.maxRetries), ctx)
	err := backoff.Retry(func() error {
		return w.sender.Send(msg)
	}, policy)
	if err != nil {
		log.WithError(err).WithField("to", msg.To).Error("mail not delivered")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
	log.WithFields(log.Fields{"to": msg.To, "subject": msg.Subject}).Info("mail sent")
}
