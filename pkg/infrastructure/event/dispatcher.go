package event

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"ecommerce/pkg/domain/model"
	"ecommerce/pkg/domain/service"
	"ecommerce/pkg/infrastructure/mail"
	"ecommerce/pkg/infrastructure/notify"
)

type Broadcaster interface {
	Broadcast(event string, data interface{})
}

type dispatcher struct {
	hub     Broadcaster
	mails   mail.Queue
	otpTTL  time.Duration
	timeout time.Duration
}

// NewDispatcher pushes stock changes to socket clients and turns mail worthy
// events into queued emails. Everything else is only logged.
func NewDispatcher(hub Broadcaster, mails mail.Queue, otpTTL time.Duration) service.EventDispatcher {
	return &dispatcher{hub: hub, mails: mails, otpTTL: otpTTL, timeout: 5 * time.Second}
}

func (d *dispatcher) Dispatch(event service.Event) error {
	logger := log.WithField("event", event.Type())

	var (
		msg mail.Message
		err error
	)
	switch e := event.(type) {
	case model.ProductQuantityChanged:
		d.hub.Broadcast(notify.ProductQuantityChange, e)
		return nil
	case model.OtpIssued:
		msg, err = mail.OtpMessage(e, d.otpTTL)
	case model.OrderCreated:
		msg, err = mail.OrderCreatedMessage(e)
	case model.PaymentReminderDue:
		msg, err = mail.PaymentReminderMessage(e)
	default:
		logger.Info("event dispatched")
		return nil
	}
	if err != nil {
		logger.WithError(err).Error("could not build mail")
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.mails.Enqueue(ctx, msg); err != nil {
		logger.WithError(err).WithField("to", msg.To).Error("could not enqueue mail")
		return err
	}
	logger.WithField("to", msg.To).Info("mail enqueued")
	return nil
}
