package payment

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"ecommerce/pkg/domain/model"
)

// WebhookParser turns a raw processor callback into a PaymentEvent. With an
// empty secret the signature check is skipped, which only suits local setups.
type WebhookParser struct {
	secret string
}

func NewWebhookParser(secret string) *WebhookParser {
	if secret == "" {
		log.Warn("stripe webhook secret is empty, signatures are not verified")
	}
	return &WebhookParser{secret: secret}
}

func (p *WebhookParser) Parse(payload []byte, signature string) (*model.PaymentEvent, error) {
	var event stripe.Event
	if p.secret != "" {
		verified, err := webhook.ConstructEventWithOptions(payload, signature, p.secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			log.WithError(err).Warn("stripe webhook rejected")
			return nil, model.ErrInvalidWebhook
		}
		event = verified
	} else if err := json.Unmarshal(payload, &event); err != nil {
		return nil, model.ErrInvalidWebhook
	}
	if event.ID == "" {
		return nil, model.ErrInvalidWebhook
	}

	out := &model.PaymentEvent{ID: event.ID, Type: string(event.Type)}
	if out.Type != model.CheckoutCompleted {
		return out, nil
	}
	if event.Data == nil {
		return nil, model.ErrInvalidWebhook
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, model.ErrInvalidWebhook
	}
	orderID, err := model.ParseID(session.Metadata["orderId"])
	if err != nil {
		return nil, model.ErrInvalidWebhook
	}
	out.OrderID = orderID
	if session.PaymentIntent != nil {
		out.PaymentIntent = session.PaymentIntent.ID
	}
	return out, nil
}
