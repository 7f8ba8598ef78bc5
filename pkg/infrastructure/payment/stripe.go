package payment

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"ecommerce/pkg/domain/model"
)

type Config struct {
	SecretKey  string
	Currency   string
	SuccessURL string
	CancelURL  string
}

type stripeGateway struct {
	api *client.API
	cfg Config
}

func NewStripeGateway(cfg Config) model.PaymentGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &stripeGateway{api: api, cfg: cfg}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, order *model.Order, customerEmail string, couponPercent int) (*model.CheckoutSession, error) {
	var couponID string
	if couponPercent > 0 {
		coupon, err := g.api.Coupons.New(&stripe.CouponParams{
			Params:     stripe.Params{Context: ctx},
			PercentOff: stripe.Float64(float64(couponPercent)),
			Duration:   stripe.String(string(stripe.CouponDurationOnce)),
		})
		if err != nil {
			return nil, errors.Wrap(err, "create stripe coupon")
		}
		couponID = coupon.ID
	}

	params := checkoutParams(g.cfg, order, customerEmail, couponID)
	params.Context = ctx
	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout session")
	}
	return &model.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func checkoutParams(cfg Config, order *model.Order, customerEmail, couponID string) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(customerEmail),
		SuccessURL:    stripe.String(cfg.SuccessURL),
		CancelURL:     stripe.String(cfg.CancelURL),
	}
	for _, line := range order.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(cfg.Currency),
				UnitAmount: stripe.Int64(line.PriceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}
	if couponID != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{{Coupon: stripe.String(couponID)}}
	}
	params.AddMetadata("orderId", order.ID.Hex())
	return params
}

func (g *stripeGateway) Refund(ctx context.Context, paymentIntent string) (string, error) {
	refund, err := g.api.Refunds.New(&stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(paymentIntent),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	})
	if err != nil {
		return "", errors.Wrapf(err, "refund %s", paymentIntent)
	}
	return refund.ID, nil
}
