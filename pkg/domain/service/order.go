package service

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"ecommerce/pkg/domain/model"
)

type CreateOrderInput struct {
	Address       string
	Phone         string
	PaymentMethod model.PaymentMethod
	CouponCode    string
}

type OrderService interface {
	Create(ctx context.Context, user *model.User, input CreateOrderInput) (*model.Order, error)
	// Checkout opens a payment session for a pending card order. The order itself
	// only changes once the processor reports the payment.
	Checkout(ctx context.Context, user *model.User, orderID model.ObjectID) (*model.CheckoutSession, error)
	HandlePaymentEvent(ctx context.Context, event *model.PaymentEvent) error
	Refund(ctx context.Context, actor, orderID model.ObjectID) (*model.Order, error)
	Deliver(ctx context.Context, actor, orderID model.ObjectID) (*model.Order, error)
	Get(ctx context.Context, userID, orderID model.ObjectID) (*model.Order, error)
	ListMine(ctx context.Context, userID model.ObjectID, page model.Page) (*model.Paginated[model.Order], error)
	RemindPendingPayments(ctx context.Context, olderThan time.Duration) (int, error)
}

func NewOrderService(
	repo model.OrderRepository,
	carts model.CartRepository,
	products model.ProductRepository,
	coupons model.CouponRepository,
	users model.UserRepository,
	gateway model.PaymentGateway,
	ledger model.PaymentLedger,
	dispatcher EventDispatcher,
) OrderService {
	return &orderService{
		repo:       repo,
		carts:      carts,
		products:   products,
		coupons:    coupons,
		users:      users,
		gateway:    gateway,
		ledger:     ledger,
		dispatcher: dispatcher,
	}
}

type orderService struct {
	repo       model.OrderRepository
	carts      model.CartRepository
	products   model.ProductRepository
	coupons    model.CouponRepository
	users      model.UserRepository
	gateway    model.PaymentGateway
	ledger     model.PaymentLedger
	dispatcher EventDispatcher
}

func (s *orderService) Create(ctx context.Context, user *model.User, input CreateOrderInput) (*model.Order, error) {
	now := time.Now().UTC()

	coupon, err := s.redeemableCoupon(ctx, user.ID, input.CouponCode, now)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.FindByOwner(ctx, user.ID)
	if err != nil {
		if errors.Is(err, model.ErrCartNotFound) {
			return nil, model.ErrCartEmpty
		}
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, model.ErrCartEmpty
	}

	lines := make([]model.OrderLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		product, err := s.products.Find(ctx, line.ProductID, false)
		if err != nil {
			if errors.Is(err, model.ErrProductNotFound) {
				return nil, model.ErrInsufficientStock
			}
			return nil, err
		}
		if product.Stock < line.Quantity {
			return nil, model.ErrInsufficientStock
		}
		lines = append(lines, model.OrderLine{
			ProductID:  line.ProductID,
			Name:       product.Name,
			Quantity:   line.Quantity,
			PriceCents: line.PriceCents,
		})
	}

	subtotal := model.Subtotal(cart.Lines)
	order := &model.Order{
		ID:            s.repo.NextID(),
		UserID:        user.ID,
		CartID:        cart.ID,
		Lines:         lines,
		Address:       input.Address,
		Phone:         input.Phone,
		PaymentMethod: input.PaymentMethod,
		Status:        model.InitialStatus(input.PaymentMethod),
		SubtotalCents: subtotal,
		TotalCents:    subtotal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if coupon != nil {
		order.CouponID = &coupon.ID
		order.CouponAmount = coupon.Amount
		order.TotalCents = model.OrderTotal(subtotal, coupon.Amount)
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	// From here on the order exists and earlier steps are not rolled back.
	for _, line := range order.Lines {
		product, err := s.products.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		_ = s.dispatcher.Dispatch(model.ProductQuantityChanged{ProductID: product.ID, Quantity: product.Stock})
	}

	if coupon != nil {
		if err := s.coupons.MarkUsed(ctx, coupon.ID, user.ID); err != nil {
			return nil, err
		}
	}

	if order.PaymentMethod == model.Cash {
		cart.Clear()
		cart.UpdatedAt = now
		if err := s.carts.Update(ctx, cart); err != nil {
			return nil, err
		}
	}

	_ = s.dispatcher.Dispatch(model.OrderCreated{
		OrderID:    order.ID,
		UserID:     user.ID,
		Email:      user.Email,
		Status:     order.Status,
		TotalCents: order.TotalCents,
	})
	return order, nil
}

func (s *orderService) redeemableCoupon(ctx context.Context, userID model.ObjectID, code string, now time.Time) (*model.Coupon, error) {
	if code == "" {
		return nil, nil
	}
	coupon, err := s.coupons.FindByCode(ctx, strings.ToLower(code), false)
	if err != nil {
		if errors.Is(err, model.ErrCouponNotFound) {
			return nil, model.ErrCouponNotRedeemable
		}
		return nil, err
	}
	if !coupon.Redeemable(userID, now) {
		return nil, model.ErrCouponNotRedeemable
	}
	return coupon, nil
}

func (s *orderService) Checkout(ctx context.Context, user *model.User, orderID model.ObjectID) (*model.CheckoutSession, error) {
	order, err := s.Get(ctx, user.ID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.Pending || order.PaymentMethod != model.Card {
		return nil, model.ErrOrderNotPayable
	}
	if len(order.Lines) == 0 {
		return nil, model.ErrOrderNotFound
	}
	return s.gateway.CreateCheckoutSession(ctx, order, user.Email, order.CouponAmount)
}

// HandlePaymentEvent records the event in the ledger only after it was applied.
func (s *orderService) HandlePaymentEvent(ctx context.Context, event *model.PaymentEvent) error {
	logger := log.WithFields(log.Fields{"event": event.ID, "type": event.Type, "order": event.OrderID.Hex()})
	seen, err := s.ledger.Seen(ctx, event.ID)
	if err != nil {
		return err
	}
	if seen {
		logger.Info("payment event already processed")
		return nil
	}

	var paid *model.Order
	if event.Type == model.CheckoutCompleted {
		order, err := s.repo.Find(ctx, event.OrderID)
		if err != nil {
			return err
		}
		if err := order.MarkPaid(event.PaymentIntent, time.Now().UTC()); err != nil {
			logger.WithField("status", order.Status).Warn("payment event ignored for order state")
		} else {
			if err := s.repo.Update(ctx, order); err != nil {
				return err
			}
			paid = order
		}
	}

	if _, err := s.ledger.RecordEvent(ctx, event); err != nil {
		return err
	}
	if paid != nil {
		_ = s.dispatcher.Dispatch(model.OrderPaid{OrderID: paid.ID, PaymentIntent: paid.PaymentIntent})
	}
	return nil
}

func (s *orderService) Refund(ctx context.Context, actor, orderID model.ObjectID) (*model.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// A canceled card order whose refund failed earlier goes straight to the refund.
	if order.Status != model.Canceled || !order.Refundable() {
		if err := order.Cancel(actor, time.Now().UTC()); err != nil {
			return nil, err
		}
		if err := s.repo.Update(ctx, order); err != nil {
			return nil, err
		}
		_ = s.dispatcher.Dispatch(model.OrderCanceled{OrderID: order.ID, By: actor})
	}

	if !order.Refundable() {
		return order, nil
	}

	refundID, err := s.gateway.Refund(ctx, order.PaymentIntent)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.RecordRefund(ctx, order.ID, order.PaymentIntent, refundID, order.TotalCents); err != nil {
		log.WithError(err).WithField("order", order.ID.Hex()).Error("failed to record refund")
	}

	if err := order.MarkRefunded(actor, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.OrderRefunded{OrderID: order.ID, RefundID: refundID})
	return order, nil
}

func (s *orderService) Deliver(ctx context.Context, actor, orderID model.ObjectID) (*model.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.Deliver(actor, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.OrderDelivered{OrderID: order.ID, By: actor})
	return order, nil
}

func (s *orderService) Get(ctx context.Context, userID, orderID model.ObjectID) (*model.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListMine(ctx context.Context, userID model.ObjectID, page model.Page) (*model.Paginated[model.Order], error) {
	return s.repo.ListByUser(ctx, userID, page)
}

func (s *orderService) RemindPendingPayments(ctx context.Context, olderThan time.Duration) (int, error) {
	now := time.Now().UTC()
	orders, err := s.repo.FindAwaitingPayment(ctx, now.Add(-olderThan))
	if err != nil {
		return 0, err
	}

	reminded := 0
	for i := range orders {
		order := &orders[i]
		user, err := s.users.Find(ctx, order.UserID)
		if err != nil {
			log.WithError(err).WithField("order", order.ID.Hex()).Warn("skipping payment reminder")
			continue
		}

		_ = s.dispatcher.Dispatch(model.PaymentReminderDue{
			OrderID:    order.ID,
			Email:      user.Email,
			Name:       user.UserName(),
			TotalCents: order.TotalCents,
		})

		order.Changes.RemindedAt = &now
		if err := s.repo.Update(ctx, order); err != nil {
			return reminded, err
		}
		reminded++
	}
	return reminded, nil
}
