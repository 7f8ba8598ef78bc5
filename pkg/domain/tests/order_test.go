package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ecommerce/pkg/domain/model"
	"ecommerce/pkg/domain/service"
)

type orderFixture struct {
	carts      service.CartService
	orders     service.OrderService
	cartRepo   *mockCartRepository
	orderRepo  *mockOrderRepository
	products   *mockProductRepository
	coupons    *mockCouponRepository
	users      *mockUserRepository
	gateway    *mockPaymentGateway
	ledger     *mockPaymentLedger
	dispatcher *mockEventDispatcher
	user       *model.User
	admin      primitive.ObjectID
}

func setupOrders(t *testing.T) orderFixture {
	t.Helper()
	f := orderFixture{
		cartRepo:   &mockCartRepository{store: make(map[primitive.ObjectID]*model.Cart)},
		orderRepo:  &mockOrderRepository{store: make(map[primitive.ObjectID]*model.Order)},
		products:   newMockProductRepository(),
		coupons:    &mockCouponRepository{store: make(map[primitive.ObjectID]*model.Coupon)},
		users:      &mockUserRepository{store: make(map[primitive.ObjectID]*model.User)},
		gateway:    &mockPaymentGateway{},
		ledger:     &mockPaymentLedger{seen: make(map[string]bool)},
		dispatcher: &mockEventDispatcher{},
		user:       &model.User{ID: primitive.NewObjectID(), Email: "buyer@example.com", FirstName: "Sara", Confirmed: true},
		admin:      primitive.NewObjectID(),
	}
	require.NoError(t, f.users.Create(context.Background(), f.user))
	f.carts = service.NewCartService(f.cartRepo, f.products, f.dispatcher)
	f.orders = service.NewOrderService(f.orderRepo, f.cartRepo, f.products, f.coupons, f.users, f.gateway, f.ledger, f.dispatcher)
	return f
}

func (f orderFixture) product(t *testing.T, priceCents int64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{ID: primitive.NewObjectID(), Name: "Item", PriceCents: priceCents, Stock: stock, Quantity: stock}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f orderFixture) coupon(t *testing.T, amount int) *model.Coupon {
	t.Helper()
	now := time.Now().UTC()
	c := &model.Coupon{
		ID: primitive.NewObjectID(), Code: "ten", Amount: amount,
		FromDate: now.Add(-time.Hour), ToDate: now.Add(time.Hour), UsedBy: []primitive.ObjectID{},
	}
	require.NoError(t, f.coupons.Create(context.Background(), c))
	return c
}

func TestCartAdd(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	p1 := f.product(t, 50, 5)
	p2 := f.product(t, 30, 1)

	cart, err := f.carts.Add(ctx, f.user.ID, p1.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(100), cart.SubtotalCents)

	changes := eventsOf[model.ProductQuantityChanged](f.dispatcher.events)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ProductQuantityChanged{ProductID: p1.ID, Quantity: 2}, changes[0])

	t.Run("Same product twice", func(t *testing.T) {
		_, err := f.carts.Add(ctx, f.user.ID, p1.ID, 1)
		assert.ErrorIs(t, err, model.ErrProductAlreadyInCart)
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("Over stock", func(t *testing.T) {
		_, err := f.carts.Add(ctx, f.user.ID, p2.ID, 2)
		assert.ErrorIs(t, err, model.ErrInsufficientStock)
	})

	t.Run("Second product appended", func(t *testing.T) {
		cart, err := f.carts.Add(ctx, f.user.ID, p2.ID, 1)
		require.NoError(t, err)
		assert.Len(t, cart.Lines, 2)
		assert.Equal(t, int64(130), cart.SubtotalCents)
		assert.Len(t, f.cartRepo.store, 1)
	})
}

func TestCartUpdateAndRemove(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	p1 := f.product(t, 50, 5)
	p2 := f.product(t, 10, 5)
	_, err := f.carts.Add(ctx, f.user.ID, p1.ID, 1)
	require.NoError(t, err)

	t.Run("Update quantity of the line", func(t *testing.T) {
		f.dispatcher.Reset()
		cart, err := f.carts.UpdateQuantity(ctx, f.user.ID, p1.ID, 4)
		require.NoError(t, err)
		assert.Equal(t, 4, cart.Lines[0].Quantity)
		assert.Equal(t, int64(200), cart.SubtotalCents)

		stored, _ := f.products.Find(ctx, p1.ID, false)
		assert.Equal(t, 5, stored.Stock)
		assert.Len(t, eventsOf[model.ProductQuantityChanged](f.dispatcher.events), 1)
	})

	t.Run("Update beyond stock", func(t *testing.T) {
		_, err := f.carts.UpdateQuantity(ctx, f.user.ID, p1.ID, 6)
		assert.ErrorIs(t, err, model.ErrInsufficientStock)
	})

	t.Run("Remove a product that is not in the cart", func(t *testing.T) {
		_, err := f.carts.Remove(ctx, f.user.ID, p2.ID)
		assert.ErrorIs(t, err, model.ErrCartNotFound)
	})

	t.Run("Remove", func(t *testing.T) {
		cart, err := f.carts.Remove(ctx, f.user.ID, p1.ID)
		require.NoError(t, err)
		assert.Empty(t, cart.Lines)
		assert.Zero(t, cart.SubtotalCents)
	})
}

func TestSubtotalWithCoupon(t *testing.T) {
	lines := []model.CartLine{{ProductID: primitive.NewObjectID(), Quantity: 2, PriceCents: 50}}
	subtotal := model.Subtotal(lines)
	assert.Equal(t, int64(100), subtotal)
	assert.Equal(t, int64(90), model.OrderTotal(subtotal, 10))
	assert.Equal(t, int64(67), model.OrderTotal(100, 33))
	assert.Equal(t, int64(100), model.OrderTotal(100, 0))
}

func TestCreateOrderRejectsOverStock(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	p1 := f.product(t, 50, 5)
	p2 := f.product(t, 20, 3)
	coupon := f.coupon(t, 10)
	_, err := f.carts.Add(ctx, f.user.ID, p1.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, f.user.ID, p2.ID, 3)
	require.NoError(t, err)

	// Stock drops after the product went into the cart.
	f.products.store[p2.ID].Stock = 1
	f.dispatcher.Reset()

	_, err = f.orders.Create(ctx, f.user, service.CreateOrderInput{
		Address: "12 Nile St", Phone: "01000000000", PaymentMethod: model.Cash, CouponCode: "TEN",
	})
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	assert.Empty(t, f.orderRepo.store)
	assert.Equal(t, 5, f.products.store[p1.ID].Stock)
	assert.Equal(t, 1, f.products.store[p2.ID].Stock)
	assert.Empty(t, f.coupons.store[coupon.ID].UsedBy)
	cart, _ := f.cartRepo.FindByOwner(ctx, f.user.ID)
	assert.Len(t, cart.Lines, 2)
	assert.Empty(t, f.dispatcher.events)
}

func TestCreateCashOrder(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	p1 := f.product(t, 50, 5)
	coupon := f.coupon(t, 10)
	_, err := f.carts.Add(ctx, f.user.ID, p1.ID, 2)
	require.NoError(t, err)
	f.dispatcher.Reset()

	order, err := f.orders.Create(ctx, f.user, service.CreateOrderInput{
		Address: "12 Nile St", Phone: "01000000000", PaymentMethod: model.Cash, CouponCode: "ten",
	})
	require.NoError(t, err)
	assert.Equal(t, model.Placed, order.Status)
	assert.Equal(t, int64(100), order.SubtotalCents)
	assert.Equal(t, int64(90), order.TotalCents)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "Item", order.Lines[0].Name)

	assert.Equal(t, 3, f.products.store[p1.ID].Stock)
	assert.Contains(t, f.coupons.store[coupon.ID].UsedBy, f.user.ID)
	cart, _ := f.cartRepo.FindByOwner(ctx, f.user.ID)
	assert.Empty(t, cart.Lines)

	changes := eventsOf[model.ProductQuantityChanged](f.dispatcher.events)
	require.Len(t, changes, 1)
	assert.Equal(t, 3, changes[0].Quantity)
	assert.Len(t, eventsOf[model.OrderCreated](f.dispatcher.events), 1)

	t.Run("Coupon is single use per user", func(t *testing.T) {
		_, err := f.carts.Add(ctx, f.user.ID, p1.ID, 1)
		require.NoError(t, err)
		_, err = f.orders.Create(ctx, f.user, service.CreateOrderInput{PaymentMethod: model.Cash, CouponCode: "ten"})
		assert.ErrorIs(t, err, model.ErrCouponNotRedeemable)
	})

	t.Run("Empty cart", func(t *testing.T) {
		other := &model.User{ID: primitive.NewObjectID()}
		_, err := f.orders.Create(ctx, other, service.CreateOrderInput{PaymentMethod: model.Cash})
		assert.ErrorIs(t, err, model.ErrCartEmpty)
	})
}

func TestCreateOrderNoCompensation(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	p1 := f.product(t, 50, 5)
	p2 := f.product(t, 20, 5)
	_, err := f.carts.Add(ctx, f.user.ID, p1.ID, 1)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, f.user.ID, p2.ID, 1)
	require.NoError(t, err)

	f.products.failDecrementAfter = 1
	_, err = f.orders.Create(ctx, f.user, service.CreateOrderInput{PaymentMethod: model.Cash})
	require.Error(t, err)

	assert.Len(t, f.orderRepo.store, 1)
	assert.Equal(t, 9, f.products.store[p1.ID].Stock+f.products.store[p2.ID].Stock)
}

func (f orderFixture) cardOrder(t *testing.T) *model.Order {
	t.Helper()
	ctx := context.Background()
	p := f.product(t, 50, 5)
	_, err := f.carts.Add(ctx, f.user.ID, p.ID, 2)
	require.NoError(t, err)
	order, err := f.orders.Create(ctx, f.user, service.CreateOrderInput{
		Address: "1 Tahrir Sq", Phone: "01111111111", PaymentMethod: model.Card,
	})
	require.NoError(t, err)
	return order
}

func TestCardOrderCheckoutAndWebhook(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	order := f.cardOrder(t)

	assert.Equal(t, model.Pending, order.Status)
	cart, _ := f.cartRepo.FindByOwner(ctx, f.user.ID)
	assert.Len(t, cart.Lines, 1)

	session, err := f.orders.Checkout(ctx, f.user, order.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, session.URL)
	assert.Equal(t, model.Pending, f.orderRepo.store[order.ID].Status)

	t.Run("Checkout of someone else's order", func(t *testing.T) {
		_, err := f.orders.Checkout(ctx, &model.User{ID: primitive.NewObjectID()}, order.ID)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	event := &model.PaymentEvent{ID: "evt_1", Type: model.CheckoutCompleted, OrderID: order.ID, PaymentIntent: "pi_1"}
	require.NoError(t, f.orders.HandlePaymentEvent(ctx, event))
	paid := f.orderRepo.store[order.ID]
	assert.Equal(t, model.Paid, paid.Status)
	assert.Equal(t, "pi_1", paid.PaymentIntent)
	require.NotNil(t, paid.Changes.PaidAt)

	t.Run("Replay does not re-apply", func(t *testing.T) {
		paidAt := *paid.Changes.PaidAt
		f.orderRepo.store[order.ID].Status = model.Pending
		replay := &model.PaymentEvent{ID: "evt_1", Type: model.CheckoutCompleted, OrderID: order.ID, PaymentIntent: "pi_forged"}

		require.NoError(t, f.orders.HandlePaymentEvent(ctx, replay))
		stored := f.orderRepo.store[order.ID]
		assert.Equal(t, model.Pending, stored.Status)
		assert.Equal(t, "pi_1", stored.PaymentIntent)
		assert.True(t, paidAt.Equal(*stored.Changes.PaidAt))
		f.orderRepo.store[order.ID].Status = model.Paid
	})

	t.Run("New event for a paid order", func(t *testing.T) {
		other := &model.PaymentEvent{ID: "evt_2", Type: model.CheckoutCompleted, OrderID: order.ID, PaymentIntent: "pi_2"}
		require.NoError(t, f.orders.HandlePaymentEvent(ctx, other))
		assert.Equal(t, "pi_1", f.orderRepo.store[order.ID].PaymentIntent)
	})

	t.Run("Checkout after payment", func(t *testing.T) {
		_, err := f.orders.Checkout(ctx, f.user, order.ID)
		assert.ErrorIs(t, err, model.ErrOrderNotPayable)
	})
}

func TestPaymentEventRedeliveryAfterFailedUpdate(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	order := f.cardOrder(t)
	f.dispatcher.Reset()
	event := &model.PaymentEvent{ID: "evt_1", Type: model.CheckoutCompleted, OrderID: order.ID, PaymentIntent: "pi_1"}

	f.orderRepo.failUpdates = 1
	require.Error(t, f.orders.HandlePaymentEvent(ctx, event))
	assert.Equal(t, model.Pending, f.orderRepo.store[order.ID].Status)
	assert.False(t, f.ledger.seen["evt_1"])

	require.NoError(t, f.orders.HandlePaymentEvent(ctx, event))
	assert.Equal(t, model.Paid, f.orderRepo.store[order.ID].Status)
	assert.Equal(t, "pi_1", f.orderRepo.store[order.ID].PaymentIntent)
	assert.True(t, f.ledger.seen["evt_1"])
	assert.Len(t, eventsOf[model.OrderPaid](f.dispatcher.events), 1)
}

func TestPaymentEventLedgerFailures(t *testing.T) {
	t.Run("Lookup error leaves the order untouched", func(t *testing.T) {
		f := setupOrders(t)
		ctx := context.Background()
		order := f.cardOrder(t)
		f.dispatcher.Reset()
		f.ledger.seenErr = errors.New("mysql: bad connection")

		err := f.orders.HandlePaymentEvent(ctx, &model.PaymentEvent{
			ID: "evt_1", Type: model.CheckoutCompleted, OrderID: order.ID, PaymentIntent: "pi_1",
		})
		require.Error(t, err)
		stored := f.orderRepo.store[order.ID]
		assert.Equal(t, model.Pending, stored.Status)
		assert.Empty(t, stored.PaymentIntent)
		assert.Nil(t, stored.Changes.PaidAt)
		assert.Empty(t, f.dispatcher.events)
	})

	t.Run("Record error is redelivered without paying twice", func(t *testing.T) {
		f := setupOrders(t)
		ctx := context.Background()
		order := f.cardOrder(t)
		f.dispatcher.Reset()
		event := &model.PaymentEvent{ID: "evt_1", Type: model.CheckoutCompleted, OrderID: order.ID, PaymentIntent: "pi_1"}

		f.ledger.recordErr = errors.New("mysql: bad connection")
		require.Error(t, f.orders.HandlePaymentEvent(ctx, event))
		paid := f.orderRepo.store[order.ID]
		assert.Equal(t, model.Paid, paid.Status)
		paidAt := *paid.Changes.PaidAt
		assert.Empty(t, f.dispatcher.events)

		f.ledger.recordErr = nil
		require.NoError(t, f.orders.HandlePaymentEvent(ctx, event))
		stored := f.orderRepo.store[order.ID]
		assert.Equal(t, model.Paid, stored.Status)
		assert.True(t, paidAt.Equal(*stored.Changes.PaidAt))
		assert.True(t, f.ledger.seen["evt_1"])
		assert.Empty(t, eventsOf[model.OrderPaid](f.dispatcher.events))
	})
}

func TestRefund(t *testing.T) {
	t.Run("Paid card order ends refunded", func(t *testing.T) {
		f := setupOrders(t)
		ctx := context.Background()
		order := f.cardOrder(t)
		require.NoError(t, f.orders.HandlePaymentEvent(ctx, &model.PaymentEvent{
			ID: "evt_9", Type: model.CheckoutCompleted, OrderID: order.ID, PaymentIntent: "pi_9",
		}))
		f.dispatcher.Reset()

		refunded, err := f.orders.Refund(ctx, f.admin, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.Refunded, refunded.Status)
		require.NotNil(t, refunded.Changes.CanceledAt)
		require.NotNil(t, refunded.Changes.RefundedAt)
		assert.Equal(t, f.admin, *refunded.Changes.RefundedBy)
		assert.Equal(t, []string{"pi_9"}, f.gateway.refunds)
		assert.Equal(t, []string{"re_pi_9"}, f.ledger.refunds)

		require.Len(t, f.dispatcher.events, 2)
		assert.IsType(t, model.OrderCanceled{}, f.dispatcher.events[0])
		assert.IsType(t, model.OrderRefunded{}, f.dispatcher.events[1])

		_, err = f.orders.Refund(ctx, f.admin, order.ID)
		assert.ErrorIs(t, err, model.ErrInvalidOrderTransition)
	})

	t.Run("Failed refund can be retried", func(t *testing.T) {
		f := setupOrders(t)
		ctx := context.Background()
		order := f.cardOrder(t)
		require.NoError(t, f.orders.HandlePaymentEvent(ctx, &model.PaymentEvent{
			ID: "evt_r", Type: model.CheckoutCompleted, OrderID: order.ID, PaymentIntent: "pi_r",
		}))
		f.dispatcher.Reset()

		f.gateway.refundErr = errors.New("stripe: timeout")
		_, err := f.orders.Refund(ctx, f.admin, order.ID)
		require.Error(t, err)
		canceledAt := *f.orderRepo.store[order.ID].Changes.CanceledAt
		assert.Equal(t, model.Canceled, f.orderRepo.store[order.ID].Status)

		f.gateway.refundErr = nil
		refunded, err := f.orders.Refund(ctx, f.admin, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.Refunded, refunded.Status)
		assert.True(t, canceledAt.Equal(*refunded.Changes.CanceledAt))
		assert.Equal(t, []string{"pi_r"}, f.gateway.refunds)
		assert.Len(t, eventsOf[model.OrderCanceled](f.dispatcher.events), 1)
		assert.Len(t, eventsOf[model.OrderRefunded](f.dispatcher.events), 1)
	})

	t.Run("Cash order stops at canceled", func(t *testing.T) {
		f := setupOrders(t)
		ctx := context.Background()
		p := f.product(t, 10, 2)
		_, err := f.carts.Add(ctx, f.user.ID, p.ID, 1)
		require.NoError(t, err)
		order, err := f.orders.Create(ctx, f.user, service.CreateOrderInput{PaymentMethod: model.Cash})
		require.NoError(t, err)

		canceled, err := f.orders.Refund(ctx, f.admin, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.Canceled, canceled.Status)
		assert.Nil(t, canceled.Changes.RefundedAt)
		assert.Empty(t, f.gateway.refunds)
	})

	t.Run("Unpaid card order stops at canceled", func(t *testing.T) {
		f := setupOrders(t)
		order := f.cardOrder(t)
		canceled, err := f.orders.Refund(context.Background(), f.admin, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.Canceled, canceled.Status)
		assert.Empty(t, f.gateway.refunds)
	})
}

func TestDeliverAndList(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	order := f.cardOrder(t)

	_, err := f.orders.Deliver(ctx, f.admin, order.ID)
	assert.ErrorIs(t, err, model.ErrInvalidOrderTransition)

	require.NoError(t, f.orders.HandlePaymentEvent(ctx, &model.PaymentEvent{
		ID: "evt_d", Type: model.CheckoutCompleted, OrderID: order.ID, PaymentIntent: "pi_d",
	}))
	delivered, err := f.orders.Deliver(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Delivered, delivered.Status)
	assert.Equal(t, f.admin, *delivered.Changes.DeliveredBy)

	page, err := f.orders.ListMine(ctx, f.user.ID, model.NewPage(1, 10))
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = f.orders.Get(ctx, primitive.NewObjectID(), order.ID)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestRemindPendingPayments(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	order := f.cardOrder(t)
	f.orderRepo.store[order.ID].CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	f.dispatcher.Reset()

	count, err := f.orders.RemindPendingPayments(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	reminders := eventsOf[model.PaymentReminderDue](f.dispatcher.events)
	require.Len(t, reminders, 1)
	assert.Equal(t, "buyer@example.com", reminders[0].Email)

	count, err = f.orders.RemindPendingPayments(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, count)
}
