package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"ecommerce/pkg/domain/model"
	"ecommerce/pkg/domain/service"
)

const maxWebhookBody = 1 << 20

type addToCartRequest struct {
	ProductID string `json:"productId" validate:"required,objectid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	Phone         string `json:"phone" validate:"required"`
	Address       string `json:"address" validate:"required"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=CASH CARD"`
	CouponCode    string `json:"couponCode" validate:"omitempty,min=3,max=20"`
}

func (s *server) cartRoutes(r *mux.Router) {
	r.Handle("", s.customer(s.getCart)).Methods(http.MethodGet)
	r.Handle("", s.customer(s.addToCart)).Methods(http.MethodPost)
	r.Handle("/{id}", s.customer(s.removeFromCart)).Methods(http.MethodDelete)
	r.Handle("/{id}", s.customer(s.updateCartQuantity)).Methods(http.MethodPatch)
}

func (s *server) orderRoutes(r *mux.Router) {
	r.HandleFunc("/webhook", s.paymentWebhook).Methods(http.MethodPost)
	r.Handle("", s.customer(s.createOrder)).Methods(http.MethodPost)
	r.Handle("", s.customer(s.listOrders)).Methods(http.MethodGet)
	r.Handle("/{id}", s.customer(s.getOrder)).Methods(http.MethodGet)
	r.Handle("/stripe/{id}", s.customer(s.checkout)).Methods(http.MethodPost)
	r.Handle("/refund/{id}", s.admin(s.orderTransition(s.Orders.Refund))).Methods(http.MethodPatch)
	r.Handle("/deliver/{id}", s.admin(s.orderTransition(s.Orders.Deliver))).Methods(http.MethodPatch)
}

func (s *server) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := s.Carts.Get(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"cart": cart})
}

func (s *server) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	productID, err := model.ParseID(req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cart, err := s.Carts.Add(r.Context(), currentUser(r).ID, productID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusCreated, payload{"cart": cart})
}

func (s *server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cart, err := s.Carts.Remove(r.Context(), currentUser(r).ID, productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"cart": cart})
}

func (s *server) updateCartQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cartQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cart, err := s.Carts.UpdateQuantity(r.Context(), currentUser(r).ID, productID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"cart": cart})
}

func (s *server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := s.Orders.Create(r.Context(), currentUser(r), service.CreateOrderInput{
		Address:       req.Address,
		Phone:         req.Phone,
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusCreated, payload{"order": order})
}

func (s *server) listOrders(w http.ResponseWriter, r *http.Request) {
	page, _, err := pageOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orders, err := s.Orders.ListMine(r.Context(), currentUser(r).ID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, paginated(orders))
}

func (s *server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := s.Orders.Get(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"order": order})
}

func (s *server) checkout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	session, err := s.Orders.Checkout(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"url": session.URL, "sessionId": session.ID})
}

func (s *server) orderTransition(action func(ctx context.Context, actor, id model.ObjectID) (*model.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		order, err := action(r.Context(), currentUser(r).ID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		done(w, http.StatusOK, payload{"order": order})
	}
}

func (s *server) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, r, err)
		return
	}
	event, err := s.webhooks.Parse(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Orders.HandlePaymentEvent(r.Context(), event); err != nil {
		writeError(w, r, err)
		return
	}
	log.WithFields(log.Fields{"eventId": event.ID, "type": event.Type}).Info("payment event handled")
	done(w, http.StatusOK, payload{"received": true})
}
