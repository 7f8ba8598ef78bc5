package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ecommerce/pkg/domain/service"
)

type createCouponRequest struct {
	Code     string `json:"code" validate:"required,min=3,max=20"`
	Amount   int    `json:"amount" validate:"required,min=1,max=100"`
	FromDate string `json:"fromDate" validate:"required"`
	ToDate   string `json:"toDate" validate:"required"`
}

type updateCouponRequest struct {
	Code     *string `json:"code" validate:"omitempty,min=3,max=20"`
	Amount   *int    `json:"amount" validate:"omitempty,min=1,max=100"`
	FromDate *string `json:"fromDate"`
	ToDate   *string `json:"toDate"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(field, s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, badRequest(field + " must be an ISO 8601 date")
}

func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *server) couponRoutes(r *mux.Router) {
	r.Handle("", s.admin(s.listCoupons)).Methods(http.MethodGet)
	r.Handle("", s.admin(s.createCoupon)).Methods(http.MethodPost)
	r.Handle("/update/{id}", s.admin(s.updateCoupon)).Methods(http.MethodPatch)
	r.Handle("/freezeCoupon/{id}", s.admin(s.byID(s.Coupons.Freeze))).Methods(http.MethodPatch)
	r.Handle("/restoreCoupon/{id}", s.admin(s.byID(s.Coupons.Restore))).Methods(http.MethodPatch)
	r.Handle("/deleteCoupon/{id}", s.admin(s.byID(s.Coupons.Delete))).Methods(http.MethodDelete)
}

func (s *server) listCoupons(w http.ResponseWriter, r *http.Request) {
	page, _, err := pageOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	coupons, err := s.Coupons.List(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, paginated(coupons))
}

func (s *server) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	from, err := parseDate("fromDate", req.FromDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseDate("toDate", req.ToDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	coupon, err := s.Coupons.Create(r.Context(), currentUser(r).ID, service.CreateCouponInput{
		Code:     req.Code,
		Amount:   req.Amount,
		FromDate: from,
		ToDate:   to,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusCreated, payload{"coupon": coupon})
}

func (s *server) updateCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	input := service.UpdateCouponInput{Code: req.Code, Amount: req.Amount}
	if input.FromDate, err = parseOptionalDate("fromDate", req.FromDate); err != nil {
		writeError(w, r, err)
		return
	}
	if input.ToDate, err = parseOptionalDate("toDate", req.ToDate); err != nil {
		writeError(w, r, err)
		return
	}

	coupon, err := s.Coupons.Update(r.Context(), currentUser(r).ID, id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"coupon": coupon})
}
