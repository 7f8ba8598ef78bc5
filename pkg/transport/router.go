package transport

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"ecommerce/pkg/domain/model"
	"ecommerce/pkg/domain/service"
	"ecommerce/pkg/infrastructure/storage"
)

type Services struct {
	Identity   service.IdentityService
	Brands     service.BrandService
	Categories service.CategoryService
	Products   service.ProductService
	Coupons    service.CouponService
	Carts      service.CartService
	Orders     service.OrderService
}

// Files serves stored objects and presigned urls.
type Files interface {
	Get(ctx context.Context, key string) (*storage.Object, error)
	PresignUpload(ctx context.Context, path, filename, contentType string) (string, string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

type WebhookParser interface {
	Parse(payload []byte, signature string) (*model.PaymentEvent, error)
}

type Config struct {
	UploadMaxMB int
}

type server struct {
	Services
	files    Files
	webhooks WebhookParser
	uploads  uploadLimits

	admin    func(http.HandlerFunc) http.Handler
	customer func(http.HandlerFunc) http.Handler
}

func Router(services Services, files Files, webhooks WebhookParser, socket http.Handler, cfg Config) http.Handler {
	s := &server{
		Services: services,
		files:    files,
		webhooks: webhooks,
		uploads:  newUploadLimits(cfg.UploadMaxMB),
		admin:    guard(services.Identity, model.RoleAdmin),
		customer: guard(services.Identity, model.RoleUser, model.RoleAdmin),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.hello).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	if socket != nil {
		r.Handle("/socket", socket)
	}

	s.userRoutes(r.PathPrefix("/users").Subrouter())
	s.brandRoutes(r.PathPrefix("/brands").Subrouter())
	s.categoryRoutes(r.PathPrefix("/categories").Subrouter())
	s.productRoutes(r.PathPrefix("/products").Subrouter())
	s.couponRoutes(r.PathPrefix("/coupon").Subrouter())
	s.cartRoutes(r.PathPrefix("/cart").Subrouter())
	s.orderRoutes(r.PathPrefix("/order").Subrouter())
	s.fileRoutes(r)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, payload{"message": "route not found"})
	})
	return logMiddleware(r)
}

func (s *server) hello(w http.ResponseWriter, _ *http.Request) {
	done(w, http.StatusOK, payload{"info": "ecommerce api"})
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, payload{"status": "ok"})
}
