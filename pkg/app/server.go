package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"ecommerce/pkg/domain/service"
	"ecommerce/pkg/infrastructure/auth"
	"ecommerce/pkg/infrastructure/event"
	"ecommerce/pkg/infrastructure/mail"
	"ecommerce/pkg/infrastructure/mongo"
	"ecommerce/pkg/infrastructure/mysql"
	"ecommerce/pkg/infrastructure/notify"
	"ecommerce/pkg/infrastructure/payment"
	"ecommerce/pkg/infrastructure/scheduler"
	"ecommerce/pkg/infrastructure/storage"
	"ecommerce/pkg/transport"
)

type Server struct {
	http      *http.Server
	grpc      *grpc.Server
	health    *health.Server
	scheduler *scheduler.Scheduler
	hub       *notify.Hub
	closers   []func()
}

// Start connects every dependency, then serves HTTP, WebSocket and gRPC health
// and runs the cron jobs until Shutdown.
func Start(ctx context.Context, cfg *Config) (*Server, error) {
	srv := &Server{}
	started := false
	defer func() {
		if !started {
			srv.close()
		}
	}()

	mongoClient, db, err := connectMongo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	srv.closers = append(srv.closers, disconnectMongo(mongoClient))

	sqlDB, err := connectMySQL(cfg)
	if err != nil {
		return nil, err
	}
	srv.closers = append(srv.closers, closeSQL(sqlDB))

	amqpConn, ch, err := connectAMQP(cfg)
	if err != nil {
		return nil, err
	}
	srv.closers = append(srv.closers, func() { _ = ch.Close(); _ = amqpConn.Close() })
	mails, err := mail.NewQueue(ch, cfg.EmailQueue)
	if err != nil {
		return nil, err
	}

	brandCache, closeCache := newBrandCache(ctx, cfg)
	srv.closers = append(srv.closers, closeCache)

	files, err := storage.NewS3Storage(ctx, cfg.AWSRegion, cfg.AWSBucketName, cfg.ApplicationName)
	if err != nil {
		return nil, err
	}

	srv.hub = notify.NewHub(32)
	dispatcher := event.NewDispatcher(srv.hub, mails, cfg.OtpTTL)

	users := mongo.NewUserRepository(db)
	brands := mongo.NewBrandRepository(db)
	categories := mongo.NewCategoryRepository(db)
	products := mongo.NewProductRepository(db)
	carts := mongo.NewCartRepository(db)
	coupons := mongo.NewCouponRepository(db)
	orders := mongo.NewOrderRepository(db)

	services := transport.Services{
		Identity: service.NewIdentityService(
			users,
			mongo.NewOtpRepository(db),
			auth.NewPasswordManager(cfg.BcryptCost),
			auth.NewOtpGenerator(),
			auth.NewTokenIssuer(tokenConfig(cfg)),
			auth.NewGoogleVerifier(cfg.GoogleClientID),
			dispatcher,
			cfg.OtpTTL,
		),
		Brands:     service.NewBrandService(brands, files, brandCache),
		Categories: service.NewCategoryService(categories, brands, files),
		Products:   service.NewProductService(products, brands, categories, users, files),
		Coupons:    service.NewCouponService(coupons),
		Carts:      service.NewCartService(carts, products, dispatcher),
		Orders: service.NewOrderService(
			orders, carts, products, coupons, users,
			payment.NewStripeGateway(payment.Config{
				SecretKey:  cfg.StripeSecretKey,
				Currency:   cfg.StripeCurrency,
				SuccessURL: cfg.CheckoutSuccessURL,
				CancelURL:  cfg.CheckoutCancelURL,
			}),
			mysql.NewPaymentLedger(sqlDB),
			dispatcher,
		),
	}

	srv.scheduler = scheduler.New()
	if err := srv.scheduler.AddPaymentReminder(cfg.ReminderSchedule, services.Orders, cfg.ReminderAfter); err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", cfg.GRPCAddr)
	}

	router := transport.Router(services, files, payment.NewWebhookParser(cfg.StripeWebhookSecret), srv.hub,
		transport.Config{UploadMaxMB: cfg.UploadMaxMB})
	srv.http = startHTTPServer(cfg.HTTPAddr, router)
	srv.grpc, srv.health = startGRPCServer(listener)
	srv.scheduler.Start()

	started = true
	log.WithFields(log.Fields{"http": cfg.HTTPAddr, "grpc": cfg.GRPCAddr}).Info("server started")
	return srv, nil
}

func tokenConfig(cfg *Config) auth.TokenConfig {
	return auth.TokenConfig{
		UserPrefix:  cfg.BearerUser,
		AdminPrefix: cfg.BearerAdmin,
		User:        auth.Secrets{Access: cfg.AccessTokenUser, Refresh: cfg.RefreshTokenUser},
		Admin:       auth.Secrets{Access: cfg.AccessTokenAdmin, Refresh: cfg.RefreshTokenAdmin},
		AccessTTL:   cfg.AccessTokenTTL,
		RefreshTTL:  cfg.RefreshTokenTTL,
	}
}

func startHTTPServer(addr string, handler http.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()
	return srv
}

func (s *Server) Shutdown(ctx context.Context) {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			log.WithError(err).Error("http shutdown")
		}
	}
	if s.hub != nil {
		s.hub.Close()
	}
	s.close()
	log.Info("server stopped")
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func disconnectMongo(client *mongodriver.Client) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.WithError(err).Error("mongo disconnect")
		}
	}
}

func closeSQL(db *sqlx.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("mysql close")
		}
	}
}
