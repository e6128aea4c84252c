package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	carthttp "github.com/quanghuy/freshmart/internal/cart/httpserver"
	cartrepo "github.com/quanghuy/freshmart/internal/cart/repo"
	cartservice "github.com/quanghuy/freshmart/internal/cart/service"
	cataloghttp "github.com/quanghuy/freshmart/internal/catalog/httpserver"
	catalogrepo "github.com/quanghuy/freshmart/internal/catalog/repo"
	catalogservice "github.com/quanghuy/freshmart/internal/catalog/service"
	categoryhttp "github.com/quanghuy/freshmart/internal/category/httpserver"
	categoryrepo "github.com/quanghuy/freshmart/internal/category/repo"
	categoryservice "github.com/quanghuy/freshmart/internal/category/service"
	chathttp "github.com/quanghuy/freshmart/internal/chat/httpserver"
	chatrepo "github.com/quanghuy/freshmart/internal/chat/repo"
	chatservice "github.com/quanghuy/freshmart/internal/chat/service"
	"github.com/quanghuy/freshmart/internal/config"
	"github.com/quanghuy/freshmart/internal/es"
	"github.com/quanghuy/freshmart/internal/logging"
	"github.com/quanghuy/freshmart/internal/middleware/auth"
	"github.com/quanghuy/freshmart/internal/middleware/loggingmw"
	"github.com/quanghuy/freshmart/internal/middleware/metricsmw"
	"github.com/quanghuy/freshmart/internal/mykafka"
	orderhttp "github.com/quanghuy/freshmart/internal/order/httpserver"
	orderrepo "github.com/quanghuy/freshmart/internal/order/repo"
	orderservice "github.com/quanghuy/freshmart/internal/order/service"
	paymenthttp "github.com/quanghuy/freshmart/internal/payment/httpserver"
	"github.com/quanghuy/freshmart/internal/payment/idempotency"
	paymentrepo "github.com/quanghuy/freshmart/internal/payment/repo"
	paymentservice "github.com/quanghuy/freshmart/internal/payment/service"
	"github.com/quanghuy/freshmart/internal/payment/zalopay"
	searchhttp "github.com/quanghuy/freshmart/internal/search/httpserver"
	storehttp "github.com/quanghuy/freshmart/internal/store/httpserver"
	storerepo "github.com/quanghuy/freshmart/internal/store/repo"
	storeservice "github.com/quanghuy/freshmart/internal/store/service"
	transporthttp "github.com/quanghuy/freshmart/internal/transport/http"
	pkgdb "github.com/quanghuy/freshmart/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", "freshmart")
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := pkgdb.Migrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	var producer mykafka.Publisher = mykafka.Noop{}
	var kafkaProducer *mykafka.Producer
	if cfg.KafkaAddress != "" {
		kafkaProducer = mykafka.NewProducer(strings.Split(cfg.KafkaAddress, ","))
		producer = kafkaProducer
	}

	var esClient *elasticsearch.Client
	if cfg.ESURL != "" {
		esClient, err = es.NewClient(cfg)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search disabled", "error", err)
			esClient = nil
		}
	}

	var idemStore *idempotency.Store
	if cfg.RedisAddr != "" {
		idemStore = idempotency.NewStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}

	catalogSvc := &catalogservice.CatalogService{
		Repo:     &catalogrepo.GormRepo{DB: db},
		Producer: producer,
		ES:       esClient,
	}
	cartSvc := &cartservice.CartService{
		Repo:     &cartrepo.GormRepo{DB: db},
		Producer: producer,
	}
	orderSvc := &orderservice.OrderService{
		Repo:     &orderrepo.GormRepo{DB: db},
		Producer: producer,
	}
	paymentSvc := &paymentservice.PaymentService{
		Repo:     &paymentrepo.GormRepo{DB: db},
		Gateway:  zalopay.NewClient(cfg.ZaloPay),
		Cfg:      cfg.ZaloPay,
		Producer: producer,
		Idem:     idemStore,
	}
	chatSvc := &chatservice.ChatService{
		Repo:     &chatrepo.GormRepo{DB: db},
		Producer: producer,
	}

	deps := &transporthttp.Deps{
		DB:       db,
		Auth:     auth.NewRequireAuth(cfg.JWTSecret),
		Catalog:  &cataloghttp.CatalogHTTP{Svc: catalogSvc},
		Category: &categoryhttp.CategoryHTTP{Svc: &categoryservice.CategoryService{Repo: &categoryrepo.GormRepo{DB: db}}},
		Store:    &storehttp.StoreHTTP{Svc: &storeservice.StoreService{Repo: &storerepo.GormRepo{DB: db}}},
		Cart:     &carthttp.CartHTTP{Svc: cartSvc},
		Order:    &orderhttp.OrderHTTP{Svc: orderSvc},
		Payment:  &paymenthttp.PaymentHTTP{Svc: paymentSvc},
		Chat:     &chathttp.ChatHTTP{Svc: chatSvc},
	}
	if esClient != nil {
		deps.Search = &searchhttp.SearchHTTP{ES: esClient, Index: catalogservice.ProductIndex}
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metricsmw.Metrics())
	e.Use(echomw.CORS())

	transporthttp.Register(e, deps)

	go func() {
		log.Printf("freshmart listening on %s", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}

	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("kafka close: %v", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
