package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/jarafer/armatutienda-backend/api/controllers"
	"github.com/jarafer/armatutienda-backend/api/routes"
	"github.com/jarafer/armatutienda-backend/internal/media"
	"github.com/jarafer/armatutienda-backend/internal/mirror"
	"github.com/jarafer/armatutienda-backend/internal/orders"
	"github.com/jarafer/armatutienda-backend/internal/payments"
	products "github.com/jarafer/armatutienda-backend/internal/products"
	"github.com/jarafer/armatutienda-backend/internal/receipts"
	"github.com/jarafer/armatutienda-backend/internal/reconcile"
	"github.com/jarafer/armatutienda-backend/internal/sellers"
	"github.com/jarafer/armatutienda-backend/internal/stock"
	"github.com/jarafer/armatutienda-backend/pkg/config"
	"github.com/jarafer/armatutienda-backend/pkg/db"
	"github.com/jarafer/armatutienda-backend/pkg/github"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/mail"
	"github.com/jarafer/armatutienda-backend/pkg/mercadopago"
	"github.com/jarafer/armatutienda-backend/pkg/metrics"
	"github.com/jarafer/armatutienda-backend/pkg/migrate"
	"github.com/jarafer/armatutienda-backend/pkg/redis"
	"github.com/jarafer/armatutienda-backend/pkg/storage/s3"
	"github.com/jarafer/armatutienda-backend/pkg/workerpool"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	storageClient, err := s3.New(context.Background(), cfg.Storage)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	gatewayClient, err := mercadopago.NewClient(cfg.MercadoPago, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap payment gateway client", err)
		os.Exit(1)
	}

	githubClient := github.New(cfg.GitHub, logg)
	if githubClient == nil {
		logg.Warn(context.Background(), "storefront mirroring disabled")
	}

	mailer := mail.New(cfg.Mail)
	if !mailer.Enabled() {
		logg.Warn(context.Background(), "smtp not configured, receipts disabled")
	}

	pool := workerpool.New(cfg.Media.UploadWorkers)
	defer pool.Shutdown()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	sellersRepo := sellers.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	movements := stock.NewRecorder(dbClient.DB())

	sellersService, err := sellers.NewService(sellers.ServiceParams{
		Repo: sellersRepo,
		JWT:  cfg.JWT,
		Log:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seller service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(products.ServiceParams{
		Repo:      productsRepo,
		Movements: movements,
		Log:       logg,
		Pool:      pool,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo: ordersRepo,
		Log:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Gateway:     gatewayClient,
		Credentials: sellersRepo,
		Orders:      ordersService,
		Config:      cfg.MercadoPago,
		BaseURL:     cfg.App.BaseURL,
		Log:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	mediaService, err := media.NewService(media.ServiceParams{
		Store:  storageClient,
		Config: cfg.Media,
		Pool:   pool,
		Log:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create media service", err)
		os.Exit(1)
	}

	mirrorParams := mirror.ServiceParams{
		Sellers: sellersRepo,
		Log:     logg,
	}
	if githubClient != nil {
		mirrorParams.Hosting = githubClient
	}
	mirrorService, err := mirror.NewService(mirrorParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create mirror service", err)
		os.Exit(1)
	}

	receiptsService, err := receipts.NewService(receipts.ServiceParams{
		Mailer:   mailer,
		Products: productsService,
		Log:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create receipt service", err)
		os.Exit(1)
	}

	webhookGuard, err := reconcile.NewRedisGuard(redisClient, cfg.MercadoPago.WebhookTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(reconcile.ServiceParams{
		Payments: paymentsService,
		Ledger:   ordersRepo,
		Products: productsService,
		Sellers:  sellersRepo,
		Receipts: receiptsService,
		Guard:    webhookGuard,
		Metrics:  webhookMetrics,
		Log:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config: cfg,
		Logger: logg,
		Pingers: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
		Gatherer:     registry,
		Limiter:      redisClient,
		Sellers:      sellersService,
		SellersRepo:  sellersRepo,
		Products:     productsService,
		ProductsRepo: productsRepo,
		Orders:       ordersService,
		Payments:     paymentsService,
		Media:        mediaService,
		Mirror:       mirrorService,
		Reconciler:   reconcileService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
