package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jarafer/armatutienda-backend/api/controllers"
	webhookcontrollers "github.com/jarafer/armatutienda-backend/api/controllers/webhooks"
	"github.com/jarafer/armatutienda-backend/api/middleware"
	"github.com/jarafer/armatutienda-backend/internal/media"
	"github.com/jarafer/armatutienda-backend/internal/mirror"
	"github.com/jarafer/armatutienda-backend/internal/orders"
	"github.com/jarafer/armatutienda-backend/internal/payments"
	products "github.com/jarafer/armatutienda-backend/internal/products"
	"github.com/jarafer/armatutienda-backend/internal/reconcile"
	"github.com/jarafer/armatutienda-backend/internal/sellers"
	"github.com/jarafer/armatutienda-backend/pkg/config"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/redis"
)

// Deps carries everything the router mounts. Optional dependencies
// (mirror hosting, metrics gatherer) are wired by main and may be off.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Pingers  map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
	Limiter  *redis.Client

	Sellers      sellers.Service
	SellersRepo  *sellers.Repository
	Products     products.Service
	ProductsRepo *products.Repository
	Orders       orders.Service
	Payments     payments.Service
	Media        media.Service
	Mirror       mirror.Service
	Reconciler   reconcile.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Pingers))
	})

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/webhooks", func(r chi.Router) {
		r.Post("/mercadopago", webhookcontrollers.MercadoPagoWebhook(d.Reconciler, logg))
	})

	r.Route("/api/sellers", func(r chi.Router) {
		registerThrottle := passthrough
		loginThrottle := passthrough
		if d.Limiter != nil {
			registerThrottle = middleware.LoginThrottle(middleware.LoginThrottlePolicy{
				Surface: "register",
				Window:  time.Minute,
				IPLimit: 5,
			}, d.Limiter, logg)
			loginThrottle = middleware.LoginThrottle(middleware.LoginThrottlePolicy{
				Surface:    "login",
				Window:     time.Minute,
				IPLimit:    20,
				EmailLimit: 5,
			}, d.Limiter, logg)
		}

		r.With(registerThrottle).Post("/register", controllers.SellerRegister(d.Sellers, logg))
		r.With(loginThrottle).Post("/login", controllers.SellerLogin(d.Sellers, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.SellerAuth(cfg.JWT, logg))
			r.Get("/me", controllers.SellerMe(d.Sellers, logg))
			r.Get("/me/orders", controllers.OrderList(d.Orders, logg))
			r.Put("/me/config", controllers.SellerUpdateConfig(d.Sellers, logg))
			r.Put("/me/credentials", controllers.SellerSetCredentials(d.Sellers, logg))
		})
	})

	// Public storefront surface: anonymous buyers browse the catalog,
	// start a checkout and poll their order by reference.
	r.Get("/api/catalog/{sellerID}", controllers.CatalogList(d.Products, logg))
	r.Post("/api/checkout/{sellerID}", controllers.CheckoutCreate(d.Payments, logg))
	r.Get("/api/orders/{reference}", controllers.OrderGet(d.Orders, logg))

	r.Route("/api/products", func(r chi.Router) {
		r.Use(middleware.SellerAuth(cfg.JWT, logg))
		r.Get("/", controllers.ProductList(d.Products, logg))
		r.Post("/", controllers.ProductPublish(d.Products, logg))
		r.Post("/bulk", controllers.ProductBulkPublish(d.Products, logg))
		r.Get("/{productID}", controllers.ProductGet(d.Products, logg))
		r.Patch("/{productID}", controllers.ProductEdit(d.Products, logg))
		r.Delete("/{productID}", controllers.ProductDelete(d.Products, logg))
	})

	r.Route("/api/media", func(r chi.Router) {
		r.Use(middleware.SellerAuth(cfg.JWT, logg))
		r.Get("/", controllers.MediaList(d.Media, logg))
		r.Post("/", controllers.MediaUpload(d.Media, cfg.Media, logg))
		r.Delete("/", controllers.MediaDelete(d.Media, logg))
	})

	r.Route("/api/site", func(r chi.Router) {
		r.Get("/{sellerID}", controllers.SitePreview(d.SellersRepo, d.ProductsRepo, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.SellerAuth(cfg.JWT, logg))
			r.Get("/download", controllers.SiteDownload(d.SellersRepo, d.ProductsRepo, logg))
			r.Post("/publish", controllers.SiteMirror(d.Mirror, d.SellersRepo, d.ProductsRepo, logg))
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler { return next }
