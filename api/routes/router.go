package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medimandi/medimandi-backend/api/controllers"
	"github.com/medimandi/medimandi-backend/api/middleware"
	auctionsvc "github.com/medimandi/medimandi-backend/internal/auction"
	catalogsvc "github.com/medimandi/medimandi-backend/internal/catalog"
	reconcilesvc "github.com/medimandi/medimandi-backend/internal/reconcile"
	settlementsvc "github.com/medimandi/medimandi-backend/internal/settlement"
	"github.com/medimandi/medimandi-backend/pkg/config"
	"github.com/medimandi/medimandi-backend/pkg/enums"
	"github.com/medimandi/medimandi-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	Health     map[string]controllers.Pinger
	Catalog    catalogsvc.Service
	Reconcile  reconcilesvc.Service
	Auction    auctionsvc.Service
	Settlement settlementsvc.Service
	Metrics    http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health))
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/v1/catalog", func(r chi.Router) {
			r.Get("/search", controllers.CatalogSearch(deps.Catalog, logg))
			r.Get("/products/{productId}", controllers.CatalogProduct(deps.Catalog, logg))
		})

		r.Route("/v1/distributor", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleDistributor), logg))
			r.Post("/inventory/uploads", controllers.DistributorInventoryUpload(deps.Reconcile, logg))
		})

		r.Route("/v1/retailer", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleRetailer), logg))
			r.Route("/bid-requests", func(r chi.Router) {
				r.Post("/", controllers.RetailerCreateBidRequests(deps.Auction, logg))
				r.Get("/", controllers.RetailerListBidRequests(deps.Auction, logg))
				r.Delete("/{requestId}", controllers.RetailerCancelBidRequest(deps.Auction, logg))
			})
			r.Post("/bids/{bidId}/accept", controllers.RetailerAcceptBid(deps.Settlement, logg))
			r.Get("/orders", controllers.RetailerListOrders(deps.Settlement, logg))
		})

		r.Route("/v1/wholesaler", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleWholesaler), logg))
			r.Get("/bid-requests/open", controllers.WholesalerOpenBidRequests(deps.Auction, logg))
			r.Route("/bids", func(r chi.Router) {
				r.Post("/", controllers.WholesalerSubmitBid(deps.Auction, logg))
				r.Get("/", controllers.WholesalerListBids(deps.Auction, logg))
				r.Delete("/{bidId}", controllers.WholesalerCancelBid(deps.Auction, logg))
			})
			r.Get("/buckets", controllers.WholesalerListBuckets(deps.Settlement, logg))
			r.Post("/buckets/{bucketId}/close", controllers.WholesalerCloseBucket(deps.Settlement, logg))
		})

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))
			r.Get("/bid-requests", controllers.AdminListBidRequests(deps.Auction, logg))
			r.Post("/sweeps/bid-requests", controllers.AdminSweepBidRequests(deps.Auction, logg))
		})
	})

	return r
}
