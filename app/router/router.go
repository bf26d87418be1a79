package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"mymerch/app/controller"
	"mymerch/app/middleware"
)

type Controllers struct {
	Order   *controller.OrderController
	Preview *controller.PreviewController // nil when previews live in an external store
	Product *controller.ProductController // nil when no catalog feed is configured
}

// Options carries the router settings taken from configuration
type Options struct {
	CORSOrigins []string
	JWTSecret   string
	JWTIssuer   string
	Logger      *zap.Logger
}

// pingHandler handles GET /ping
func pingHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// SetupRoutes builds the HTTP handler for every endpoint
func SetupRoutes(controllers *Controllers, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Ping endpoint
	r.Get("/ping", pingHandler)

	r.Route("/api", func(r chi.Router) {
		// Customer order intake
		r.Post("/orders", controllers.Order.SubmitOrder)

		if controllers.Product != nil {
			r.Get("/products", controllers.Product.ListProducts)
			r.Get("/products/{id}", controllers.Product.GetProduct)
		}

		if controllers.Preview != nil {
			r.Get("/previews/{key}", controllers.Preview.ServePreview)
		}

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(opts.JWTSecret, opts.JWTIssuer, opts.Logger))
			r.Get("/orders", controllers.Order.ListOrders)
			r.Route("/orders/{id}", func(r chi.Router) {
				r.Get("/", controllers.Order.GetOrder)
				r.Patch("/status", controllers.Order.UpdateOrderStatus)
				r.Get("/proof", controllers.Order.GetOrderProof)
			})
		})
	})

	return r
}
