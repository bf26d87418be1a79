package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"mymerch/catalog"
	"mymerch/logger"
	"mymerch/models"
)

// ProductSource is the read side of the product catalog
type ProductSource interface {
	Products(ctx context.Context) ([]catalog.Product, error)
	ProductByID(ctx context.Context, id string) (*catalog.Product, error)
}

// ProductController exposes the cached product feed to the editor
type ProductController struct {
	products ProductSource
	log      *zap.Logger
}

// NewProductController creates a new ProductController
func NewProductController(products ProductSource, log *zap.Logger) *ProductController {
	return &ProductController{products: products, log: logger.OrNop(log)}
}

// productResponse adds the views the editor can offer for each variant.
// Printable areas are limited to those views; they are informational only.
type productResponse struct {
	catalog.Product
	Views          map[string][]catalog.View     `json:"views"`
	PrintableAreas map[catalog.View]catalog.Rect `json:"printableAreas,omitempty"`
}

func toProductResponse(p catalog.Product) productResponse {
	views := make(map[string][]catalog.View, len(p.ColorVariants))
	areas := make(map[catalog.View]catalog.Rect)
	for _, v := range p.ColorVariants {
		views[v.ColorName] = p.AvailableViews(v)
		for _, view := range views[v.ColorName] {
			if r, ok := p.PrintableArea(view); ok {
				areas[view] = r
			}
		}
	}
	return productResponse{Product: p, Views: views, PrintableAreas: areas}
}

// ListProducts handles GET /api/products
func (c *ProductController) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := c.products.Products(r.Context())
	if err != nil {
		if models.IsTransport(err) {
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, models.ErrorResponse{Message: err.Error()})
			return
		}
		writeError(w, r, c.log, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	render.JSON(w, r, out)
}

// GetProduct handles GET /api/products/{id}
func (c *ProductController) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := c.products.ProductByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if models.IsTransport(err) {
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, models.ErrorResponse{Message: err.Error()})
			return
		}
		writeError(w, r, c.log, err)
		return
	}
	render.JSON(w, r, toProductResponse(*product))
}
