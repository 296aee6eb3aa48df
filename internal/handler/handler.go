package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/auth"
	"github.com/xenking/hungrypanda/internal/domain/cart"
	"github.com/xenking/hungrypanda/internal/domain/catalog"
	"github.com/xenking/hungrypanda/internal/domain/console"
	"github.com/xenking/hungrypanda/internal/domain/order"
)

// Config holds non-dependency settings of the Handler.
type Config struct {
	// PublicBaseURL is the customer-facing site; order QR codes link to
	// PublicBaseURL + "/orders/{id}".
	PublicBaseURL string
}

// Handler serves the /api routes, delegating to the domain services.
type Handler struct {
	catalog *catalog.Service
	carts   *cart.Manager
	orders  *order.Service
	stats   console.StatsSource

	publicBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	catalogService *catalog.Service,
	carts *cart.Manager,
	orders *order.Service,
	stats console.StatsSource,
) *Handler {
	return &Handler{
		catalog:       catalogService,
		carts:         carts,
		orders:        orders,
		stats:         stats,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// Register adds the API routes to r. Routes with a literal segment are
// registered before their {id} siblings.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/restaurants", h.listRestaurants).Methods(http.MethodGet)
	api.HandleFunc("/restaurants/{id}", h.getRestaurant).Methods(http.MethodGet)
	api.HandleFunc("/menu-items", h.listMenuItems).Methods(http.MethodGet)
	api.HandleFunc("/menu-items/categories", h.listCategories).Methods(http.MethodGet)
	api.HandleFunc("/menu-items/{id}", h.getMenuItem).Methods(http.MethodGet)

	api.HandleFunc("/cart", h.getCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", h.clearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items", h.addCartItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id}", h.updateCartItem).Methods(http.MethodPatch)
	api.HandleFunc("/cart/items/{id}", h.removeCartItem).Methods(http.MethodDelete)
	api.HandleFunc("/cart/checkout", h.checkout).Methods(http.MethodPost)

	api.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/qr", h.orderQR).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", h.updateOrderStatus).Methods(http.MethodPatch)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(adminOnly)
	admin.HandleFunc("/dashboard", h.dashboard).Methods(http.MethodGet)
	admin.HandleFunc("/orders", h.consoleOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/bulk-status", h.bulkStatus).Methods(http.MethodPost)
	admin.HandleFunc("/orders/export", h.exportOrders).Methods(http.MethodGet)
	admin.HandleFunc("/restaurants", h.createRestaurant).Methods(http.MethodPost)
	admin.HandleFunc("/restaurants/{id}", h.updateRestaurant).Methods(http.MethodPut)
	admin.HandleFunc("/restaurants/{id}", h.deleteRestaurant).Methods(http.MethodDelete)
	admin.HandleFunc("/menu-items", h.createMenuItem).Methods(http.MethodPost)
	admin.HandleFunc("/menu-items/{id}", h.updateMenuItem).Methods(http.MethodPut)
	admin.HandleFunc("/menu-items/{id}", h.deleteMenuItem).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apperr.NotFound("route", r.URL.Path))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, problem{
			code:    "method_not_allowed",
			message: r.Method + " is not supported on " + r.URL.Path,
		}.encode)
	})
}

// adminOnly rejects non-admin callers before the body is read. The domain
// services check the role again.
func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.RequireAdmin(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}
