package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/safar/cod-checkout/internal/metrics"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	pipeline Pipeline
	db       *sql.DB
	log      logrus.FieldLogger
}

func NewHandler(pipeline Pipeline, db *sql.DB, log logrus.FieldLogger) *Handler {
	return &Handler{
		pipeline: pipeline,
		db:       db,
		log:      log.WithField("component", "http"),
	}
}

func NewRouter(h *Handler, m *metrics.Metrics, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: h.log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(instrument(m))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout", h.Checkout)

		r.Route("/order", func(r chi.Router) {
			r.Post("/confirm", h.Confirm)
			r.Post("/finalize", h.Finalize)
			r.Get("/{id}", h.GetOrder)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Get("/{id}/orders", h.ListUserOrders)
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", h.CreateProduct)
			r.Get("/", h.ListProducts)
			r.Get("/{id}", h.GetProduct)
		})

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", h.CreateCart)
			r.Get("/{id}", h.GetCart)
			r.Post("/{id}/items", h.AddCartItem)
			r.Patch("/{id}/items/{itemId}", h.UpdateCartItem)
			r.Delete("/{id}/items/{itemId}", h.RemoveCartItem)
		})
	})

	return r
}

// instrument records request counts and latency labelled by route pattern,
// which keeps ids out of the label set.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}
