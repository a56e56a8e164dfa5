package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/sorbeteslab/sorbetes-backend/api/controllers"
	"github.com/sorbeteslab/sorbetes-backend/api/middleware"
	"github.com/sorbeteslab/sorbetes-backend/internal/availability"
	"github.com/sorbeteslab/sorbetes-backend/internal/orders"
	"github.com/sorbeteslab/sorbetes-backend/internal/payments"
	"github.com/sorbeteslab/sorbetes-backend/internal/reservation"
	"github.com/sorbeteslab/sorbetes-backend/pkg/config"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config             *config.Config
	Logger             *logger.Logger
	DB                 controllers.Pinger
	Redis              controllers.Pinger
	AvailabilitySvc    availability.Service
	ReservationSvc     reservation.Service
	OrdersSvc          orders.Service
	PaymentsSvc        payments.Service
	DefaultDeliveryFee decimal.Decimal
	MetricsGatherer    prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	logg := p.Logger

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, logg, map[string]controllers.Pinger{
			"database": p.DB,
			"redis":    p.Redis,
		}))
	})

	if p.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/availability/{vendorId}/{date}", controllers.DayAvailability(p.AvailabilitySvc, logg))
		r.Post("/reservations/validate", controllers.ValidateReservation(p.ReservationSvc, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(p.OrdersSvc, p.DefaultDeliveryFee, logg))
			r.Get("/", controllers.ListOrders(p.OrdersSvc, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(p.OrdersSvc, logg))
				r.Post("/cancel", controllers.CancelOrder(p.OrdersSvc, logg))
				r.Post("/decision", controllers.VendorOrderDecision(p.OrdersSvc, logg))
				r.Get("/channels", controllers.PaymentChannels(p.PaymentsSvc, logg))
				r.Post("/payments", controllers.SubmitPayment(p.PaymentsSvc, logg))
				r.Post("/payments/{attemptId}/review", controllers.ReviewPayment(p.PaymentsSvc, logg))
				r.Post("/remaining-balance", controllers.SubmitRemainingBalance(p.PaymentsSvc, logg))
			})
		})
	})

	return r
}
