// Package httpapi — REST-интерфейс сервиса чеков.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/service/order"
	"github.com/vladislavdragonenkov/checks/internal/service/registry"
)

// Server связывает HTTP-маршруты с сервисным слоем.
type Server struct {
	orders   *order.Service
	registry *registry.Service
	printers domain.PrinterRepository
	media    domain.ArtifactStore
	logger   *log.Entry
}

// NewServer создаёт HTTP-сервер поверх сервисов.
func NewServer(orders *order.Service, reg *registry.Service, printers domain.PrinterRepository, media domain.ArtifactStore, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}

	return &Server{
		orders:   orders,
		registry: reg,
		printers: printers,
		media:    media,
		logger:   logger,
	}
}

// Routes собирает роутер со всеми эндпоинтами сервиса.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/orders", s.createOrder)

		r.Route("/merchant-points", func(r chi.Router) {
			r.Get("/", s.listMerchantPoints)
			r.Post("/", s.createMerchantPoint)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getMerchantPoint)
				r.Put("/", s.updateMerchantPoint)
				r.Delete("/", s.deleteMerchantPoint)
			})
		})

		r.Route("/printers", func(r chi.Router) {
			r.Get("/", s.listPrinters)
			r.Post("/", s.createPrinter)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getPrinter)
				r.Put("/", s.updatePrinter)
				r.Delete("/", s.deletePrinter)
			})
		})

		r.Route("/checks", func(r chi.Router) {
			r.Get("/", s.listChecks)
			r.Post("/", s.createCheck)
			r.Get("/for-print/{apiKey}", s.listChecksForPrint)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getCheck)
				r.Patch("/", s.advanceCheckStatus)
				r.Delete("/", s.deleteCheck)
			})
		})
	})

	r.Get("/media/{name}", s.downloadMedia)

	return r
}

// logRequests пишет access-лог в стиле structured logging.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(started),
		}).Debug("http request")
	})
}
