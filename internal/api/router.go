package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/yardbook/capacity-service/internal/api/handlers"
	"github.com/yardbook/capacity-service/internal/availability"
	"github.com/yardbook/capacity-service/internal/notify"
	"github.com/yardbook/capacity-service/internal/repository"
	"github.com/yardbook/capacity-service/internal/service"
	"github.com/yardbook/capacity-service/pkg/config"
)

// NewRouter builds the HTTP router for the capacity service, wiring repos
// and services behind the handlers.
func NewRouter(db *sql.DB, cfg *config.Config, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	catalogRepo := repository.NewCatalogRepo(db)
	scheduleRepo := repository.NewScheduleRepo(db)
	supplierRepo := repository.NewSupplierRuleRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	calc := availability.NewCalculator(availability.Policy{
		ClosedWeekdays: cfg.Booking.ClosedWeekdays,
		HorizonDays:    cfg.Booking.HorizonDays,
	})

	availabilitySvc := service.NewAvailabilityService(calc, catalogRepo, supplierRepo, scheduleRepo, bookingRepo, log)
	bookingSvc := service.NewBookingService(db, calc, catalogRepo, supplierRepo, scheduleRepo, bookingRepo, log)
	mailer := notify.NewSupplierMailer(cfg.Mail, log)

	availabilityHandler := handlers.NewAvailabilityHandler(availabilitySvc, cfg.Booking.HorizonDays)
	bookingHandler := handlers.NewBookingHandler(bookingSvc)
	adminHandler := handlers.NewAdminHandler(catalogRepo, scheduleRepo, supplierRepo, mailer, availabilitySvc, log)

	// Shared availability query: admin calendar, supplier calendar and the
	// reschedule dialog all go through this one endpoint.
	r.Post("/availability/query", availabilityHandler.Query)

	// Booking lifecycle
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", bookingHandler.Create)
		r.Post("/{id}/reschedule", bookingHandler.Reschedule)
		r.Post("/{id}/confirm", bookingHandler.Confirm)
		r.Post("/{id}/cancel", bookingHandler.Cancel)
	})

	// Admin capacity configuration
	r.Route("/admin", func(r chi.Router) {
		r.Post("/product-types", adminHandler.CreateProductType)
		r.Get("/product-types", adminHandler.ListProductTypes)
		r.Put("/product-types/{id}", adminHandler.UpdateProductType)
		r.Put("/schedules/{isoweek}", adminHandler.UpsertSchedule)
		r.Get("/schedules/{isoweek}", adminHandler.GetSchedule)
		r.Post("/supplier-rules", adminHandler.CreateSupplierRule)
		r.Get("/supplier-rules", adminHandler.ListSupplierRules)
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
