package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yardbook/capacity-service/internal/models"
	"github.com/yardbook/capacity-service/internal/service"
)

// BookingCommitter is the slice of the booking service the handler needs.
type BookingCommitter interface {
	Commit(ctx context.Context, req service.CommitRequest) (*models.Booking, error)
	Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time) (*models.Booking, error)
	Confirm(ctx context.Context, id uuid.UUID, forceOverride bool) (*models.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Booking, error)
}

type BookingHandler struct {
	service BookingCommitter
}

func NewBookingHandler(svc BookingCommitter) *BookingHandler {
	return &BookingHandler{service: svc}
}

// --- Request DTOs ---

type CreateBookingRequest struct {
	Date     string     `json:"date"`
	Goods    []goodsDTO `json:"goods"`
	Supplier string     `json:"supplier,omitempty"`
	YardID   int        `json:"yard_id"`
}

type RescheduleRequest struct {
	Date string `json:"date"`
}

type ConfirmRequest struct {
	ForceOverride bool `json:"force_override,omitempty"`
}

// --- Handlers ---

// Create handles POST /bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	date, err := models.ParseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date; use YYYY-MM-DD"})
		return
	}
	if len(req.Goods) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "goods required"})
		return
	}

	commit := service.CommitRequest{
		Date:     date,
		Supplier: req.Supplier,
		YardID:   req.YardID,
	}
	for _, g := range req.Goods {
		if g.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
			return
		}
		commit.Goods = append(commit.Goods, models.Goods{
			ProductTypeID:   g.ProductTypeID,
			Quantity:        g.Quantity,
			NumberOfPallets: g.NumberOfPallets,
		})
	}

	booking, err := h.service.Commit(r.Context(), commit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"booking": toBookingDTO(booking)})
}

// Reschedule handles POST /bookings/{id}/reschedule.
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date; use YYYY-MM-DD"})
		return
	}

	booking, err := h.service.Reschedule(r.Context(), id, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"booking": toBookingDTO(booking)})
}

// Confirm handles POST /bookings/{id}/confirm.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	var req ConfirmRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
			return
		}
	}

	booking, err := h.service.Confirm(r.Context(), id, req.ForceOverride)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"booking": toBookingDTO(booking)})
}

// Cancel handles POST /bookings/{id}/cancel.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	booking, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"booking": toBookingDTO(booking)})
}

func (h *BookingHandler) bookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booking id"})
		return uuid.Nil, false
	}
	return id, true
}
