package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yardbook/capacity-service/internal/availability"
	"github.com/yardbook/capacity-service/internal/models"
	"github.com/yardbook/capacity-service/internal/service"
)

// AvailabilityQuerier is the slice of the availability service the handler
// needs (interface to allow mocking).
type AvailabilityQuerier interface {
	Query(ctx context.Context, in service.QueryInput) (map[string][]models.AvailabilityEntry, error)
}

type AvailabilityHandler struct {
	service AvailabilityQuerier
	horizon int
}

func NewAvailabilityHandler(svc AvailabilityQuerier, horizonDays int) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc, horizon: horizonDays}
}

// --- Request / Response DTOs ---

type QueryAvailabilityRequest struct {
	Goods            []goodsDTO `json:"goods"`
	StartDate        string     `json:"start_date,omitempty"`
	EndDate          string     `json:"end_date,omitempty"`
	Supplier         string     `json:"supplier,omitempty"`
	ExcludeBookingID string     `json:"exclude_booking_id,omitempty"`
}

type QueryAvailabilityResponse struct {
	Success      bool                                  `json:"success"`
	Availability map[string][]models.AvailabilityEntry `json:"availability"`
	Error        string                                `json:"error,omitempty"`
}

// Query handles POST /availability/query. All three calendar views (admin,
// supplier, reschedule dialog) go through here so their verdicts never drift.
func (h *AvailabilityHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if len(req.Goods) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "goods required"})
		return
	}

	start, err := parseDateOrEmpty(req.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date; use YYYY-MM-DD"})
		return
	}
	end, err := parseDateOrEmpty(req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date; use YYYY-MM-DD"})
		return
	}

	// missing range defaults to the booking horizon from today
	today := models.Midnight(time.Now().UTC())
	if start == nil {
		start = &today
	}
	if end == nil {
		e := start.AddDate(0, 0, h.horizon)
		end = &e
	}
	if end.Before(*start) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date before start_date"})
		return
	}

	in := service.QueryInput{
		Start:    *start,
		End:      *end,
		Supplier: req.Supplier,
	}
	for _, g := range req.Goods {
		if g.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
			return
		}
		in.Goods = append(in.Goods, availability.GoodsRequest{
			ProductTypeID: g.ProductTypeID,
			Quantity:      g.Quantity,
		})
	}
	if req.ExcludeBookingID != "" {
		id, err := uuid.Parse(req.ExcludeBookingID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid exclude_booking_id"})
			return
		}
		in.ExcludeBookingID = id
	}

	verdicts, err := h.service.Query(r.Context(), in)
	if err != nil {
		// fail closed: the verdicts mark every date unavailable, and the
		// error keeps callers from reading silence as free capacity
		writeJSON(w, http.StatusServiceUnavailable, QueryAvailabilityResponse{
			Success:      false,
			Availability: verdicts,
			Error:        models.MsgDataSourceUnavailable,
		})
		return
	}

	writeJSON(w, http.StatusOK, QueryAvailabilityResponse{
		Success:      true,
		Availability: verdicts,
	})
}
