package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/yardbook/capacity-service/internal/models"
	"github.com/yardbook/capacity-service/internal/service"
)

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseDateOrEmpty(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := models.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var rej *service.Rejection
	switch {
	case errors.As(err, &rej):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":        "booking_rejected",
			"message":      rej.Message,
			"availability": rej.Entries,
		})
	case errors.Is(err, service.ErrBookingNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "booking_not_found"})
	case errors.Is(err, service.ErrConflictRetry):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":   models.MsgConflictRetry,
			"message": "another booking won the date, retry",
		})
	case errors.Is(err, service.ErrDataSourceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": models.MsgDataSourceUnavailable,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
	}
}

// --- Booking DTO shared by booking handlers ---

type goodsDTO struct {
	ProductTypeID   int `json:"product_type_id"`
	Quantity        int `json:"quantity"`
	NumberOfPallets int `json:"number_of_pallets,omitempty"`
}

type bookingDTO struct {
	ID              string     `json:"id"`
	BookingDate     string     `json:"booking_date"`
	Status          string     `json:"status"`
	YardID          int        `json:"yard_id"`
	Supplier        string     `json:"supplier,omitempty"`
	RescheduledFrom string     `json:"rescheduled_from,omitempty"`
	Goods           []goodsDTO `json:"goods"`
}

func toBookingDTO(b *models.Booking) bookingDTO {
	dto := bookingDTO{
		ID:          b.ID.String(),
		BookingDate: models.DateKey(b.BookingDate),
		Status:      string(b.Status),
		YardID:      b.YardID,
		Supplier:    b.SupplierName,
	}
	if b.RescheduledFrom != nil {
		dto.RescheduledFrom = models.DateKey(*b.RescheduledFrom)
	}
	for _, g := range b.Goods {
		dto.Goods = append(dto.Goods, goodsDTO{
			ProductTypeID:   g.ProductTypeID,
			Quantity:        g.Quantity,
			NumberOfPallets: g.NumberOfPallets,
		})
	}
	return dto
}
