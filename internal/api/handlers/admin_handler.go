package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/yardbook/capacity-service/internal/models"
)

// Admin-facing persistence and notification collaborators.
type CatalogStore interface {
	ListProductTypes(ctx context.Context) ([]models.ProductType, error)
	GetProductType(ctx context.Context, id int) (*models.ProductType, error)
	CreateProductType(ctx context.Context, pt *models.ProductType) error
	UpdateProductType(ctx context.Context, pt *models.ProductType) error
}

type ScheduleStore interface {
	GetWeek(ctx context.Context, isoWeek string) (*models.DeliverySchedule, error)
	UpsertWeek(ctx context.Context, s *models.DeliverySchedule) error
}

type SupplierRuleStore interface {
	List(ctx context.Context) ([]models.SupplierRule, error)
	Create(ctx context.Context, rule *models.SupplierRule) error
}

type ReservationNotifier interface {
	NotifyReservation(ctx context.Context, rule models.SupplierRule) error
}

// CatalogInvalidator lets admin writes drop the availability service's
// cached catalog.
type CatalogInvalidator interface {
	InvalidateCatalog()
}

type AdminHandler struct {
	catalog   CatalogStore
	schedules ScheduleStore
	rules     SupplierRuleStore
	notifier  ReservationNotifier
	cache     CatalogInvalidator
	log       *logrus.Logger
}

func NewAdminHandler(
	catalog CatalogStore,
	schedules ScheduleStore,
	rules SupplierRuleStore,
	notifier ReservationNotifier,
	cache CatalogInvalidator,
	log *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		catalog:   catalog,
		schedules: schedules,
		rules:     rules,
		notifier:  notifier,
		cache:     cache,
		log:       log,
	}
}

// --- Request / Response DTOs ---

type CreateProductTypeRequest struct {
	Name          string `json:"name"`
	DailyCapacity int    `json:"daily_capacity"`
	TolerancePct  int    `json:"tolerance_pct"`
}

type productTypeDTO struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	DailyCapacity int    `json:"daily_capacity"`
	TolerancePct  int    `json:"tolerance_pct"`
}

type scheduleDayDTO struct {
	Date     string `json:"date"`
	Capacity int    `json:"capacity"`
	IsSaved  bool   `json:"is_saved"`
}

type UpsertScheduleRequest struct {
	TotalCapacity int              `json:"total_capacity"`
	Days          []scheduleDayDTO `json:"days"`
}

type scheduleResponse struct {
	ISOWeek       string           `json:"iso_week"`
	TotalCapacity int              `json:"total_capacity"`
	Days          []scheduleDayDTO `json:"days"`
	// Warning flags a day-sum/total mismatch; it never blocks the write.
	Warning string `json:"warning,omitempty"`
}

type CreateSupplierRuleRequest struct {
	SupplierName      string `json:"supplier_name"`
	Weekday           string `json:"weekday"`
	AllocatedCapacity int    `json:"allocated_capacity"`
	TolerancePct      int    `json:"tolerance_pct"`
	DeliveryEmail     string `json:"delivery_email"`
}

type supplierRuleDTO struct {
	ID                int    `json:"id"`
	SupplierName      string `json:"supplier_name"`
	Weekday           string `json:"weekday"`
	AllocatedCapacity int    `json:"allocated_capacity"`
	TolerancePct      int    `json:"tolerance_pct"`
	DeliveryEmail     string `json:"delivery_email"`
}

// --- Product types ---

func (h *AdminHandler) CreateProductType(w http.ResponseWriter, r *http.Request) {
	var req CreateProductTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if req.Name == "" || req.DailyCapacity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and daily_capacity required"})
		return
	}
	if req.TolerancePct < 0 || req.TolerancePct > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tolerance_pct must be 0-100"})
		return
	}

	pt := models.ProductType{
		Name:          req.Name,
		DailyCapacity: req.DailyCapacity,
		TolerancePct:  req.TolerancePct,
	}
	if err := h.catalog.CreateProductType(r.Context(), &pt); err != nil {
		h.log.WithError(err).Error("create product type failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed_create_product_type"})
		return
	}
	h.cache.InvalidateCatalog()

	writeJSON(w, http.StatusCreated, productTypeDTO{
		ID: pt.ID, Name: pt.Name, DailyCapacity: pt.DailyCapacity, TolerancePct: pt.TolerancePct,
	})
}

// UpdateProductType handles PUT /admin/product-types/{id}. Capacity and
// tolerance changes apply to future availability queries immediately; they
// never rewrite existing bookings.
func (h *AdminHandler) UpdateProductType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product type id"})
		return
	}

	var req CreateProductTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if req.Name == "" || req.DailyCapacity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and daily_capacity required"})
		return
	}
	if req.TolerancePct < 0 || req.TolerancePct > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tolerance_pct must be 0-100"})
		return
	}

	existing, err := h.catalog.GetProductType(r.Context(), id)
	if err != nil {
		h.log.WithError(err).Error("get product type failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed_get_product_type"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product_type_not_found"})
		return
	}

	existing.Name = req.Name
	existing.DailyCapacity = req.DailyCapacity
	existing.TolerancePct = req.TolerancePct
	if err := h.catalog.UpdateProductType(r.Context(), existing); err != nil {
		h.log.WithError(err).Error("update product type failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed_update_product_type"})
		return
	}
	h.cache.InvalidateCatalog()

	writeJSON(w, http.StatusOK, productTypeDTO{
		ID: existing.ID, Name: existing.Name, DailyCapacity: existing.DailyCapacity, TolerancePct: existing.TolerancePct,
	})
}

func (h *AdminHandler) ListProductTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.ListProductTypes(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list product types failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed_list_product_types"})
		return
	}

	out := make([]productTypeDTO, 0, len(types))
	for _, pt := range types {
		out = append(out, productTypeDTO{
			ID: pt.ID, Name: pt.Name, DailyCapacity: pt.DailyCapacity, TolerancePct: pt.TolerancePct,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"product_types": out})
}

// --- Delivery schedules ---

// UpsertSchedule handles PUT /admin/schedules/{isoweek}. A mismatch between
// the weekly total and the sum of day capacities is reported as a warning,
// not an error.
func (h *AdminHandler) UpsertSchedule(w http.ResponseWriter, r *http.Request) {
	isoWeek := chi.URLParam(r, "isoweek")

	var req UpsertScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	s := models.DeliverySchedule{
		ISOWeek:       isoWeek,
		TotalCapacity: req.TotalCapacity,
	}
	for _, d := range req.Days {
		date, err := models.ParseDate(d.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid day date; use YYYY-MM-DD"})
			return
		}
		if models.ISOWeekKey(date) != isoWeek {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day outside schedule week"})
			return
		}
		s.Days = append(s.Days, models.ScheduleDay{Date: date, Capacity: d.Capacity, IsSaved: d.IsSaved})
	}

	if err := h.schedules.UpsertWeek(r.Context(), &s); err != nil {
		h.log.WithError(err).Error("upsert schedule failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed_upsert_schedule"})
		return
	}

	writeJSON(w, http.StatusOK, scheduleToResponse(&s))
}

func (h *AdminHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	isoWeek := chi.URLParam(r, "isoweek")

	s, err := h.schedules.GetWeek(r.Context(), isoWeek)
	if err != nil {
		h.log.WithError(err).Error("get schedule failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed_get_schedule"})
		return
	}
	if s == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "schedule_not_found"})
		return
	}
	writeJSON(w, http.StatusOK, scheduleToResponse(s))
}

func scheduleToResponse(s *models.DeliverySchedule) scheduleResponse {
	resp := scheduleResponse{
		ISOWeek:       s.ISOWeek,
		TotalCapacity: s.TotalCapacity,
	}
	for _, d := range s.Days {
		resp.Days = append(resp.Days, scheduleDayDTO{
			Date:     models.DateKey(d.Date),
			Capacity: d.Capacity,
			IsSaved:  d.IsSaved,
		})
	}
	if sum := s.DaySum(); sum != s.TotalCapacity {
		resp.Warning = "day capacities do not add up to the weekly total"
	}
	return resp
}

// --- Supplier rules ---

func (h *AdminHandler) CreateSupplierRule(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if req.SupplierName == "" || req.AllocatedCapacity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "supplier_name and allocated_capacity required"})
		return
	}
	weekday, ok := parseWeekday(req.Weekday)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid weekday"})
		return
	}

	rule := models.SupplierRule{
		SupplierName:      req.SupplierName,
		Weekday:           weekday,
		AllocatedCapacity: req.AllocatedCapacity,
		TolerancePct:      req.TolerancePct,
		DeliveryEmail:     req.DeliveryEmail,
	}
	if err := h.rules.Create(r.Context(), &rule); err != nil {
		h.log.WithError(err).Error("create supplier rule failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed_create_supplier_rule"})
		return
	}
	h.cache.InvalidateCatalog()

	// the supplier is asked to confirm the slot; a mail failure must not
	// roll the rule back
	if err := h.notifier.NotifyReservation(r.Context(), rule); err != nil {
		h.log.WithError(err).WithField("rule_id", rule.ID).Warn("supplier notification failed")
	}

	writeJSON(w, http.StatusCreated, ruleToDTO(rule))
}

func (h *AdminHandler) ListSupplierRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list supplier rules failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed_list_supplier_rules"})
		return
	}

	out := make([]supplierRuleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleToDTO(rule))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"supplier_rules": out})
}

func ruleToDTO(rule models.SupplierRule) supplierRuleDTO {
	return supplierRuleDTO{
		ID:                rule.ID,
		SupplierName:      rule.SupplierName,
		Weekday:           rule.Weekday.String(),
		AllocatedCapacity: rule.AllocatedCapacity,
		TolerancePct:      rule.TolerancePct,
		DeliveryEmail:     rule.DeliveryEmail,
	}
}

func parseWeekday(s string) (time.Weekday, bool) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(s, wd.String()) {
			return wd, true
		}
	}
	return 0, false
}
