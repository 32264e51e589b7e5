package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yardbook/capacity-service/internal/models"
	"github.com/yardbook/capacity-service/internal/service"
)

type fakeQuerier struct {
	got    service.QueryInput
	result map[string][]models.AvailabilityEntry
	err    error
}

func (f *fakeQuerier) Query(_ context.Context, in service.QueryInput) (map[string][]models.AvailabilityEntry, error) {
	f.got = in
	return f.result, f.err
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/availability/query", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestAvailabilityQuery_OK(t *testing.T) {
	fake := &fakeQuerier{
		result: map[string][]models.AvailabilityEntry{
			"2025-06-10": {{ProductTypeID: 1, RequestedQty: 5, Remaining: 20, State: models.DayStateAvailable}},
		},
	}
	h := NewAvailabilityHandler(fake, 60)

	rec := postJSON(t, h.Query, QueryAvailabilityRequest{
		Goods:     []goodsDTO{{ProductTypeID: 1, Quantity: 5}},
		StartDate: "2025-06-10",
		EndDate:   "2025-06-10",
		Supplier:  "acme",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp QueryAvailabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Error("Success = false, want true")
	}
	if len(resp.Availability["2025-06-10"]) != 1 {
		t.Errorf("availability entries = %d, want 1", len(resp.Availability["2025-06-10"]))
	}
	if fake.got.Supplier != "acme" {
		t.Errorf("supplier passed through = %q, want acme", fake.got.Supplier)
	}
}

func TestAvailabilityQuery_DefaultsToHorizon(t *testing.T) {
	fake := &fakeQuerier{result: map[string][]models.AvailabilityEntry{}}
	h := NewAvailabilityHandler(fake, 60)

	rec := postJSON(t, h.Query, QueryAvailabilityRequest{
		Goods: []goodsDTO{{ProductTypeID: 1, Quantity: 5}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := int(fake.got.End.Sub(fake.got.Start).Hours() / 24); got != 60 {
		t.Errorf("defaulted range = %d days, want 60", got)
	}
}

func TestAvailabilityQuery_BadRequests(t *testing.T) {
	h := NewAvailabilityHandler(&fakeQuerier{}, 60)

	cases := []struct {
		name string
		body QueryAvailabilityRequest
	}{
		{"no goods", QueryAvailabilityRequest{StartDate: "2025-06-10"}},
		{"bad date", QueryAvailabilityRequest{Goods: []goodsDTO{{ProductTypeID: 1, Quantity: 1}}, StartDate: "10/06/2025"}},
		{"zero quantity", QueryAvailabilityRequest{Goods: []goodsDTO{{ProductTypeID: 1}}}},
		{"inverted range", QueryAvailabilityRequest{
			Goods: []goodsDTO{{ProductTypeID: 1, Quantity: 1}}, StartDate: "2025-06-12", EndDate: "2025-06-10",
		}},
		{"bad exclude id", QueryAvailabilityRequest{
			Goods: []goodsDTO{{ProductTypeID: 1, Quantity: 1}}, ExcludeBookingID: "not-a-uuid",
		}},
	}
	for _, c := range cases {
		if rec := postJSON(t, h.Query, c.body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", c.name, rec.Code)
		}
	}
}

func TestAvailabilityQuery_FailsClosedOnDataSourceError(t *testing.T) {
	fake := &fakeQuerier{
		result: map[string][]models.AvailabilityEntry{
			"2025-06-10": {{ProductTypeID: 1, State: models.DayStateUnavailable, Message: models.MsgDataSourceUnavailable}},
		},
		err: fmt.Errorf("%w: db gone", service.ErrDataSourceUnavailable),
	}
	h := NewAvailabilityHandler(fake, 60)

	rec := postJSON(t, h.Query, QueryAvailabilityRequest{
		Goods:     []goodsDTO{{ProductTypeID: 1, Quantity: 1}},
		StartDate: "2025-06-10",
		EndDate:   "2025-06-10",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp QueryAvailabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Error("Success must be false on data source failure")
	}
	for _, entries := range resp.Availability {
		for _, e := range entries {
			if e.State == models.DayStateAvailable {
				t.Error("fetch failure must never surface an available date")
			}
		}
	}
}
