package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atinyakov/kidcoin/internal/models"
)

// fakeActivityLister implements ActivityLister for testing.
type fakeActivityLister struct {
	records   []models.ActivityRecord
	err       error
	lastLimit int
}

func (f *fakeActivityLister) Recent(_ context.Context, limit int) ([]models.ActivityRecord, error) {
	f.lastLimit = limit
	return f.records, f.err
}

func TestActivityHandler_Recent(t *testing.T) {
	lister := &fakeActivityLister{records: []models.ActivityRecord{
		{ID: 2, Text: "second"},
		{ID: 1, Text: "first"},
	}}
	h := &ActivityHandler{Service: lister}

	req := httptest.NewRequest(http.MethodGet, "/api/activity", nil)
	rr := httptest.NewRecorder()
	h.Recent(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if lister.lastLimit != defaultHistoryLimit {
		t.Errorf("expected default limit %d, got %d", defaultHistoryLimit, lister.lastLimit)
	}

	var records []models.ActivityRecord
	if err := json.NewDecoder(rr.Body).Decode(&records); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(records) != 2 || records[0].Text != "second" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestActivityHandler_LimitParsing(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", defaultHistoryLimit},
		{"?limit=10", 10},
		{"?limit=0", defaultHistoryLimit},
		{"?limit=-3", defaultHistoryLimit},
		{"?limit=junk", defaultHistoryLimit},
		{"?limit=9999", maxHistoryLimit},
	}
	for _, tt := range tests {
		lister := &fakeActivityLister{}
		h := &ActivityHandler{Service: lister}

		req := httptest.NewRequest(http.MethodGet, "/api/activity"+tt.query, nil)
		h.Recent(httptest.NewRecorder(), req)

		if lister.lastLimit != tt.want {
			t.Errorf("query %q: expected limit %d, got %d", tt.query, tt.want, lister.lastLimit)
		}
	}
}

func TestActivityHandler_EmptyHistory(t *testing.T) {
	h := &ActivityHandler{Service: &fakeActivityLister{}}

	rr := httptest.NewRecorder()
	h.Recent(rr, httptest.NewRequest(http.MethodGet, "/api/activity", nil))

	if got := rr.Body.String(); got != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", got)
	}
}

func TestActivityHandler_ServiceError(t *testing.T) {
	h := &ActivityHandler{Service: &fakeActivityLister{err: errors.New("db down")}}

	rr := httptest.NewRecorder()
	h.Recent(rr, httptest.NewRequest(http.MethodGet, "/api/activity", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
}
