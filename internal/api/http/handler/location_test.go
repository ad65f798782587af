package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	locationService "location-tracking-core/internal/application/location"
	"location-tracking-core/internal/classify"
	"location-tracking-core/internal/infrastructure/memstore"
	"location-tracking-core/internal/worker"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memstore.NewLocationRepository()
	writer := worker.NewHistoryWriter(repo, nil, time.Hour)
	svc := locationService.NewService(
		repo, writer, nil,
		classify.New(classify.DefaultPolicy()),
		nil, nil, nil, nil,
	)

	h := NewLocationHandler(svc)
	engine := gin.New()
	engine.POST("/locations", h.Ingest)
	engine.GET("/devices/:id/locations", h.History)
	engine.GET("/devices/:id/locations/latest", h.Latest)
	return engine
}

func TestIngestAccepted(t *testing.T) {
	engine := newTestEngine(t)

	body := `{"device_id":"dev-1","coords":{"latitude":41.0,"longitude":29.0}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body: %s", w.Code, w.Body.String())
	}

	var result map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if result["queue_size"].(float64) < 1 {
		t.Errorf("queue_size = %v, want at least 1", result["queue_size"])
	}
	if result["quality"] == "" {
		t.Error("quality label missing from ingest response")
	}
}

func TestIngestAcceptsEquatorAndPrimeMeridian(t *testing.T) {
	engine := newTestEngine(t)

	bodies := []string{
		`{"device_id":"dev-eq","coords":{"latitude":0,"longitude":28.9784}}`,
		`{"device_id":"dev-mer","coords":{"latitude":51.4779,"longitude":0}}`,
	}
	for _, body := range bodies {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		if w.Code != http.StatusAccepted {
			t.Errorf("status = %d, want 202 for %s, body: %s", w.Code, body, w.Body.String())
		}
	}
}

func TestIngestRejectionsCarryCodes(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing device", `{"coords":{"latitude":41.0,"longitude":29.0}}`, "MISSING_DEVICE_ID"},
		{"missing coords", `{"device_id":"dev-1"}`, "MISSING_COORDINATES"},
		{"out of range", `{"device_id":"dev-1","coords":{"latitude":95.0,"longitude":29.0}}`, "COORDINATES_OUT_OF_RANGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			engine.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}

			var resp map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if resp["code"] != tt.code {
				t.Errorf("code = %v, want %s", resp["code"], tt.code)
			}
		})
	}
}

func TestLatestUnknownDeviceIs404(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/devices/ghost/locations/latest", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHistoryPageLimitClamped(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/devices/dev-1/locations?limit=2000", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Pagination struct {
			Limit int `json:"limit"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Pagination.Limit != 500 {
		t.Errorf("limit = %d, want clamped to 500 on the free plan", resp.Pagination.Limit)
	}
}
