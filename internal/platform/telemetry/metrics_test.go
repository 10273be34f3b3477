package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/carehub/hms/internal/platform/apperr"
)

func TestObserveDispense(t *testing.T) {
	m := NewMetrics()

	m.ObserveDispense("admit", "success", 7, 20*time.Millisecond)
	m.ObserveDispense("dispense", "insufficient_stock", 4, 5*time.Millisecond)
	m.ObserveDispense("dispense", "success", 3, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.dispenseRequests.WithLabelValues("admit", "success")); got != 1 {
		t.Errorf("expected 1 admit success, got %v", got)
	}
	if got := testutil.ToFloat64(m.dispenseRequests.WithLabelValues("dispense", "insufficient_stock")); got != 1 {
		t.Errorf("expected 1 insufficient_stock, got %v", got)
	}
	if got := testutil.ToFloat64(m.dispensedUnits.WithLabelValues("dispense")); got != 3 {
		t.Errorf("expected failed calls not to count units, got %v", got)
	}
	if got := testutil.ToFloat64(m.dispensedUnits.WithLabelValues("admit")); got != 7 {
		t.Errorf("expected 7 admitted units, got %v", got)
	}
}

func TestMiddleware_CountsByRouteAndStatus(t *testing.T) {
	m := NewMetrics()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/patients/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return apperr.NotFound("Patient not found")
		}
		return c.String(http.StatusOK, "ok")
	})

	for _, id := range []string{"a", "b", "missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients/"+id, nil))
	}

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/patients/:id", "200")); got != 2 {
		t.Errorf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/patients/:id", "404")); got != 1 {
		t.Errorf("expected 1 not found request, got %v", got)
	}
}

func TestHandler_Exposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveDispense("admit", "success", 1, time.Millisecond)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/metrics", nil), rec)
	if err := m.Handler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `hms_dispense_requests_total{operation="admit",outcome="success"} 1`) {
		t.Errorf("expected dispense counter in exposition, got:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go runtime collector in exposition")
	}
}
