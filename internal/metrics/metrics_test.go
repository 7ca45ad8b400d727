package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JonMunkholm/leads/internal/core"
)

func TestObserveImport(t *testing.T) {
	m := New()

	m.ObserveImport("csv", &core.ImportResult{Created: 5, Failed: 1, Skipped: 2, Duration: time.Second}, nil)
	m.ObserveImport("csv", &core.ImportResult{Failed: 3}, core.ErrNothingImported)
	m.ObserveImport("sheet", nil, core.ErrTooManyImports)
	m.ObserveImport("sheet", nil, errors.New("boom"))

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"csv success", testutil.ToFloat64(m.imports.WithLabelValues("csv", OutcomeSuccess)), 1},
		{"csv empty", testutil.ToFloat64(m.imports.WithLabelValues("csv", OutcomeEmpty)), 1},
		{"sheet busy", testutil.ToFloat64(m.imports.WithLabelValues("sheet", OutcomeBusy)), 1},
		{"sheet error", testutil.ToFloat64(m.imports.WithLabelValues("sheet", OutcomeError)), 1},
		{"rows imported", testutil.ToFloat64(m.rowsImported.WithLabelValues("csv")), 5},
		{"rows failed", testutil.ToFloat64(m.rowsFailed.WithLabelValues("csv")), 4},
		{"rows skipped", testutil.ToFloat64(m.rowsSkipped.WithLabelValues("csv")), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestObserveExport(t *testing.T) {
	m := New()
	m.ObserveExport("workspace", 10)
	m.ObserveExport("workspace", 5)
	if got := testutil.ToFloat64(m.rowsExported.WithLabelValues("workspace")); got != 15 {
		t.Errorf("exported = %v, want 15", got)
	}
}

func TestMiddleware_RoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/leads/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads/"+id, nil))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/leads/{id}", "404")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "leads_http_requests_total") {
		t.Error("exposition missing leads_http_requests_total")
	}
}
