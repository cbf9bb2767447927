package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)
	return r
}

func do(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveness(t *testing.T) {
	h := NewHandler()
	h.AddCheck("database", CheckerFunc(func(ctx context.Context) error { return errors.New("down") }))
	r := newRouter(h)

	for _, path := range []string{"/health", "/healthz"} {
		w := do(r, path)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, w.Code)
		}
	}

	w := do(r, "/health?verbose=true")
	var status Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Checks["database"] != "unhealthy: down" {
		t.Errorf("checks = %v", status.Checks)
	}
}

func TestReadiness(t *testing.T) {
	dbErr := error(nil)

	h := NewHandler()
	h.AddCheck("database", CheckerFunc(func(ctx context.Context) error { return dbErr }))
	h.AddCheck("redis", CheckerFunc(func(ctx context.Context) error { return nil }))
	r := newRouter(h)

	tests := []struct {
		name  string
		ready bool
		dbErr error
		want  int
	}{
		{"not marked ready", false, nil, http.StatusServiceUnavailable},
		{"ready and healthy", true, nil, http.StatusOK},
		{"dependency down", true, errors.New("refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.SetReady(tt.ready)
			dbErr = tt.dbErr

			for _, path := range []string{"/ready", "/readyz"} {
				w := do(r, path)
				if w.Code != tt.want {
					t.Errorf("%s: status = %d, want %d", path, w.Code, tt.want)
				}

				var status ReadinessStatus
				if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
					t.Fatal(err)
				}
				if len(status.Checks) != 2 {
					t.Errorf("checks = %v", status.Checks)
				}
			}
		})
	}
}
