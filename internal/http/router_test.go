package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/resolvr/backend/internal/config"
	"github.com/resolvr/backend/internal/db"
	"github.com/resolvr/backend/internal/http/handlers"
	"github.com/resolvr/backend/internal/metrics"
	"github.com/resolvr/backend/internal/service"
)

func TestRouterServesHealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := db.NewMemoryStore()
	h := &handlers.Handler{
		Store:       store,
		Complaints:  store,
		Agents:      store,
		Callbacks:   &service.CallbackScheduler{Store: store, Logger: zerolog.Nop()},
		Distributor: &service.Distributor{Store: store, Logger: zerolog.Nop()},
		Validator:   validator.New(),
		Logger:      zerolog.Nop(),
	}
	r := Router(config.Config{CORSAllowed: "*"}, h, zerolog.Nop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	metrics.UnassignedTotal.Add(0)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "triage_")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/callbacks", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
