package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestObserveRepository(t *testing.T) {
	m := New()
	m.ObserveRepository("list", OutcomeOK, 5*time.Millisecond)
	m.ObserveRepository("list", OutcomeOK, time.Millisecond)
	m.ObserveRepository("create", OutcomeError, time.Millisecond)

	name := "promokeeper_store_repository_calls_total"
	assert.Equal(t, 2.0, counterValue(t, m, name, map[string]string{"action": "list", "outcome": OutcomeOK}))
	assert.Equal(t, 1.0, counterValue(t, m, name, map[string]string{"action": "create", "outcome": OutcomeError}))
	assert.Contains(t, scrape(t, m), `promokeeper_store_repository_latency_seconds_count{action="list"} 2`)
}

func TestValidationFailedAndRPC(t *testing.T) {
	m := New()
	m.ValidationFailed("name")
	m.ObserveRPC("/promokeeper.promotion.v1.PromotionAPI/GetPromotion", "NotFound", time.Millisecond)

	assert.Equal(t, 1.0, counterValue(t, m, "promokeeper_validator_failures_total", map[string]string{"field": "name"}))
	assert.Equal(t, 1.0, counterValue(t, m, "promokeeper_api_requests_total", map[string]string{
		"method": "/promokeeper.promotion.v1.PromotionAPI/GetPromotion",
		"code":   "NotFound",
	}))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveRepository("list", OutcomeOK, time.Millisecond)
	m.ValidationFailed("name")
	m.ObserveRPC("x", "OK", time.Millisecond)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ValidationFailed("endDate")
	assert.Contains(t, scrape(t, m), `promokeeper_validator_failures_total{field="endDate"} 1`)
}
