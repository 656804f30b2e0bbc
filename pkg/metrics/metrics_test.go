package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Insumos-api/pkg/metrics"
)

func TestLedger_Contadores(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewLedger(reg)

	m.ObserveMutation("create", "ok", 10*time.Millisecond)
	m.ObserveMutation("create", "ok", 5*time.Millisecond)
	m.ObserveMutation("create", "rejected", time.Millisecond)
	m.IncRejection("create", "ZERO_BY_OUT")
	m.IncRetry("update")
	m.IncAlert("create")
	m.ObserveDelivery("kafka", "delivered")

	n, err := testutil.GatherAndCount(reg, "ledger_mutations_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n, "una serie por combinación op/outcome")

	n, err = testutil.GatherAndCount(reg, "ledger_invariant_rejections_total", "stock_alert_deliveries_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLedger_RegistroDuplicadoFalla(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewLedger(reg)
	assert.Panics(t, func() { metrics.NewLedger(reg) }, "MustRegister debe fallar con colectores repetidos")
}

func TestHTTP_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTP(reg)
	m.Observe("GET", "/api/items", 200, time.Millisecond)
	m.Observe("GET", "/api/items", 500, time.Millisecond)

	n, err := testutil.GatherAndCount(reg, "http_requests_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}
