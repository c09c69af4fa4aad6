package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Records(t *testing.T) {
	c := NewCollector()

	c.RecordBatch("ok", 20*time.Millisecond)
	c.RecordBatch("ok", 10*time.Millisecond)
	c.RecordBatch("conflict", time.Millisecond)
	c.RecordActionApplied("withdraw")
	c.RecordAccountCreated()
	c.RecordOutbox("sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.batches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.batches.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actionsApplied.WithLabelValues("withdraw")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.accountsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.outboxSent.WithLabelValues("sent")))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordBatch("ok", time.Second)
		c.RecordActionApplied("recharge")
		c.RecordAccountCreated()
		c.RecordOutbox("failed")
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.RecordAccountCreated()

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ledger_accounts_created_total 1")
}
