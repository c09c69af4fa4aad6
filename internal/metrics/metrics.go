package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 账本服务的 Prometheus 指标
// 方法对 nil 接收者安全，未启用指标时可以直接传 nil
type Collector struct {
	registry        *prometheus.Registry
	batches         *prometheus.CounterVec
	actionsApplied  *prometheus.CounterVec
	batchDuration   prometheus.Histogram
	accountsCreated prometheus.Counter
	outboxSent      *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_action_batches_total",
			Help: "Account action batches by result",
		}, []string{"result"}),
		actionsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_actions_applied_total",
			Help: "Committed account actions by action type",
		}, []string{"action_type"}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_action_batch_duration_seconds",
			Help:    "Time taken to validate and apply an action batch",
			Buckets: prometheus.DefBuckets,
		}),
		accountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_accounts_created_total",
			Help: "Accounts created",
		}),
		outboxSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_outbox_messages_total",
			Help: "Outbox delivery attempts by result",
		}, []string{"result"}),
	}
}

// RecordBatch result 取值为 ok 或错误类别
func (c *Collector) RecordBatch(result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.batches.WithLabelValues(result).Inc()
	c.batchDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordActionApplied(actionType string) {
	if c == nil {
		return
	}
	c.actionsApplied.WithLabelValues(actionType).Inc()
}

func (c *Collector) RecordAccountCreated() {
	if c == nil {
		return
	}
	c.accountsCreated.Inc()
}

func (c *Collector) RecordOutbox(result string) {
	if c == nil {
		return
	}
	c.outboxSent.WithLabelValues(result).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
