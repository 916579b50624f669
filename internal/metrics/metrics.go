// Package metrics 는 Prometheus 메트릭 수집과 공개를 제공한다.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 는 Prometheus 메트릭을 수집한다.
// proxychain.Metrics 와 rank.CheckMetrics 를 구현한다.
type Collector struct {
	proxyAttempts *prometheus.CounterVec
	proxySuccess  *prometheus.CounterVec
	proxyFail     *prometheus.CounterVec

	checkSuccess prometheus.Counter
	checkFail    prometheus.Counter
	checkLatency prometheus.Histogram

	trackersUpdated prometheus.Counter
}

// NewCollector 는 Collector를 생성하고 지정 레지스트리에 메트릭을 등록한다.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		proxyAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rankwatch_proxy_attempt_total",
			Help: "프록시 전략별 시도 수",
		}, []string{"strategy"}),
		proxySuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rankwatch_proxy_success_total",
			Help: "프록시 전략별 성공 수",
		}, []string{"strategy"}),
		proxyFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rankwatch_proxy_failure_total",
			Help: "프록시 전략별 실패 수",
		}, []string{"strategy"}),
		checkSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rankwatch_rank_check_success_total",
			Help: "순위 확인 성공 수",
		}),
		checkFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rankwatch_rank_check_failure_total",
			Help: "순위 확인 실패 수",
		}),
		checkLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rankwatch_rank_check_latency_seconds",
			Help:    "순위 확인 소요 시간 (초)",
			Buckets: prometheus.DefBuckets,
		}),
		trackersUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rankwatch_trackers_updated_total",
			Help: "업데이트된 추적 항목 수",
		}),
	}

	reg.MustRegister(
		c.proxyAttempts,
		c.proxySuccess,
		c.proxyFail,
		c.checkSuccess,
		c.checkFail,
		c.checkLatency,
		c.trackersUpdated,
	)

	return c
}

// RecordProxyAttempt 는 프록시 시도를 기록한다.
func (c *Collector) RecordProxyAttempt(strategy string) {
	c.proxyAttempts.WithLabelValues(strategy).Inc()
}

// RecordProxySuccess 는 프록시 성공을 기록한다.
func (c *Collector) RecordProxySuccess(strategy string) {
	c.proxySuccess.WithLabelValues(strategy).Inc()
}

// RecordProxyFailure 는 프록시 실패를 기록한다.
func (c *Collector) RecordProxyFailure(strategy string) {
	c.proxyFail.WithLabelValues(strategy).Inc()
}

// RecordCheckSuccess 는 순위 확인 성공을 기록한다.
func (c *Collector) RecordCheckSuccess() {
	c.checkSuccess.Inc()
}

// RecordCheckFailure 는 순위 확인 실패를 기록한다.
func (c *Collector) RecordCheckFailure() {
	c.checkFail.Inc()
}

// RecordCheckLatency 는 순위 확인 소요 시간을 기록한다.
func (c *Collector) RecordCheckLatency(d time.Duration) {
	c.checkLatency.Observe(d.Seconds())
}

// RecordTrackerUpdated 는 추적 항목 업데이트 1건을 기록한다.
func (c *Collector) RecordTrackerUpdated() {
	c.trackersUpdated.Inc()
}

// Handler 는 Prometheus 스크레이프용 HTTP 핸들러를 반환한다.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
