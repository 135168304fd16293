package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "deckcast"

// HubMetrics 推送 hub 的指标
// 所有方法对 nil 接收者安全，未启用指标时直接传 nil
type HubMetrics struct {
	ActiveSubscribers prometheus.Gauge
	Broadcasts        *prometheus.CounterVec
	Deliveries        prometheus.Counter
	DeliveryFailures  *prometheus.CounterVec
}

// NewHubMetrics 创建并注册 hub 指标
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		ActiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "active_subscribers",
			Help:      "Number of registered push subscribers.",
		}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "broadcasts_total",
			Help:      "Total number of broadcast messages by topic.",
		}, []string{"topic"}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "deliveries_total",
			Help:      "Total number of messages enqueued to subscribers.",
		}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "delivery_failures_total",
			Help:      "Total number of failed subscriber deliveries by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.ActiveSubscribers, m.Broadcasts, m.Deliveries, m.DeliveryFailures)
	return m
}

func (m *HubMetrics) SubscriberAdded() {
	if m != nil {
		m.ActiveSubscribers.Inc()
	}
}

func (m *HubMetrics) SubscriberRemoved() {
	if m != nil {
		m.ActiveSubscribers.Dec()
	}
}

func (m *HubMetrics) Broadcast(topic string, delivered int) {
	if m == nil {
		return
	}
	m.Broadcasts.WithLabelValues(topic).Inc()
	m.Deliveries.Add(float64(delivered))
}

func (m *HubMetrics) DeliveryFailed(reason string) {
	if m != nil {
		m.DeliveryFailures.WithLabelValues(reason).Inc()
	}
}

// HTTPMetrics 摄取接口的请求指标
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewHTTPMetrics 创建并注册 HTTP 指标
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"route"}),
	}

	reg.MustRegister(m.Requests, m.Duration)
	return m
}

func (m *HTTPMetrics) Observe(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.Duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// MirrorMetrics Redis 镜像写入指标
type MirrorMetrics struct {
	Writes *prometheus.CounterVec
}

// NewMirrorMetrics 创建并注册镜像指标
func NewMirrorMetrics(reg prometheus.Registerer) *MirrorMetrics {
	m := &MirrorMetrics{
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "writes_total",
			Help:      "Total number of snapshot mirror writes by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Writes)
	return m
}

func (m *MirrorMetrics) Write(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Writes.WithLabelValues(result).Inc()
}
