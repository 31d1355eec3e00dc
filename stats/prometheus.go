package stats

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voidcheck/voidcheck/events"
	"github.com/voidcheck/voidcheck/voidlib"
)

type prometheusProcessor struct {
	streams map[string]*streamInfo
	factory *PrometheusFactory
}

func (p prometheusProcessor) EventSessionStart(evt voidlib.EventSessionStart) {
	info := acquireStreamInfo()
	info.Fill(evt)

	p.streams[evt.StreamID()] = info

	p.factory.metricActiveSessions.
		WithLabelValues(info.tags[TagIPFamily]).
		Inc()
	p.factory.metricSessions.
		WithLabelValues(info.tags[TagState], info.tags[TagGateway]).
		Inc()
}

func (p prometheusProcessor) EventSessionFinish(evt voidlib.EventSessionFinish) {
	info, ok := p.streams[evt.StreamID()]
	if !ok {
		return
	}

	defer func() {
		delete(p.streams, evt.StreamID())
		releaseStreamInfo(info)
	}()

	p.factory.metricSessionDuration.
		WithLabelValues(info.tags[TagState]).
		Observe(evt.Timestamp().Sub(info.startTime).Seconds())
	p.factory.metricActiveSessions.
		WithLabelValues(info.tags[TagIPFamily]).
		Dec()
}

func (p prometheusProcessor) EventBlocked(evt voidlib.EventBlocked) {
	p.factory.metricBlocked.WithLabelValues(evt.Reason.String()).Inc()
}

func (p prometheusProcessor) EventPassed(evt voidlib.EventPassed) {
	p.factory.metricPassed.WithLabelValues(strconv.FormatBool(evt.Reconnect)).Inc()
}

func (p prometheusProcessor) EventCaptchaFallback(_ voidlib.EventCaptchaFallback) {
	p.factory.metricCaptchaFallbacks.Inc()
}

func (p prometheusProcessor) EventBypassed(evt voidlib.EventBypassed) {
	p.factory.metricBypassed.WithLabelValues(evt.Reason.String()).Inc()
}

func (p prometheusProcessor) EventCaptchaGenerated(evt voidlib.EventCaptchaGenerated) {
	p.factory.metricCaptchaPoolSize.Set(float64(evt.Count))
	p.factory.metricCaptchaRender.Observe(evt.Duration.Seconds())
}

func (p prometheusProcessor) EventTrafficRate(evt voidlib.EventTrafficRate) {
	p.factory.metricConnectionRate.Set(float64(evt.Connections))
	p.factory.metricPingRate.Set(float64(evt.Pings))
	p.factory.metricBlockedSinceStart.Set(float64(evt.Blocked))
	p.factory.metricAllowListSize.Set(float64(evt.AllowList))
}

func (p prometheusProcessor) EventLogsMuted(evt voidlib.EventLogsMuted) {
	if evt.Muted {
		p.factory.metricLogsMuted.Set(1)
	} else {
		p.factory.metricLogsMuted.Set(0)
	}
}

func (p prometheusProcessor) Shutdown() {
	for k, v := range p.streams {
		releaseStreamInfo(v)
		delete(p.streams, k)
	}
}

// PrometheusFactory is a factory of [events.Observer] which collect
// information in a format suitable for Prometheus.
//
// This factory can also serve on a given listener. In that case it starts HTTP
// server with a single endpoint - a Prometheus-compatible scrape output.
type PrometheusFactory struct {
	httpServer *http.Server

	metricActiveSessions *prometheus.GaugeVec

	metricSessions        *prometheus.CounterVec
	metricBlocked         *prometheus.CounterVec
	metricPassed          *prometheus.CounterVec
	metricBypassed        *prometheus.CounterVec
	metricSessionDuration *prometheus.HistogramVec

	metricCaptchaFallbacks prometheus.Counter
	metricCaptchaPoolSize  prometheus.Gauge
	metricCaptchaRender    prometheus.Histogram

	// values come from a periodic report, hence gauges
	metricConnectionRate    prometheus.Gauge
	metricPingRate          prometheus.Gauge
	metricBlockedSinceStart prometheus.Gauge
	metricAllowListSize     prometheus.Gauge
	metricLogsMuted         prometheus.Gauge
}

// Make builds a new observer.
func (p *PrometheusFactory) Make() events.Observer {
	return prometheusProcessor{
		streams: make(map[string]*streamInfo),
		factory: p,
	}
}

// Serve starts an HTTP server on a given listener.
func (p *PrometheusFactory) Serve(listener net.Listener) error {
	return p.httpServer.Serve(listener) //nolint: wrapcheck
}

// Close stops a factory. Please pay attention that underlying listener
// is not closed.
func (p *PrometheusFactory) Close() error {
	return p.httpServer.Shutdown(context.Background()) //nolint: wrapcheck
}

// NewPrometheus builds an events.ObserverFactory which can serve HTTP
// endpoint with Prometheus scrape data.
func NewPrometheus(metricPrefix, httpPath string) *PrometheusFactory { //nolint: funlen
	registry := prometheus.NewPedanticRegistry()
	httpHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	mux := http.NewServeMux()

	mux.Handle(httpPath, httpHandler)

	factory := &PrometheusFactory{
		httpServer: &http.Server{
			Handler: mux,
		},

		metricActiveSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricActiveSessions,
			Help:      "A number of sessions which are under verification right now.",
		}, []string{TagIPFamily}),

		metricSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricSessions + "_total",
			Help:      "A number of started verification sessions.",
		}, []string{TagState, TagGateway}),
		metricBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricBlocked + "_total",
			Help:      "A number of rejected sessions.",
		}, []string{TagReason}),
		metricPassed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricPassed + "_total",
			Help:      "A number of sessions which passed verification.",
		}, []string{TagReconnect}),
		metricBypassed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricBypassed + "_total",
			Help:      "A number of clients which were let in without verification.",
		}, []string{TagReason}),
		metricSessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricPrefix,
			Name:      MetricSessionDuration + "_seconds",
			Help:      "Duration of verification sessions.",
			Buckets:   []float64{1, 2, 4, 6, 8, 10, 15, 20, 30, 45, 60},
		}, []string{TagState}),

		metricCaptchaFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricCaptchaFallbacks + "_total",
			Help:      "A number of failed falling checks replaced with a CAPTCHA.",
		}),
		metricCaptchaPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricCaptchaPoolSize,
			Help:      "A number of challenges in the current CAPTCHA pool.",
		}),
		metricCaptchaRender: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricPrefix,
			Name:      MetricCaptchaRender + "_seconds",
			Help:      "Time spent to render a whole CAPTCHA pool.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),

		metricConnectionRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricConnectionRate,
			Help:      "Connections per second averaged over a connection unit.",
		}),
		metricPingRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricPingRate,
			Help:      "Status pings per second averaged over a ping unit.",
		}),
		metricBlockedSinceStart: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricBlockedSinceStart,
			Help:      "A number of blocked sessions since start as seen by the rate monitor.",
		}),
		metricAllowListSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricAllowListSize,
			Help:      "A number of entries in the allow list.",
		}),
		metricLogsMuted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricLogsMuted,
			Help:      "1 if logs are muted because of an attack.",
		}),
	}

	registry.MustRegister(factory.metricActiveSessions)

	registry.MustRegister(factory.metricSessions)
	registry.MustRegister(factory.metricBlocked)
	registry.MustRegister(factory.metricPassed)
	registry.MustRegister(factory.metricBypassed)
	registry.MustRegister(factory.metricSessionDuration)

	registry.MustRegister(factory.metricCaptchaFallbacks)
	registry.MustRegister(factory.metricCaptchaPoolSize)
	registry.MustRegister(factory.metricCaptchaRender)

	registry.MustRegister(factory.metricConnectionRate)
	registry.MustRegister(factory.metricPingRate)
	registry.MustRegister(factory.metricBlockedSinceStart)
	registry.MustRegister(factory.metricAllowListSize)
	registry.MustRegister(factory.metricLogsMuted)

	return factory
}
