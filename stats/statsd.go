package stats

import (
	"strconv"
	"time"

	statsd "github.com/smira/go-statsd"
	"github.com/voidcheck/voidcheck/events"
	"github.com/voidcheck/voidcheck/voidlib"
)

const (
	statsdMaxPacketSize    = 1432
	statsdFlushInterval    = time.Second
	statsdReconnectTimeout = 10 * time.Second
)

var statsdTagFormats = map[string]*statsd.TagFormat{
	"datadog":  statsd.TagFormatDatadog,
	"influxdb": statsd.TagFormatInfluxDB,
	"graphite": statsd.TagFormatGraphite,
}

type statsdProcessor struct {
	streams map[string]*streamInfo
	client  *statsd.Client
}

func (s statsdProcessor) EventSessionStart(evt voidlib.EventSessionStart) {
	info := acquireStreamInfo()
	info.Fill(evt)

	s.streams[evt.StreamID()] = info

	s.client.GaugeDelta(MetricActiveSessions, 1, info.T(TagIPFamily))
	s.client.Incr(MetricSessions, 1, info.T(TagState), info.T(TagGateway))
}

func (s statsdProcessor) EventSessionFinish(evt voidlib.EventSessionFinish) {
	info, ok := s.streams[evt.StreamID()]
	if !ok {
		return
	}

	defer func() {
		delete(s.streams, evt.StreamID())
		releaseStreamInfo(info)
	}()

	s.client.PrecisionTiming(MetricSessionDuration, evt.Timestamp().Sub(info.startTime), info.T(TagState))
	s.client.GaugeDelta(MetricActiveSessions, -1, info.T(TagIPFamily))
}

func (s statsdProcessor) EventBlocked(evt voidlib.EventBlocked) {
	s.client.Incr(MetricBlocked, 1, statsd.StringTag(TagReason, evt.Reason.String()))
}

func (s statsdProcessor) EventPassed(evt voidlib.EventPassed) {
	s.client.Incr(MetricPassed, 1, statsd.StringTag(TagReconnect, strconv.FormatBool(evt.Reconnect)))
}

func (s statsdProcessor) EventCaptchaFallback(_ voidlib.EventCaptchaFallback) {
	s.client.Incr(MetricCaptchaFallbacks, 1)
}

func (s statsdProcessor) EventBypassed(evt voidlib.EventBypassed) {
	s.client.Incr(MetricBypassed, 1, statsd.StringTag(TagReason, evt.Reason.String()))
}

func (s statsdProcessor) EventCaptchaGenerated(evt voidlib.EventCaptchaGenerated) {
	s.client.Gauge(MetricCaptchaPoolSize, int64(evt.Count))
	s.client.PrecisionTiming(MetricCaptchaRender, evt.Duration)
}

func (s statsdProcessor) EventTrafficRate(evt voidlib.EventTrafficRate) {
	s.client.Gauge(MetricConnectionRate, evt.Connections)
	s.client.Gauge(MetricPingRate, evt.Pings)
	s.client.Gauge(MetricBlockedSinceStart, int64(evt.Blocked))
	s.client.Gauge(MetricAllowListSize, int64(evt.AllowList))
}

func (s statsdProcessor) EventLogsMuted(evt voidlib.EventLogsMuted) {
	var value int64

	if evt.Muted {
		value = 1
	}

	s.client.Gauge(MetricLogsMuted, value)
}

func (s statsdProcessor) Shutdown() {
	for k, v := range s.streams {
		releaseStreamInfo(v)
		delete(s.streams, k)
	}
}

// StatsdFactory is a factory of [events.Observer] which dumps
// information to StatsD.
//
// StatsD connection is initialized in a lazy way and reconnects on
// failures.
type StatsdFactory struct {
	client *statsd.Client
}

// Close closes a StatsD client.
func (s StatsdFactory) Close() error {
	return s.client.Close() //nolint: wrapcheck
}

// Make build a new observer.
func (s StatsdFactory) Make() events.Observer {
	return statsdProcessor{
		streams: make(map[string]*streamInfo),
		client:  s.client,
	}
}

// NewStatsd builds an events.ObserverFactory that sends events to
// StatsD. Supported tag formats are datadog, influxdb and graphite.
func NewStatsd(address, metricPrefix, tagFormat string, logger voidlib.Logger) (StatsdFactory, error) {
	options := []statsd.Option{
		statsd.MetricPrefix(metricPrefix + "."),
		statsd.MaxPacketSize(statsdMaxPacketSize),
		statsd.FlushInterval(statsdFlushInterval),
		statsd.ReconnectInterval(statsdReconnectTimeout),
		statsd.Logger(logger),
	}

	if format, ok := statsdTagFormats[tagFormat]; ok {
		options = append(options, statsd.TagStyle(format))
	} else if tagFormat != "" {
		return StatsdFactory{}, ErrUnknownTagFormat
	}

	return StatsdFactory{
		client: statsd.NewClient(address, options...),
	}, nil
}
