// Package stats has implementations of [events.Observer] which export
// verification metrics to Prometheus and StatsD.
package stats

import "errors"

var ErrUnknownTagFormat = errors.New("unknown statsd tag format")

const (
	DefaultMetricPrefix = "voidcheck"
	DefaultHTTPPath     = "/metrics"

	MetricActiveSessions    = "active_sessions"
	MetricSessions          = "sessions"
	MetricSessionDuration   = "session_duration"
	MetricBlocked           = "blocked"
	MetricPassed            = "passed"
	MetricCaptchaFallbacks  = "captcha_fallbacks"
	MetricBypassed          = "bypassed"
	MetricCaptchaPoolSize   = "captcha_pool_size"
	MetricCaptchaRender     = "captcha_render_duration"
	MetricConnectionRate    = "connection_rate"
	MetricPingRate          = "ping_rate"
	MetricBlockedSinceStart = "blocked_since_start"
	MetricAllowListSize     = "allowlist_size"
	MetricLogsMuted         = "logs_muted"

	TagIPFamily     = "ip_family"
	TagIPFamilyIPv4 = "ipv4"
	TagIPFamilyIPv6 = "ipv6"
	TagState        = "state"
	TagGateway      = "gateway"
	TagReason       = "reason"
	TagReconnect    = "reconnect"
)
