package voidlib

// BlockReason is a reason why a session was rejected.
type BlockReason int

const (
	BlockFallingCheck BlockReason = iota
	BlockCaptchaFailed
	BlockTimesUp
	BlockClientSettings
	BlockClientBrand
	BlockProxyDetected
)

var blockReasonNames = [...]string{
	BlockFallingCheck:   "falling_check",
	BlockCaptchaFailed:  "captcha_failed",
	BlockTimesUp:        "times_up",
	BlockClientSettings: "client_settings",
	BlockClientBrand:    "client_brand",
	BlockProxyDetected:  "proxy_detected",
}

func (b BlockReason) String() string {
	if b >= 0 && int(b) < len(blockReasonNames) {
		return blockReasonNames[b]
	}

	return "unknown"
}

// AllBlockReasons returns every known reason.
func AllBlockReasons() []BlockReason {
	return []BlockReason{
		BlockFallingCheck,
		BlockCaptchaFailed,
		BlockTimesUp,
		BlockClientSettings,
		BlockClientBrand,
		BlockProxyDetected,
	}
}

// BypassReason tells why a client was not checked.
type BypassReason int

const (
	BypassQuietTraffic BypassReason = iota
	BypassOnlineMode
	BypassNetwork
	BypassAllowList
)

func (b BypassReason) String() string {
	switch b {
	case BypassQuietTraffic:
		return "quiet_traffic"
	case BypassOnlineMode:
		return "online_mode"
	case BypassNetwork:
		return "network"
	case BypassAllowList:
		return "allow_list"
	}

	return "unknown"
}
