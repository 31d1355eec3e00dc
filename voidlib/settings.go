package voidlib

import (
	"net"
	"strings"
	"time"
)

// Threshold is a rate limit which toggles some behavior. A behavior is
// active when a current rate is equal or greater than a threshold.
// Negative threshold disables it.
type Threshold int

// ThresholdDisabled disables a behavior completely.
const ThresholdDisabled Threshold = -1

// Reached checks if rate has reached a threshold.
func (t Threshold) Reached(rate int64) bool {
	return t >= 0 && int64(t) <= rate
}

// Coords is a fixed location in the verification world.
type Coords struct {
	X          float64
	Y          float64
	Z          float64
	Yaw        float32
	Pitch      float32
	TeleportID int
}

// WhitelistedPlayer is a username and IP pair which is always allowed.
type WhitelistedPlayer struct {
	Username string
	IP       net.IP
}

// AutoToggle contains rate thresholds which change a behavior of the
// filter when a server is under attack.
type AutoToggle struct {
	// AllBypass: nobody is checked until a connection rate reaches it.
	AllBypass Threshold

	// OnlineModeBypass: online-mode clients are not checked until a
	// connection rate reaches it.
	OnlineModeBypass Threshold

	// OnlineModeVerify forces offline login for clients which have to
	// be checked.
	OnlineModeVerify Threshold

	// CheckStateToggle selects between toggled and non-toggled check
	// states.
	CheckStateToggle Threshold

	// NeedToReconnect makes clients reconnect after a successful check.
	NeedToReconnect Threshold

	// DisableMOTDPicture hides a server icon in status responses. This
	// one is compared to a ping rate.
	DisableMOTDPicture Threshold

	// DisableLog mutes logs. Both rates are checked.
	DisableLog Threshold
}

// ProxyDetector configures a comparison of transport and application
// round trips.
type ProxyDetector struct {
	Enabled        bool
	Difference     time.Duration
	DebugOnFail    bool
	DebugOnSuccess bool
}

// Strings are texts of canned messages. {PRFX} is replaced with a
// prefix, {NL} with a new line and {0} with a number of attempts.
type Strings struct {
	Prefix string

	CheckingChat             string
	CheckingTitle            string
	CheckingSubtitle         string
	CheckingCaptchaChat      string
	CheckingWrongCaptchaChat string
	CheckingCaptchaTitle     string
	CheckingCaptchaSubtitle  string

	SuccessfulChat          string
	SuccessfulReconnectKick string

	CaptchaFailedKick      string
	FallingCheckFailedKick string
	TimesUpKick            string
	CaptchaNotReadyKick    string
	ClientSettingsKick     string
	ClientBrandKick        string
	ProxyCheckKick         string
}

// Settings is an immutable snapshot of the engine configuration. A new
// snapshot is created on each reload, existing sessions keep the one
// they were created with.
type Settings struct {
	CheckState                  CheckState
	CheckStateNonToggled        CheckState
	GatewayCheckState           CheckState
	GatewayCheckStateNonToggled CheckState

	Timeout        time.Duration
	GatewayTimeout time.Duration

	CaptchaAttempts   int
	CaptchaIgnoreCase bool

	FallingCheckTicks          int
	FallingCheckDebug          bool
	NonValidPositionXZAttempts int
	NonValidPositionYAttempts  int
	MaxValidPositionDifference float64
	FallingCoords              Coords

	CheckClientSettings bool
	CheckClientBrand    bool
	BlockedClientBrands []string

	AllowListTTL   time.Duration
	Whitelisted    []WhitelistedPlayer
	BypassNetworks []net.IPNet

	ConnectionsUnit            time.Duration
	PingsUnit                  time.Duration
	LogEnablerCheckRefreshRate time.Duration
	TrafficReportRate          time.Duration

	AutoToggle    AutoToggle
	ProxyDetector ProxyDetector
	Strings       Strings
}

// FallingCheckTotalTime is a minimal wall time a falling check can take
// for a real client which moves once per tick.
func (s *Settings) FallingCheckTotalTime() time.Duration {
	return time.Duration(s.FallingCheckTicks) * 50 * time.Millisecond //nolint: gomnd
}

// IsBrandBlocked checks a client brand against a block list.
func (s *Settings) IsBrandBlocked(brand string) bool {
	for _, v := range s.BlockedClientBrands {
		if strings.EqualFold(v, brand) {
			return true
		}
	}

	return false
}

func (s *Settings) valid() error {
	switch {
	case s.FallingCheckTicks <= 0:
		return ErrIncorrectFallingCheckTicks
	case s.CaptchaAttempts <= 0:
		return ErrIncorrectCaptchaAttempts
	case s.ConnectionsUnit < time.Second, s.PingsUnit < time.Second:
		return ErrIncorrectRateUnit
	}

	return nil
}

func (s *Settings) getLogEnablerCheckRefreshRate() time.Duration {
	if s.LogEnablerCheckRefreshRate == 0 {
		return DefaultLogEnablerCheckRefreshRate
	}

	return s.LogEnablerCheckRefreshRate
}

func (s *Settings) getTrafficReportRate() time.Duration {
	if s.TrafficReportRate == 0 {
		return DefaultTrafficReportRate
	}

	return s.TrafficReportRate
}

const (
	DefaultTimeout                    = 15 * time.Second
	DefaultGatewayTimeout             = 45 * time.Second
	DefaultCaptchaAttempts            = 2
	DefaultFallingCheckTicks          = 128
	DefaultNonValidPositionXZAttempts = 10
	DefaultNonValidPositionYAttempts  = 10
	DefaultMaxValidPositionDifference = 0.01
	DefaultAllowListTTL               = time.Hour
	DefaultConnectionsUnit            = 300 * time.Second
	DefaultPingsUnit                  = 5 * time.Second
	DefaultLogEnablerCheckRefreshRate = time.Second
	DefaultTrafficReportRate          = 10 * time.Second
	DefaultProxyDetectorDifference    = 5 * time.Millisecond
	DefaultFallingCoordsY             = 512
	DefaultFallingTeleportID          = 44
)

// DefaultSettings returns settings which work well for most servers.
func DefaultSettings() *Settings {
	return &Settings{
		CheckState:                  CheckCaptchaPosition,
		CheckStateNonToggled:        CheckOnlyPosition,
		GatewayCheckState:           CheckOnlyCaptcha,
		GatewayCheckStateNonToggled: CheckOnlyCaptcha,

		Timeout:        DefaultTimeout,
		GatewayTimeout: DefaultGatewayTimeout,

		CaptchaAttempts:   DefaultCaptchaAttempts,
		CaptchaIgnoreCase: true,

		FallingCheckTicks:          DefaultFallingCheckTicks,
		NonValidPositionXZAttempts: DefaultNonValidPositionXZAttempts,
		NonValidPositionYAttempts:  DefaultNonValidPositionYAttempts,
		MaxValidPositionDifference: DefaultMaxValidPositionDifference,
		FallingCoords: Coords{
			Y:          DefaultFallingCoordsY,
			TeleportID: DefaultFallingTeleportID,
		},

		CheckClientSettings: true,
		CheckClientBrand:    true,

		AllowListTTL: DefaultAllowListTTL,

		ConnectionsUnit:            DefaultConnectionsUnit,
		PingsUnit:                  DefaultPingsUnit,
		LogEnablerCheckRefreshRate: DefaultLogEnablerCheckRefreshRate,
		TrafficReportRate:          DefaultTrafficReportRate,

		AutoToggle: AutoToggle{
			AllBypass:          0,
			OnlineModeBypass:   49, //nolint: gomnd
			OnlineModeVerify:   79, //nolint: gomnd
			CheckStateToggle:   0,
			NeedToReconnect:    129, //nolint: gomnd
			DisableMOTDPicture: 25,  //nolint: gomnd
			DisableLog:         129, //nolint: gomnd
		},
		ProxyDetector: ProxyDetector{
			Difference: DefaultProxyDetectorDifference,
		},
		Strings: DefaultStrings(),
	}
}

// DefaultStrings returns default texts of canned messages.
func DefaultStrings() Strings {
	return Strings{
		Prefix: "&b&lVoidCheck&r",

		CheckingChat:             "{PRFX} &aChecking your connection, please wait and do not move...",
		CheckingTitle:            "{PRFX}",
		CheckingSubtitle:         "&aPlease wait...",
		CheckingCaptchaChat:      "{PRFX} &aPlease type the text from the map into the chat. You have &6{0} &aattempts.",
		CheckingWrongCaptchaChat: "{PRFX} &cThe answer is wrong, please try again.",
		CheckingCaptchaTitle:     "&aType the text",
		CheckingCaptchaSubtitle:  "&afrom the map into the chat",

		SuccessfulChat:          "{PRFX} &aYou have passed the check.",
		SuccessfulReconnectKick: "{PRFX}{NL}&aYou have passed the check.{NL}&6Please join the server again.",

		CaptchaFailedKick:      "{PRFX}{NL}&cThe CAPTCHA answer was wrong.{NL}&6Please join the server again.",
		FallingCheckFailedKick: "{PRFX}{NL}&cThe falling check has failed.{NL}&6Please join the server again.",
		TimesUpKick:            "{PRFX}{NL}&cThe check took too long.{NL}&6Please join the server again.",
		CaptchaNotReadyKick:    "{PRFX}{NL}&cThe CAPTCHA is not ready yet.{NL}&6Please try again in a few seconds.",
		ClientSettingsKick:     "{PRFX}{NL}&cYour client did not send its settings.",
		ClientBrandKick:        "{PRFX}{NL}&cYour client did not send its brand or the brand is not allowed.",
		ProxyCheckKick:         "{PRFX}{NL}&cYour connection seems to be relayed through a proxy.",
	}
}
