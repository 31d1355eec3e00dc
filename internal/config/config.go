package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	AllowListMemory = "memory"
	AllowListBolt   = "bolt"
	AllowListRedis  = "redis"
)

type Optional struct {
	Enabled TypeBool `json:"enabled"`
}

type Coords struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Yaw        float32 `json:"yaw"`
	Pitch      float32 `json:"pitch"`
	TeleportID int     `json:"teleportId"`
}

type Whitelisted struct {
	Username string `json:"username"`
	IP       TypeIP `json:"ip"`
}

type Spelling struct {
	Exceptions map[string]string `json:"exceptions"`
	Words      [][]string        `json:"words"`
}

type Gradient struct {
	Optional

	Count            TypeCount `json:"count"`
	StartX           float64   `json:"startX"`
	StartY           float64   `json:"startY"`
	EndX             float64   `json:"endX"`
	EndY             float64   `json:"endY"`
	StartXRandomness TypeFloat `json:"startXRandomness"`
	StartYRandomness TypeFloat `json:"startYRandomness"`
	EndXRandomness   TypeFloat `json:"endXRandomness"`
	EndYRandomness   TypeFloat `json:"endYRandomness"`
	Fractions        []float64 `json:"fractions"`
}

// Strings содержит тексты готовых сообщений. Пустые значения
// заменяются значениями по умолчанию.
type Strings struct {
	Prefix string `json:"prefix"`

	CheckingChat             string `json:"checkingChat"`
	CheckingTitle            string `json:"checkingTitle"`
	CheckingSubtitle         string `json:"checkingSubtitle"`
	CheckingCaptchaChat      string `json:"checkingCaptchaChat"`
	CheckingWrongCaptchaChat string `json:"checkingWrongCaptchaChat"`
	CheckingCaptchaTitle     string `json:"checkingCaptchaTitle"`
	CheckingCaptchaSubtitle  string `json:"checkingCaptchaSubtitle"`

	SuccessfulChat          string `json:"successfulChat"`
	SuccessfulReconnectKick string `json:"successfulReconnectKick"`

	CaptchaFailedKick      string `json:"captchaFailedKick"`
	FallingCheckFailedKick string `json:"fallingCheckFailedKick"`
	TimesUpKick            string `json:"timesUpKick"`
	CaptchaNotReadyKick    string `json:"captchaNotReadyKick"`
	ClientSettingsKick     string `json:"clientSettingsKick"`
	ClientBrandKick        string `json:"clientBrandKick"`
	ProxyCheckKick         string `json:"proxyCheckKick"`
}

type Config struct {
	Debug    TypeBool     `json:"debug"`
	LogLevel TypeLogLevel `json:"logLevel"`
	Check    struct {
		State                  TypeCheckState `json:"state"`
		StateNonToggled        TypeCheckState `json:"stateNonToggled"`
		GatewayState           TypeCheckState `json:"gatewayState"`
		GatewayStateNonToggled TypeCheckState `json:"gatewayStateNonToggled"`
		Timeout                TypeDuration   `json:"timeout"`
		GatewayTimeout         TypeDuration   `json:"gatewayTimeout"`
		CaptchaAttempts        TypeCount      `json:"captchaAttempts"`

		FallingCheckTicks          TypeCount `json:"fallingCheckTicks"`
		FallingCheckDebug          TypeBool  `json:"fallingCheckDebug"`
		NonValidPositionXZAttempts TypeCount `json:"nonValidPositionXZAttempts"`
		NonValidPositionYAttempts  TypeCount `json:"nonValidPositionYAttempts"`
		MaxValidPositionDifference TypeFloat `json:"maxValidPositionDifference"`
		Coords                     *Coords   `json:"coords"`

		CheckClientSettings TypeBool `json:"checkClientSettings"`
		CheckClientBrand    TypeBool `json:"checkClientBrand"`
		BlockedClientBrands []string `json:"blockedClientBrands"`
	} `json:"check"`
	Rates struct {
		ConnectionsUnit            TypeDuration `json:"connectionsUnit"`
		PingsUnit                  TypeDuration `json:"pingsUnit"`
		LogEnablerCheckRefreshRate TypeDuration `json:"logEnablerCheckRefreshRate"`
		TrafficReportRate          TypeDuration `json:"trafficReportRate"`
	} `json:"rates"`
	AutoToggle struct {
		AllBypass          TypeThreshold `json:"allBypass"`
		OnlineModeBypass   TypeThreshold `json:"onlineModeBypass"`
		OnlineModeVerify   TypeThreshold `json:"onlineModeVerify"`
		CheckStateToggle   TypeThreshold `json:"checkStateToggle"`
		NeedToReconnect    TypeThreshold `json:"needToReconnect"`
		DisableMOTDPicture TypeThreshold `json:"disableMotdPicture"`
		DisableLog         TypeThreshold `json:"disableLog"`
	} `json:"autoToggle"`
	AllowList struct {
		Backend string       `json:"backend"`
		TTL     TypeDuration `json:"ttl"`
		Path    string       `json:"path"`
		Redis   struct {
			Address  TypeHostPort `json:"address"`
			DB       int          `json:"db"`
			Password string       `json:"password"`
			Prefix   string       `json:"prefix"`
		} `json:"redis"`
		Whitelisted    []Whitelisted `json:"whitelisted"`
		BypassNetworks []TypeCIDR    `json:"bypassNetworks"`
	} `json:"allowlist"`
	Captcha struct {
		RegenerateRate         TypeDuration    `json:"regenerateRate"`
		ImagesCount            TypeCount       `json:"imagesCount"`
		Concurrency            TypeConcurrency `json:"concurrency"`
		Pattern                string          `json:"pattern"`
		Length                 TypeCount       `json:"length"`
		IgnoreCase             TypeBool        `json:"ignoreCase"`
		Backplates             []TypeFilePath  `json:"backplates"`
		Fonts                  []TypeFilePath  `json:"fonts"`
		UseStandardFonts       TypeBool        `json:"useStandardFonts"`
		FontSize               TypeFloat       `json:"fontSize"`
		Outline                TypeBool        `json:"outline"`
		Rotate                 TypeBool        `json:"rotate"`
		Ripple                 TypeBool        `json:"ripple"`
		Strikethrough          TypeBool        `json:"strikethrough"`
		Underline              TypeBool        `json:"underline"`
		CurveSize              TypeFloat       `json:"curveSize"`
		CurvesAmount           TypeCount       `json:"curvesAmount"`
		Colors                 []TypeColor     `json:"colors"`
		NumberSpelling         TypeBool        `json:"numberSpelling"`
		EachWordOnSeparateLine TypeBool        `json:"eachWordOnSeparateLine"`
		Spelling               *Spelling       `json:"spelling"`
		Gradient               Gradient        `json:"gradient"`
	} `json:"captcha"`
	TCPWatch struct {
		Optional

		Interface      string       `json:"interface"`
		Port           TypePort     `json:"port"`
		SnapLen        TypeBytes    `json:"snapLen"`
		ListenDelay    TypeDuration `json:"listenDelay"`
		Timeout        TypeDuration `json:"timeout"`
		Difference     TypeDuration `json:"difference"`
		DebugOnFail    TypeBool     `json:"debugOnFail"`
		DebugOnSuccess TypeBool     `json:"debugOnSuccess"`
	} `json:"tcpwatch"`
	Bridge struct {
		BindTo            TypeHostPort    `json:"bindTo"`
		Path              TypeHTTPPath    `json:"path"`
		MaxMessageSize    TypeBytes       `json:"maxMessageSize"`
		Concurrency       TypeConcurrency `json:"concurrency"`
		SessionsPerSecond TypeFloat       `json:"sessionsPerSecond"`
		SessionsBurst     TypeConcurrency `json:"sessionsBurst"`
		ReadTimeout       TypeDuration    `json:"readTimeout"`
		WriteTimeout      TypeDuration    `json:"writeTimeout"`
		// TCPFastOpen включает TFO на listener. Требует поддержки ядром
		// (net.ipv4.tcp_fastopen & 2).
		TCPFastOpen TypeBool `json:"tcpFastOpen"`
	} `json:"bridge"`
	Strings Strings `json:"strings"`
	Stats   struct {
		StatsD struct {
			Optional

			Address      TypeHostPort        `json:"address"`
			MetricPrefix TypeMetricPrefix    `json:"metricPrefix"`
			TagFormat    TypeStatsdTagFormat `json:"tagFormat"`
		} `json:"statsd"`
		Prometheus struct {
			Optional

			BindTo       TypeHostPort     `json:"bindTo"`
			HTTPPath     TypeHTTPPath     `json:"httpPath"`
			MetricPrefix TypeMetricPrefix `json:"metricPrefix"`
		} `json:"prometheus"`
	} `json:"stats"`
}

func (c *Config) Validate() error { //nolint: cyclop
	if c.Bridge.BindTo.Get("") == "" {
		return fmt.Errorf("incorrect bridge.bindTo parameter %s", c.Bridge.BindTo.String())
	}

	switch c.AllowList.Backend {
	case "", AllowListMemory:
	case AllowListBolt:
		if c.AllowList.Path == "" {
			return fmt.Errorf("allowlist.path is required for %s backend", AllowListBolt)
		}
	case AllowListRedis:
		if c.AllowList.Redis.Address.Get("") == "" {
			return fmt.Errorf("allowlist.redis.address is required for %s backend", AllowListRedis)
		}
	default:
		return fmt.Errorf("unknown allowlist backend %s", c.AllowList.Backend)
	}

	for _, v := range c.AllowList.Whitelisted {
		if v.Username == "" || v.IP.Value == nil {
			return fmt.Errorf("whitelisted player needs both username and ip")
		}
	}

	if !c.Captcha.UseStandardFonts.Get(true) && len(c.Captcha.Fonts) == 0 {
		return fmt.Errorf("captcha.fonts are required if standard fonts are disabled")
	}

	if c.Captcha.NumberSpelling.Get(false) && c.Captcha.Pattern != "" {
		return fmt.Errorf("captcha.pattern makes no sense with number spelling")
	}

	// TCPWatch: интерфейс и порт обязательны если включён
	if c.TCPWatch.Enabled.Get(false) {
		if c.TCPWatch.Interface == "" {
			return fmt.Errorf("tcpwatch.interface is required when tcpwatch is enabled")
		}

		if c.TCPWatch.Port.Get(0) == 0 {
			return fmt.Errorf("tcpwatch.port is required when tcpwatch is enabled")
		}
	}

	// Prometheus: bindTo обязателен если включён
	if c.Stats.Prometheus.Enabled.Get(false) {
		if c.Stats.Prometheus.BindTo.Get("") == "" {
			return fmt.Errorf("prometheus.bindTo is required when prometheus is enabled")
		}
	}

	// StatsD: address обязателен если включён
	if c.Stats.StatsD.Enabled.Get(false) {
		if c.Stats.StatsD.Address.Get("") == "" {
			return fmt.Errorf("statsd.address is required when statsd is enabled")
		}
	}

	return nil
}

func (c *Config) String() string {
	// Маскируем пароль для безопасного логирования
	safe := *c

	if safe.AllowList.Redis.Password != "" {
		safe.AllowList.Redis.Password = "***"
	}

	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)

	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(safe); err != nil {
		return "{}"
	}

	return buf.String()
}
