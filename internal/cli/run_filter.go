package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/voidcheck/voidcheck/allowlist"
	"github.com/voidcheck/voidcheck/bridge"
	"github.com/voidcheck/voidcheck/captcha"
	"github.com/voidcheck/voidcheck/events"
	"github.com/voidcheck/voidcheck/internal/config"
	"github.com/voidcheck/voidcheck/internal/utils"
	"github.com/voidcheck/voidcheck/logger"
	"github.com/voidcheck/voidcheck/stats"
	"github.com/voidcheck/voidcheck/tcpwatch"
	"github.com/voidcheck/voidcheck/voidlib"
)

const DefaultCaptchaRegenerateRate = 3 * time.Hour

func makeLogger(conf *config.Config) voidlib.Logger {
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"

	level := conf.LogLevel.Get(zerolog.InfoLevel)
	if conf.Debug.Get(false) {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)

	baseLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	return logger.NewZeroLogger(baseLogger)
}

func pick(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}

	return value
}

func makeStrings(conf *config.Config) voidlib.Strings {
	defaults := voidlib.DefaultStrings()
	strs := conf.Strings

	return voidlib.Strings{
		Prefix: pick(strs.Prefix, defaults.Prefix),

		CheckingChat:             pick(strs.CheckingChat, defaults.CheckingChat),
		CheckingTitle:            pick(strs.CheckingTitle, defaults.CheckingTitle),
		CheckingSubtitle:         pick(strs.CheckingSubtitle, defaults.CheckingSubtitle),
		CheckingCaptchaChat:      pick(strs.CheckingCaptchaChat, defaults.CheckingCaptchaChat),
		CheckingWrongCaptchaChat: pick(strs.CheckingWrongCaptchaChat, defaults.CheckingWrongCaptchaChat),
		CheckingCaptchaTitle:     pick(strs.CheckingCaptchaTitle, defaults.CheckingCaptchaTitle),
		CheckingCaptchaSubtitle:  pick(strs.CheckingCaptchaSubtitle, defaults.CheckingCaptchaSubtitle),

		SuccessfulChat:          pick(strs.SuccessfulChat, defaults.SuccessfulChat),
		SuccessfulReconnectKick: pick(strs.SuccessfulReconnectKick, defaults.SuccessfulReconnectKick),

		CaptchaFailedKick:      pick(strs.CaptchaFailedKick, defaults.CaptchaFailedKick),
		FallingCheckFailedKick: pick(strs.FallingCheckFailedKick, defaults.FallingCheckFailedKick),
		TimesUpKick:            pick(strs.TimesUpKick, defaults.TimesUpKick),
		CaptchaNotReadyKick:    pick(strs.CaptchaNotReadyKick, defaults.CaptchaNotReadyKick),
		ClientSettingsKick:     pick(strs.ClientSettingsKick, defaults.ClientSettingsKick),
		ClientBrandKick:        pick(strs.ClientBrandKick, defaults.ClientBrandKick),
		ProxyCheckKick:         pick(strs.ProxyCheckKick, defaults.ProxyCheckKick),
	}
}

func makeSettings(conf *config.Config) *voidlib.Settings { //nolint: funlen
	settings := voidlib.DefaultSettings()
	check := conf.Check

	settings.CheckState = check.State.Get(settings.CheckState)
	settings.CheckStateNonToggled = check.StateNonToggled.Get(settings.CheckStateNonToggled)
	settings.GatewayCheckState = check.GatewayState.Get(settings.GatewayCheckState)
	settings.GatewayCheckStateNonToggled = check.GatewayStateNonToggled.Get(settings.GatewayCheckStateNonToggled)
	settings.Timeout = check.Timeout.Get(settings.Timeout)
	settings.GatewayTimeout = check.GatewayTimeout.Get(settings.GatewayTimeout)

	settings.CaptchaAttempts = check.CaptchaAttempts.Get(settings.CaptchaAttempts)
	settings.CaptchaIgnoreCase = conf.Captcha.IgnoreCase.Get(settings.CaptchaIgnoreCase)

	settings.FallingCheckTicks = check.FallingCheckTicks.Get(settings.FallingCheckTicks)
	settings.FallingCheckDebug = check.FallingCheckDebug.Get(false)
	settings.NonValidPositionXZAttempts = check.NonValidPositionXZAttempts.Get(settings.NonValidPositionXZAttempts)
	settings.NonValidPositionYAttempts = check.NonValidPositionYAttempts.Get(settings.NonValidPositionYAttempts)
	settings.MaxValidPositionDifference = check.MaxValidPositionDifference.Get(settings.MaxValidPositionDifference)

	if coords := check.Coords; coords != nil {
		settings.FallingCoords = voidlib.Coords{
			X:          coords.X,
			Y:          coords.Y,
			Z:          coords.Z,
			Yaw:        coords.Yaw,
			Pitch:      coords.Pitch,
			TeleportID: coords.TeleportID,
		}
	}

	settings.CheckClientSettings = check.CheckClientSettings.Get(settings.CheckClientSettings)
	settings.CheckClientBrand = check.CheckClientBrand.Get(settings.CheckClientBrand)
	settings.BlockedClientBrands = check.BlockedClientBrands

	settings.AllowListTTL = conf.AllowList.TTL.Get(settings.AllowListTTL)

	for _, v := range conf.AllowList.Whitelisted {
		settings.Whitelisted = append(settings.Whitelisted, voidlib.WhitelistedPlayer{
			Username: v.Username,
			IP:       v.IP.Get(nil),
		})
	}

	for _, v := range conf.AllowList.BypassNetworks {
		settings.BypassNetworks = append(settings.BypassNetworks, v.Value)
	}

	settings.ConnectionsUnit = conf.Rates.ConnectionsUnit.Get(settings.ConnectionsUnit)
	settings.PingsUnit = conf.Rates.PingsUnit.Get(settings.PingsUnit)
	settings.LogEnablerCheckRefreshRate = conf.Rates.LogEnablerCheckRefreshRate.Get(settings.LogEnablerCheckRefreshRate)
	settings.TrafficReportRate = conf.Rates.TrafficReportRate.Get(settings.TrafficReportRate)

	toggle := conf.AutoToggle
	settings.AutoToggle = voidlib.AutoToggle{
		AllBypass:          toggle.AllBypass.Get(settings.AutoToggle.AllBypass),
		OnlineModeBypass:   toggle.OnlineModeBypass.Get(settings.AutoToggle.OnlineModeBypass),
		OnlineModeVerify:   toggle.OnlineModeVerify.Get(settings.AutoToggle.OnlineModeVerify),
		CheckStateToggle:   toggle.CheckStateToggle.Get(settings.AutoToggle.CheckStateToggle),
		NeedToReconnect:    toggle.NeedToReconnect.Get(settings.AutoToggle.NeedToReconnect),
		DisableMOTDPicture: toggle.DisableMOTDPicture.Get(settings.AutoToggle.DisableMOTDPicture),
		DisableLog:         toggle.DisableLog.Get(settings.AutoToggle.DisableLog),
	}

	settings.ProxyDetector = voidlib.ProxyDetector{
		Enabled:        conf.TCPWatch.Enabled.Get(false),
		Difference:     conf.TCPWatch.Difference.Get(settings.ProxyDetector.Difference),
		DebugOnFail:    conf.TCPWatch.DebugOnFail.Get(false),
		DebugOnSuccess: conf.TCPWatch.DebugOnSuccess.Get(false),
	}

	settings.Strings = makeStrings(conf)

	return settings
}

func makeGradient(conf *config.Config) *captcha.Gradient {
	cg := conf.Captcha.Gradient
	if !cg.Enabled.Get(false) {
		return nil
	}

	gradient := captcha.DefaultGradient()
	gradient.Count = cg.Count.Get(gradient.Count)

	// zero coordinates are the same as missing ones, keep defaults
	if cg.StartX != 0 {
		gradient.StartX = cg.StartX
	}

	if cg.StartY != 0 {
		gradient.StartY = cg.StartY
	}

	if cg.EndX != 0 {
		gradient.EndX = cg.EndX
	}

	if cg.EndY != 0 {
		gradient.EndY = cg.EndY
	}

	gradient.StartXRandomness = cg.StartXRandomness.Get(gradient.StartXRandomness)
	gradient.StartYRandomness = cg.StartYRandomness.Get(gradient.StartYRandomness)
	gradient.EndXRandomness = cg.EndXRandomness.Get(gradient.EndXRandomness)
	gradient.EndYRandomness = cg.EndYRandomness.Get(gradient.EndYRandomness)

	if len(cg.Fractions) > 0 {
		gradient.Fractions = cg.Fractions
	}

	return gradient
}

func makeCaptchaOptions(conf *config.Config,
	encoder voidlib.Encoder,
	log voidlib.Logger,
	eventStream voidlib.EventStream,
) captcha.Options {
	cc := conf.Captcha
	numberSpelling := cc.NumberSpelling.Get(false)

	opts := captcha.Options{
		Encoder:                encoder,
		Logger:                 log,
		EventStream:            eventStream,
		Concurrency:            int(cc.Concurrency.Get(0)),
		ImagesCount:            cc.ImagesCount.Get(captcha.DefaultImagesCount),
		Pattern:                cc.Pattern,
		Length:                 cc.Length.Get(captcha.DefaultLength),
		NumberSpelling:         numberSpelling,
		EachWordOnSeparateLine: cc.EachWordOnSeparateLine.Get(false),
		Spelling:               captcha.DefaultSpelling(),
		UseStandardFonts:       cc.UseStandardFonts.Get(true),
		FontSize:               cc.FontSize.Get(captcha.DefaultFontSize),
		Outline:                cc.Outline.Get(true),
		Rotate:                 cc.Rotate.Get(true),
		Ripple:                 cc.Ripple.Get(true),
		Underline:              cc.Underline.Get(false),
		Strikethrough:          cc.Strikethrough.Get(false),
		CurveSize:              cc.CurveSize.Get(captcha.DefaultCurveSize),
		CurvesAmount:           cc.CurvesAmount.Get(captcha.DefaultCurves),
		Gradient:               makeGradient(conf),
	}

	if opts.Pattern == "" && !numberSpelling {
		opts.Pattern = captcha.DefaultPattern
	}

	if cc.Spelling != nil {
		opts.Spelling = captcha.Spelling{
			Exceptions: cc.Spelling.Exceptions,
			Words:      cc.Spelling.Words,
		}
	}

	for _, v := range cc.Backplates {
		opts.Backplates = append(opts.Backplates, v.String())
	}

	for _, v := range cc.Fonts {
		opts.Fonts = append(opts.Fonts, v.String())
	}

	for _, v := range cc.Colors {
		opts.Colors = append(opts.Colors, v.String())
	}

	return opts
}

func makeCaptcha(conf *config.Config,
	encoder voidlib.Encoder,
	log voidlib.Logger,
	eventStream voidlib.EventStream,
) (*captcha.Generator, error) {
	generator, err := captcha.NewGenerator(makeCaptchaOptions(conf, encoder, log, eventStream))
	if err != nil {
		return nil, fmt.Errorf("cannot build captcha generator: %w", err)
	}

	generator.Start(conf.Captcha.RegenerateRate.Get(DefaultCaptchaRegenerateRate))

	return generator, nil
}

func makeAllowList(ctx context.Context, conf *config.Config) (voidlib.AllowList, error) {
	switch conf.AllowList.Backend {
	case config.AllowListBolt:
		store, err := allowlist.NewBolt(conf.AllowList.Path)
		if err != nil {
			return nil, fmt.Errorf("cannot open bolt allow list: %w", err)
		}

		return store, nil
	case config.AllowListRedis:
		redisConf := conf.AllowList.Redis

		store, err := allowlist.NewRedis(ctx, allowlist.RedisOptions{
			Address:  redisConf.Address.Get(""),
			DB:       redisConf.DB,
			Password: redisConf.Password,
			Prefix:   redisConf.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("cannot connect to redis allow list: %w", err)
		}

		return store, nil
	}

	return allowlist.NewMemory(), nil
}

// makePingEstimator returns nil if transport capture is not available.
// The filter works without the proxy check then.
func makePingEstimator(conf *config.Config, log voidlib.Logger) *tcpwatch.Watcher {
	if !conf.TCPWatch.Enabled.Get(false) {
		return nil
	}

	watcher, err := tcpwatch.Start(tcpwatch.Options{
		Interface:   conf.TCPWatch.Interface,
		Port:        conf.TCPWatch.Port.Get(0),
		SnapLen:     int(conf.TCPWatch.SnapLen.Get(tcpwatch.DefaultSnapLen)),
		ListenDelay: conf.TCPWatch.ListenDelay.Get(0),
		Timeout:     conf.TCPWatch.Timeout.Get(tcpwatch.DefaultTimeout),
		Logger:      log,
	})
	if err != nil {
		log.WarningError("cannot start transport watcher, proxy check is disabled", err)

		return nil
	}

	return watcher
}

func makeEventStream(conf *config.Config, log voidlib.Logger) (events.EventStream, []func() error, error) {
	factories := make([]events.ObserverFactory, 0, 2) //nolint: gomnd
	closers := []func() error{}

	if conf.Stats.StatsD.Enabled.Get(false) {
		statsdFactory, err := stats.NewStatsd(
			conf.Stats.StatsD.Address.Get(""),
			conf.Stats.StatsD.MetricPrefix.Get(stats.DefaultMetricPrefix),
			conf.Stats.StatsD.TagFormat.Get(""),
			log.Named("statsd"))
		if err != nil {
			return events.EventStream{}, nil, fmt.Errorf("cannot build statsd observer: %w", err)
		}

		factories = append(factories, statsdFactory.Make)
		closers = append(closers, statsdFactory.Close)
	}

	if conf.Stats.Prometheus.Enabled.Get(false) {
		prometheus := stats.NewPrometheus(
			conf.Stats.Prometheus.MetricPrefix.Get(stats.DefaultMetricPrefix),
			conf.Stats.Prometheus.HTTPPath.Get(stats.DefaultHTTPPath),
		)

		listener, err := net.Listen("tcp", conf.Stats.Prometheus.BindTo.Get(""))
		if err != nil {
			return events.EventStream{}, nil, fmt.Errorf("cannot start a listener for prometheus: %w", err)
		}

		go prometheus.Serve(listener) //nolint: errcheck

		factories = append(factories, prometheus.Make)
		closers = append(closers, prometheus.Close)
	}

	return events.NewEventStream(factories), closers, nil
}

func reloadFilter(path string, filter *voidlib.Filter, encoder voidlib.Encoder,
	log voidlib.Logger, eventStream voidlib.EventStream,
) error {
	conf, err := utils.ReadConfig(path)
	if err != nil {
		return fmt.Errorf("cannot init config: %w", err)
	}

	generator, err := captcha.NewGenerator(makeCaptchaOptions(conf, encoder, log, eventStream))
	if err != nil {
		return fmt.Errorf("cannot build captcha generator: %w", err)
	}

	// a current pool stays until a new one is complete
	if err := generator.Generate(); err != nil {
		generator.Shutdown()

		return fmt.Errorf("cannot generate captcha pool, current one is kept: %w", err)
	}

	if err := filter.Reload(makeSettings(conf), generator); err != nil {
		generator.Shutdown()

		return fmt.Errorf("cannot reload filter: %w", err)
	}

	generator.Schedule(conf.Captcha.RegenerateRate.Get(DefaultCaptchaRegenerateRate))

	return nil
}

func runFilter(path string, conf *config.Config, version string) error { //nolint: funlen, cyclop
	log := makeLogger(conf)

	log.BindJSON("configuration", conf.String()).Debug("configuration")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventStream, closers, err := makeEventStream(conf, log)
	if err != nil {
		return fmt.Errorf("cannot build event stream: %w", err)
	}

	defer func() {
		eventStream.Shutdown()

		for _, closer := range closers {
			closer() //nolint: errcheck
		}
	}()

	encoder := bridge.NewEncoder()

	generator, err := makeCaptcha(conf, encoder, log, eventStream)
	if err != nil {
		return err
	}

	allowList, err := makeAllowList(ctx, conf)
	if err != nil {
		generator.Shutdown()

		return err
	}

	defer allowList.Close()

	opts := voidlib.FilterOpts{
		Settings:      makeSettings(conf),
		Encoder:       encoder,
		CaptchaSource: generator,
		AllowList:     allowList,
		EventStream:   eventStream,
		Logger:        log,
		LogSwitch:     logger.NewLevelSwitch(),
	}

	if watcher := makePingEstimator(conf, log); watcher != nil {
		opts.PingEstimator = watcher

		defer watcher.Shutdown()
	}

	filter, err := voidlib.NewFilter(opts)
	if err != nil {
		generator.Shutdown()

		return fmt.Errorf("cannot create a filter: %w", err)
	}

	defer filter.Shutdown()

	server, err := bridge.NewServer(bridge.ServerOpts{
		Filter:            filter,
		Logger:            log,
		Path:              conf.Bridge.Path.Get(bridge.DefaultPath),
		MaxMessageSize:    int64(conf.Bridge.MaxMessageSize.Get(bridge.DefaultMaxMessageSize)),
		Concurrency:       conf.Bridge.Concurrency.Get(bridge.DefaultConcurrency),
		SessionsPerSecond: conf.Bridge.SessionsPerSecond.Get(0),
		SessionsBurst:     conf.Bridge.SessionsBurst.Get(bridge.DefaultSessionsBurst),
		ReadTimeout:       conf.Bridge.ReadTimeout.Get(bridge.DefaultReadTimeout),
		WriteTimeout:      conf.Bridge.WriteTimeout.Get(bridge.DefaultWriteTimeout),
	})
	if err != nil {
		return fmt.Errorf("cannot create a bridge: %w", err)
	}

	listener, err := utils.NewListener(conf.Bridge.BindTo.Get(""), conf.Bridge.TCPFastOpen.Get(false))
	if err != nil {
		server.Shutdown()

		return fmt.Errorf("cannot start bridge listener: %w", err)
	}

	go func() {
		if err := server.Serve(listener); err != nil {
			log.WarningError("bridge has stopped", err)
			cancel()
		}
	}()

	log.BindStr("version", version).
		BindStr("bind_to", listener.Addr().String()).
		BindStr("tfo", fmt.Sprintf("%t", listener.IsTFOEnabled())).
		Info("Verification service has been started")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			server.Shutdown()

			return nil
		case sig := <-signals:
			if sig != syscall.SIGHUP {
				log.BindStr("signal", sig.String()).Info("Shutting down")
				server.Shutdown()

				return nil
			}

			if err := reloadFilter(path, filter, encoder, log, eventStream); err != nil {
				log.WarningError("cannot reload configuration", err)
			}
		}
	}
}
