package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/panjf2000/ants/v2"
	"github.com/voidcheck/voidcheck/voidlib"
)

const (
	DefaultPath              = "/"
	DefaultMaxMessageSize    = 4096
	DefaultConcurrency       = 8192
	DefaultSessionsBurst     = 3
	DefaultThrottleCleanup   = time.Minute
	DefaultReadTimeout       = time.Minute
	DefaultWriteTimeout      = 10 * time.Second
	playerTasksChanSize      = 1
	playerInboundChanSize    = 16
	websocketReadBufferSize  = 1024
	websocketWriteBufferSize = 16 * 1024
)

// Server accepts websocket connections from a host proxy. Each
// connection is one connection attempt of a game client.
type Server struct {
	ctx        context.Context
	ctxCancel  context.CancelFunc
	wg         sync.WaitGroup
	httpServer *http.Server
	upgrader   websocket.Upgrader
	workerPool *ants.PoolWithFunc
	throttle   *throttle

	filter         *voidlib.Filter
	logger         voidlib.Logger
	maxMessageSize int64
	readTimeout    time.Duration
	writeTimeout   time.Duration
}

// ServeHTTP upgrades a request and hands a connection to a worker pool.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.DebugError("cannot upgrade a connection", err)

		return
	}

	err = s.workerPool.Invoke(conn)

	switch {
	case err == nil:
	case errors.Is(err, ants.ErrPoolClosed):
		conn.Close()
	case errors.Is(err, ants.ErrPoolOverload):
		conn.Close()
		s.logger.Info("connection was concurrency limited")
	}
}

// Serve starts an HTTP server on a given listener.
func (s *Server) Serve(listener net.Listener) error {
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("cannot serve bridge: %w", err)
	}

	return nil
}

// Shutdown closes all connections and waits until they are served.
// Please pay attention that underlying listener is closed too.
func (s *Server) Shutdown() {
	s.ctxCancel()
	s.httpServer.Shutdown(context.Background()) //nolint: errcheck
	s.wg.Wait()
	s.workerPool.Release()
	s.throttle.Stop()
}

func (s *Server) serveConn(conn *websocket.Conn) {
	s.wg.Add(1)
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	conn.SetReadLimit(s.maxMessageSize)

	logger := s.logger.BindStr("remote", conn.RemoteAddr().String())

	for {
		evt := Event{}

		conn.SetReadDeadline(time.Now().Add(s.readTimeout)) //nolint: errcheck

		if err := conn.ReadJSON(&evt); err != nil {
			logger.DebugError("cannot read an event", err)

			return
		}

		switch evt.Type {
		case EventPing:
			s.reply(conn, newValueCommand(CommandPing, s.filter.OnPing()))

			return
		case EventQuery:
			s.filter.OnQuery()

			return
		case EventPreLogin:
			addr, err := parseAddr(evt.Address)
			if err != nil {
				logger.InfoError("cannot parse an address", err)

				return
			}

			if !s.reply(conn, newValueCommand(CommandPreLogin, s.filter.OnPreLogin(evt.Username, addr))) {
				return
			}
		case EventReset:
			err := s.filter.ResetAllowList(evt.Username)
			if err != nil {
				logger.WarningError("cannot reset allow list", err)
			}

			s.reply(conn, newValueCommand(CommandReset, err == nil))

			return
		case EventLogin:
			s.serveLogin(ctx, conn, evt, logger)

			return
		default:
			logger.InfoError("cannot start a connection", fmt.Errorf("%w %q", ErrUnexpectedEvent, evt.Type))

			return
		}
	}
}

func (s *Server) serveLogin(ctx context.Context, conn *websocket.Conn, evt Event, logger voidlib.Logger) {
	addr, err := parseAddr(evt.Address)
	if err != nil {
		logger.InfoError("cannot parse an address", err)

		return
	}

	logger = logger.BindStr("username", evt.Username)

	if !s.filter.ShouldCheck(evt.Username, addr, evt.Online) {
		s.reply(conn, newValueCommand(CommandCheck, false))

		return
	}

	if !s.throttle.Allow(addr.IP) {
		logger.Info("Session was throttled")
		s.reply(conn, Command{Type: CommandThrottled})

		return
	}

	if !s.reply(conn, newValueCommand(CommandCheck, true)) {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	plr := &player{
		ctx:          ctx,
		ctxCancel:    cancel,
		conn:         conn,
		tasks:        make(chan func(), playerTasksChanSize),
		writeTimeout: s.writeTimeout,
		logger:       logger,
		username:     evt.Username,
		addr:         addr,
		version:      voidlib.ProtocolVersion(evt.Protocol),
		online:       evt.Online,
		ping:         -1,
	}

	if evt.PingMillis > 0 {
		plr.ping = time.Duration(evt.PingMillis) * time.Millisecond
	}

	defer plr.close()

	session := s.filter.NewSession(plr)
	defer session.OnDisconnect()

	s.runSession(plr, session, s.readEvents(plr))
}

func (s *Server) runSession(plr *player, session *voidlib.Session, inbound <-chan Event) {
	for !session.Finished() {
		select {
		case <-plr.ctx.Done():
			return
		case task := <-plr.tasks:
			task()
		case evt, ok := <-inbound:
			if !ok || !s.dispatch(plr, session, evt) {
				return
			}
		}
	}
}

// dispatch applies an event to a session. It returns false if a host
// proxy has reported that a client is gone.
func (s *Server) dispatch(plr *player, session *voidlib.Session, evt Event) bool {
	switch evt.Type {
	case EventSpawn:
		session.OnSpawn()
	case EventMove:
		session.OnGround(evt.OnGround)
		session.OnMove(evt.X, evt.Y, evt.Z)
	case EventGround:
		session.OnGround(evt.OnGround)
	case EventTeleport:
		session.OnTeleportAck(evt.TeleportID)
	case EventChat:
		session.OnChat(evt.Message)
	case EventSettings:
		session.OnClientSettings()
	case EventBrand:
		session.OnBrand(evt.Brand)
	case EventKeepAlive:
		plr.ping = time.Duration(evt.PingMillis) * time.Millisecond
	case EventDisconnect:
		return false
	default:
		plr.logger.DebugError("cannot process an event", fmt.Errorf("%w %q", ErrUnexpectedEvent, evt.Type))
	}

	return true
}

// readEvents reads a connection until it fails. Returned channel is
// closed after that.
func (s *Server) readEvents(plr *player) <-chan Event {
	inbound := make(chan Event, playerInboundChanSize)

	go func() {
		defer close(inbound)

		for {
			evt := Event{}

			plr.conn.SetReadDeadline(time.Now().Add(s.readTimeout)) //nolint: errcheck

			if err := plr.conn.ReadJSON(&evt); err != nil {
				return
			}

			select {
			case <-plr.ctx.Done():
				return
			case inbound <- evt:
			}
		}
	}()

	return inbound
}

func (s *Server) reply(conn *websocket.Conn, cmd Command) bool {
	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)) //nolint: errcheck

	if err := conn.WriteJSON(cmd); err != nil {
		s.logger.DebugError("cannot send a reply", err)

		return false
	}

	return true
}

// NewServer builds a new bridge server.
func NewServer(opts ServerOpts) (*Server, error) {
	if err := opts.valid(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger := opts.Logger.Named("bridge")
	mux := http.NewServeMux()
	limiter := newThrottle(opts.SessionsPerSecond, opts.getSessionsBurst(), DefaultThrottleCleanup)
	srv := &Server{
		ctx:       ctx,
		ctxCancel: cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  websocketReadBufferSize,
			WriteBufferSize: websocketWriteBufferSize,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		throttle:       limiter,
		filter:         opts.Filter,
		logger:         logger,
		maxMessageSize: opts.getMaxMessageSize(),
		readTimeout:    opts.getReadTimeout(),
		writeTimeout:   opts.getWriteTimeout(),
	}

	pool, err := ants.NewPoolWithFunc(opts.getConcurrency(),
		func(arg any) {
			srv.serveConn(arg.(*websocket.Conn)) //nolint: forcetypeassert
		},
		ants.WithLogger(logger.Named("ants")),
		ants.WithNonblocking(true))
	if err != nil {
		limiter.Stop()
		cancel()

		return nil, fmt.Errorf("cannot create worker pool: %w", err)
	}

	srv.workerPool = pool

	mux.Handle(opts.getPath(), srv)

	srv.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: srv.writeTimeout,
	}

	return srv, nil
}
