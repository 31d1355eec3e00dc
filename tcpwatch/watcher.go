package tcpwatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/voidcheck/voidcheck/voidlib"
)

// minSample is a smallest round trip which is taken into account. Less
// than that is a local noise.
const minSample = 2 * time.Millisecond

const (
	DefaultSnapLen = 256
	DefaultTimeout = 10 * time.Millisecond
)

var ErrUnsupportedPlatform = errors.New("packet capture is not supported on this platform")

// Source gives raw Ethernet frames. ReadFrame should return
// os.ErrDeadlineExceeded periodically if nothing arrives so a watcher
// can notice a shutdown.
type Source interface {
	ReadFrame(buf []byte) (int, error)
	Close() error
}

type tracked struct {
	seq    uint32
	sentAt time.Time
	armed  bool

	ping    time.Duration
	samples int
}

// Watcher estimates transport round trips of registered addresses. It
// watches data segments sent to a client and waits for an
// acknowledgement with a matching sequence number.
type Watcher struct {
	ctx         context.Context
	ctxCancel   context.CancelFunc
	wg          sync.WaitGroup
	mutex       sync.Mutex
	addresses   map[netip.Addr]*tracked
	local       map[netip.Addr]struct{}
	listenDelay time.Duration
	logger      voidlib.Logger
	now         func() time.Time

	parser  *gopacket.DecodingLayerParser
	eth     layers.Ethernet
	ip4     layers.IPv4
	ip6     layers.IPv6
	tcp     layers.TCP
	decoded []gopacket.LayerType
}

// Register starts to track an address.
func (w *Watcher) Register(ip net.IP) {
	addr, ok := toAddr(ip)
	if !ok {
		return
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, ok := w.addresses[addr]; !ok {
		w.addresses[addr] = &tracked{}
	}
}

// Remove forgets an address and its samples.
func (w *Watcher) Remove(ip net.IP) {
	addr, ok := toAddr(ip)
	if !ok {
		return
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	delete(w.addresses, addr)
}

// Ping returns a smoothed round trip of an address.
func (w *Watcher) Ping(ip net.IP) (time.Duration, bool) {
	addr, ok := toAddr(ip)
	if !ok {
		return 0, false
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if t, ok := w.addresses[addr]; ok && t.samples > 0 {
		return t.ping, true
	}

	return 0, false
}

// Tracked returns a number of tracked addresses.
func (w *Watcher) Tracked() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return len(w.addresses)
}

// Run reads frames from a source until Shutdown is called. A source is
// closed on exit.
func (w *Watcher) Run(source Source, snapLen int) {
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer source.Close()

		buf := make([]byte, snapLen)

		for {
			n, err := source.ReadFrame(buf)

			switch {
			case w.ctx.Err() != nil:
				return
			case err == nil:
				w.HandleFrame(buf[:n])
			case isTimeout(err):
			default:
				w.logger.WarningError("cannot read a frame, stop watching", err)

				return
			}
		}
	}()
}

// HandleFrame processes a single Ethernet frame. It is not safe to call
// it concurrently: frames are expected in the order of capture.
func (w *Watcher) HandleFrame(frame []byte) {
	if err := w.parser.DecodeLayers(frame, &w.decoded); err != nil {
		var unsupported gopacket.UnsupportedLayerType
		if !errors.As(err, &unsupported) {
			return
		}
	}

	var src, dst netip.Addr

	hasTCP := false

	for _, layerType := range w.decoded {
		switch layerType {
		case layers.LayerTypeIPv4:
			src, _ = toAddr(w.ip4.SrcIP)
			dst, _ = toAddr(w.ip4.DstIP)
		case layers.LayerTypeIPv6:
			src, _ = toAddr(w.ip6.SrcIP)
			dst, _ = toAddr(w.ip6.DstIP)
		case layers.LayerTypeTCP:
			hasTCP = true
		}
	}

	if !hasTCP || !src.IsValid() || !dst.IsValid() {
		return
	}

	w.handleSegment(src, dst, &w.tcp)
}

func (w *Watcher) handleSegment(src, dst netip.Addr, tcp *layers.TCP) {
	now := w.now()

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, ok := w.local[src]; ok && tcp.PSH && tcp.ACK {
		if t, ok := w.addresses[dst]; ok && !t.sentAt.Add(w.listenDelay).After(now) {
			t.seq = tcp.Ack
			t.sentAt = now
			t.armed = true
		}
	}

	if _, ok := w.local[dst]; ok && tcp.ACK {
		if t, ok := w.addresses[src]; ok && t.armed && t.seq == tcp.Seq {
			t.armed = false

			if sample := now.Sub(t.sentAt); sample > minSample {
				t.update(sample)
			}
		}
	}
}

func (t *tracked) update(sample time.Duration) {
	if t.samples == 0 {
		t.ping = sample
	} else {
		t.ping = (3*t.ping + sample) / 4
	}

	t.samples++
}

// Shutdown stops reading frames.
func (w *Watcher) Shutdown() {
	w.ctxCancel()
	w.wg.Wait()
}

func toAddr(ip net.IP) (netip.Addr, bool) {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}, false
	}

	return addr.Unmap(), true
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }

	return errors.As(err, &netErr) && netErr.Timeout()
}

// NewWatcher creates a watcher which is fed by HandleFrame or Run.
func NewWatcher(opts Options) (*Watcher, error) {
	local, err := opts.getLocalAddresses()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	rv := &Watcher{
		ctx:         ctx,
		ctxCancel:   cancel,
		addresses:   map[netip.Addr]*tracked{},
		local:       local,
		listenDelay: opts.ListenDelay,
		logger:      opts.getLogger(),
		now:         opts.getClock(),
		decoded:     make([]gopacket.LayerType, 0, 4),
	}

	rv.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &rv.eth, &rv.ip4, &rv.ip6, &rv.tcp)

	return rv, nil
}

// Start captures frames of a configured interface and port. It
// returns ErrUnsupportedPlatform where raw capture is not available.
func Start(opts Options) (*Watcher, error) {
	watcher, err := NewWatcher(opts)
	if err != nil {
		return nil, err
	}

	filter, err := portFilter(opts.Port, uint32(opts.getSnapLen()))
	if err != nil {
		return nil, err
	}

	source, err := openCapture(opts.Interface, filter, opts.getTimeout())
	if err != nil {
		return nil, fmt.Errorf("cannot capture %s: %w", opts.Interface, err)
	}

	watcher.Run(source, opts.getSnapLen())
	watcher.logger.BindStr("interface", opts.Interface).BindInt("port", int(opts.Port)).Info("Transport watcher has been started")

	return watcher, nil
}
