package stats

import (
	"net"
	"strconv"
	"sync"
	"time"

	statsd "github.com/smira/go-statsd"
	"github.com/voidcheck/voidcheck/voidlib"
)

type streamInfo struct {
	tags      map[string]string
	startTime time.Time
}

func (s streamInfo) T(key string) statsd.Tag {
	return statsd.StringTag(key, s.tags[key])
}

func (s *streamInfo) Fill(evt voidlib.EventSessionStart) {
	s.startTime = evt.Timestamp()
	s.tags[TagIPFamily] = getIPFamily(evt.RemoteIP)
	s.tags[TagState] = evt.State.String()
	s.tags[TagGateway] = strconv.FormatBool(evt.Gateway)
}

func (s *streamInfo) Reset() {
	s.startTime = time.Time{}

	for k := range s.tags {
		delete(s.tags, k)
	}
}

var streamInfoPool = sync.Pool{
	New: func() any {
		return &streamInfo{
			tags: make(map[string]string),
		}
	},
}

func acquireStreamInfo() *streamInfo {
	return streamInfoPool.Get().(*streamInfo) //nolint: forcetypeassert
}

func releaseStreamInfo(info *streamInfo) {
	info.Reset()
	streamInfoPool.Put(info)
}

func getIPFamily(ip net.IP) string {
	if ip.To4() != nil {
		return TagIPFamilyIPv4
	}

	return TagIPFamilyIPv6
}
