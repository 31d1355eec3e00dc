package allowlist

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	boltFileMode    = 0o600
	boltOpenTimeout = time.Second

	// expiration timestamp in unix nanoseconds followed by IP bytes
	boltExpireSize = 8
)

var boltBucket = []byte("allowlist")

var errBoltCorruptedValue = errors.New("corrupted value")

// Bolt is an allow list stored in a bbolt file. It survives restarts
// but cannot be shared between processes.
type Bolt struct {
	db  *bolt.DB
	now func() time.Time
}

func (b *Bolt) Put(_ context.Context, username string, ip net.IP, ttl time.Duration) error {
	var expireAt int64

	if ttl > 0 {
		expireAt = b.now().Add(ttl).UnixNano()
	}

	value := make([]byte, boltExpireSize, boltExpireSize+net.IPv6len)
	binary.BigEndian.PutUint64(value, uint64(expireAt))
	value = append(value, normalizeIP(ip)...)

	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(username), value)
	})
	if err != nil {
		return fmt.Errorf("cannot store %s: %w", username, err)
	}

	return nil
}

func (b *Bolt) Contains(_ context.Context, username string, ip net.IP) bool {
	found := false
	now := b.now()

	b.db.View(func(tx *bolt.Tx) error { //nolint: errcheck
		expireAt, stored, err := decodeBoltValue(tx.Bucket(boltBucket).Get([]byte(username)))
		if err != nil {
			return err
		}

		found = !isExpired(expireAt, now) && stored.Equal(ip)

		return nil
	})

	return found
}

func (b *Bolt) Remove(_ context.Context, username string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(username))
	})
	if err != nil {
		return fmt.Errorf("cannot remove %s: %w", username, err)
	}

	return nil
}

// Purge removes expired and corrupted entries.
func (b *Bolt) Purge(_ context.Context) (int, error) {
	purged := 0
	now := b.now()

	err := b.db.Update(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(boltBucket).Cursor()

		for key, value := cursor.First(); key != nil; {
			expireAt, _, err := decodeBoltValue(value)
			if err == nil && !isExpired(expireAt, now) {
				key, value = cursor.Next()

				continue
			}

			deleted := append([]byte(nil), key...)

			if err := cursor.Delete(); err != nil {
				return err //nolint: wrapcheck
			}

			purged++

			// a cursor has to be repositioned after Delete
			key, value = cursor.Seek(deleted)
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cannot purge expired entries: %w", err)
	}

	return purged, nil
}

func (b *Bolt) Size(_ context.Context) int {
	size := 0

	b.db.View(func(tx *bolt.Tx) error { //nolint: errcheck
		size = tx.Bucket(boltBucket).Stats().KeyN

		return nil
	})

	return size
}

func (b *Bolt) Close() error {
	return b.db.Close() //nolint: wrapcheck
}

func decodeBoltValue(value []byte) (int64, net.IP, error) {
	if value == nil {
		return 0, nil, errBoltCorruptedValue
	}

	switch len(value) - boltExpireSize {
	case net.IPv4len, net.IPv6len:
	default:
		return 0, nil, errBoltCorruptedValue
	}

	expireAt := int64(binary.BigEndian.Uint64(value))
	ip := make(net.IP, len(value)-boltExpireSize)

	copy(ip, value[boltExpireSize:])

	return expireAt, ip, nil
}

func isExpired(expireAt int64, now time.Time) bool {
	return expireAt != 0 && expireAt <= now.UnixNano()
}

func normalizeIP(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}

	return ip.To16()
}

// NewBolt opens or creates a bbolt file.
func NewBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, boltFileMode, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)

		return err //nolint: wrapcheck
	})
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("cannot create a bucket: %w", err)
	}

	return &Bolt{
		db:  db,
		now: time.Now,
	}, nil
}
