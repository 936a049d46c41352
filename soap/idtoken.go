package soap

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// newCallID returns prefix followed by a time-ordered random hex token.
func newCallID(prefix string) string {
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(time.Now().Unix()))
	_, _ = rand.Read(buf[4:])
	return prefix + hex.EncodeToString(buf[:])
}
