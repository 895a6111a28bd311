package scene

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is how long a scene ID stays acceptable after issuance.
const DefaultTTL = 30 * time.Minute

// Identifier generates and validates scene IDs. A scene ID identifies one
// login attempt and self-encodes its issuance timestamp as a leading
// millisecond epoch segment: "{msEpoch}-{randomBase36}".
type Identifier struct {
	ttl time.Duration
	now func() time.Time
}

// NewIdentifier creates an Identifier with the given TTL.
func NewIdentifier(ttl time.Duration) *Identifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Identifier{ttl: ttl, now: time.Now}
}

// Generate returns a fresh scene ID.
func (i *Identifier) Generate() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(b[:]), 36)
	return fmt.Sprintf("%d-%s", i.now().UnixMilli(), suffix)
}

// Validate reports whether id parses and its embedded timestamp is younger
// than the TTL. It fails closed: anything unparsable is invalid. This check
// is independent of the session store's own expiry tracking.
func (i *Identifier) Validate(id string) bool {
	issued, ok := ParseTimestamp(id)
	if !ok {
		return false
	}
	return i.now().Sub(issued) < i.ttl
}

// ParseTimestamp extracts the issuance time self-encoded in a scene ID,
// failing closed on anything unparsable.
func ParseTimestamp(id string) (time.Time, bool) {
	head, _, ok := strings.Cut(id, "-")
	if !ok || head == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(head, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
