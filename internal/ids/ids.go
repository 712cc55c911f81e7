// Package ids mints the identifiers used for entities and request tracing.
// ULIDs sort by creation time, which keeps index locality in Postgres and
// lets audit lines for one request cluster together.
package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New mints a ULID string. The monotonic entropy source needs the lock.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}
