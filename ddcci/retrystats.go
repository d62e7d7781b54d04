package ddcci

import (
	"fmt"
	"strings"
	"sync"
)

// OpClass names one of the four operation classes that carry independent
// retry caps and statistics.
type OpClass int

const (
	ClassWriteOnly OpClass = iota
	ClassWriteRead
	ClassMultiPartRead
	ClassMultiPartWrite

	numOpClasses
)

func (c OpClass) String() string {
	switch c {
	case ClassWriteOnly:
		return "write-only"
	case ClassWriteRead:
		return "write-read"
	case ClassMultiPartRead:
		return "multi-part-read"
	case ClassMultiPartWrite:
		return "multi-part-write"
	default:
		return "unknown"
	}
}

// DefaultCap and MaxCap bound the per-class retry cap. DefaultCap matches
// the small constant ddcutil-style implementations have used historically;
// MaxCap is a sanity ceiling, not a protocol requirement.
const (
	DefaultCap = 3
	MaxCap     = 10
)

type classStats struct {
	cap   int
	tries [MaxCap + 1]int // indexed 1..cap; tries[0] unused
	codes map[Kind]int
}

// RetryStats holds per-class retry caps and histograms. All access is
// behind a single mutex — updates are infrequent relative to exchanges, so
// there is no need for finer-grained locking.
type RetryStats struct {
	mu      sync.Mutex
	classes [numOpClasses]classStats
}

func NewRetryStats() *RetryStats {
	r := &RetryStats{}
	r.Reset()
	return r
}

// SetCap changes the retry cap for a class. n must be in [1, MaxCap].
func (r *RetryStats) SetCap(c OpClass, n int) error {
	if n < 1 || n > MaxCap {
		return newErr(KindInvalidMode, "SetCap")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[c].cap = n
	return nil
}

func (r *RetryStats) GetCap(c OpClass) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.classes[c].cap
}

// Record accumulates one terminal outcome: status is the Kind the operation
// ended with (KindNone for success), and attempts is how many tries it took.
func (r *RetryStats) Record(c OpClass, status Kind, attempts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs := &r.classes[c]
	if attempts >= 1 && attempts < len(cs.tries) {
		cs.tries[attempts]++
	}
	cs.codes[status]++
}

// Reset clears all histograms and restores every class's cap to
// DefaultCap. Idempotent.
func (r *RetryStats) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.classes {
		r.classes[i] = classStats{cap: DefaultCap, codes: make(map[Kind]int)}
	}
}

// Report renders a human-readable summary. depth 0 prints only per-class
// try-count histograms; depth > 0 additionally lists terminal status
// counts, for use in verbose diagnostic output. Idempotent (read-only).
func (r *RetryStats) Report(depth int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for c := OpClass(0); c < numOpClasses; c++ {
		cs := &r.classes[c]
		fmt.Fprintf(&b, "%s (cap=%d):\n", c, cs.cap)
		for attempt := 1; attempt <= cs.cap; attempt++ {
			if cs.tries[attempt] == 0 {
				continue
			}
			fmt.Fprintf(&b, "  succeeded/terminated on attempt %d: %d\n", attempt, cs.tries[attempt])
		}
		if depth > 0 {
			for k, n := range cs.codes {
				fmt.Fprintf(&b, "  %s: %d\n", k, n)
			}
		}
	}
	return b.String()
}
