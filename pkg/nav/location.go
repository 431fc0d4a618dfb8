package nav

import (
	"errors"
	"sync"
)

// ErrHistoryBlocked is returned by a Location whose host refuses history
// writes (sandboxed frames, for example).
var ErrHistoryBlocked = errors.New("nav: history write blocked")

// Location is the addressable location of one shopper session: the browser
// hash plus scroll position.
type Location interface {
	// Current returns the current fragment.
	Current() string

	// Push adds a history entry for fragment.
	Push(fragment string) error

	// Replace overwrites the current history entry.
	Replace(fragment string) error

	// ScrollToTop resets the viewport scroll position.
	ScrollToTop()
}

// MemoryLocation is an in-process Location with a history stack. It is
// used by tests and by the CLI. It is safe for concurrent use.
type MemoryLocation struct {
	mu      sync.Mutex
	entries []string
	index   int
	blocked bool
	scrolls int
}

// NewMemoryLocation creates a location whose current fragment is initial.
func NewMemoryLocation(initial string) *MemoryLocation {
	return &MemoryLocation{entries: []string{initial}}
}

// Current implements Location.
func (l *MemoryLocation) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[l.index]
}

// Push implements Location. Forward history is discarded.
func (l *MemoryLocation) Push(fragment string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.blocked {
		return ErrHistoryBlocked
	}
	l.entries = append(l.entries[:l.index+1], fragment)
	l.index++
	return nil
}

// Replace implements Location.
func (l *MemoryLocation) Replace(fragment string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.blocked {
		return ErrHistoryBlocked
	}
	l.entries[l.index] = fragment
	return nil
}

// ScrollToTop implements Location.
func (l *MemoryLocation) ScrollToTop() {
	l.mu.Lock()
	l.scrolls++
	l.mu.Unlock()
}

// Back moves one entry back and returns the new current fragment.
// At the first entry it returns the current fragment and false.
func (l *MemoryLocation) Back() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.index == 0 {
		return l.entries[0], false
	}
	l.index--
	return l.entries[l.index], true
}

// Forward moves one entry forward.
func (l *MemoryLocation) Forward() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.index == len(l.entries)-1 {
		return l.entries[l.index], false
	}
	l.index++
	return l.entries[l.index], true
}

// Observe records a location change made by the host rather than through
// Push (a back button or a typed URL). A fragment equal to an adjacent
// entry moves there; anything else becomes a new entry. Observe ignores
// the blocked flag.
func (l *MemoryLocation) Observe(fragment string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case sameFragment(l.entries[l.index], fragment):
	case l.index > 0 && sameFragment(l.entries[l.index-1], fragment):
		l.index--
	case l.index < len(l.entries)-1 && sameFragment(l.entries[l.index+1], fragment):
		l.index++
	default:
		l.entries = append(l.entries[:l.index+1], fragment)
		l.index++
	}
}

func sameFragment(a, b string) bool {
	return normalizeFragment(a) == normalizeFragment(b)
}

// SetBlocked makes subsequent writes fail with ErrHistoryBlocked.
func (l *MemoryLocation) SetBlocked(blocked bool) {
	l.mu.Lock()
	l.blocked = blocked
	l.mu.Unlock()
}

// History returns a copy of the history entries.
func (l *MemoryLocation) History() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Scrolls returns how many times ScrollToTop was called.
func (l *MemoryLocation) Scrolls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scrolls
}
