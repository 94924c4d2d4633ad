package battle

import (
	"sort"
	"strings"
	"sync"
)

// Feature flags consulted by the orchestration.
const (
	FlagOpponentDelayMessage = "opponentDelayMessage"
	FlagSkipRoundCooldown    = "skipRoundCooldown"
)

// Flags answers whether a feature flag is enabled. Flag storage is external.
type Flags interface {
	Enabled(name string) bool
}

// FlagSet is an in-memory Flags implementation.
type FlagSet struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

// NewFlagSet enables the given flags.
func NewFlagSet(names ...string) *FlagSet {
	fs := &FlagSet{enabled: make(map[string]bool)}
	for _, n := range names {
		fs.Set(n, true)
	}
	return fs
}

// ParseFlags builds a FlagSet from a comma separated list.
func ParseFlags(csv string) *FlagSet {
	var names []string
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			names = append(names, p)
		}
	}
	return NewFlagSet(names...)
}

// Enabled implements Flags.
func (f *FlagSet) Enabled(name string) bool {
	if f == nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.enabled[name]
}

// Set toggles a flag.
func (f *FlagSet) Set(name string, on bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if on {
		f.enabled[name] = true
	} else {
		delete(f.enabled, name)
	}
}

// Names returns the enabled flags sorted.
func (f *FlagSet) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.enabled))
	for n := range f.enabled {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
