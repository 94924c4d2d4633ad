package battle

import (
	"math"
	"sync"
)

// RoundIdentity orders round-scoped events. Nil fields are unknown.
type RoundIdentity struct {
	RoundIndex *int    `json:"roundIndex,omitempty"`
	MatchToken *string `json:"matchToken,omitempty"`
	Sequence   *int    `json:"sequence,omitempty"`
}

// Identity returns r. Payloads embedding RoundIdentity inherit it.
func (r RoundIdentity) Identity() RoundIdentity { return r }

// Identified is implemented by payloads carrying a round identity.
type Identified interface {
	Identity() RoundIdentity
}

// NewRoundIdentity builds a fully populated identity.
func NewRoundIdentity(roundIndex int, matchToken string, sequence int) RoundIdentity {
	return RoundIdentity{RoundIndex: &roundIndex, MatchToken: &matchToken, Sequence: &sequence}
}

// IdentityOf extracts an identity from a payload. Generic decoded JSON maps
// are accepted.
func IdentityOf(detail any) (RoundIdentity, bool) {
	switch v := detail.(type) {
	case Identified:
		return v.Identity(), true
	case map[string]any:
		var id RoundIdentity
		if n, ok := intValue(v["roundIndex"]); ok {
			id.RoundIndex = &n
		}
		if n, ok := intValue(v["sequence"]); ok {
			id.Sequence = &n
		}
		if s, ok := v["matchToken"].(string); ok && s != "" {
			id.MatchToken = &s
		}
		return id, id.RoundIndex != nil || id.Sequence != nil || id.MatchToken != nil
	default:
		return RoundIdentity{}, false
	}
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// IsStale reports whether in is older than auth. Sequence decides when both
// carry one; otherwise round index decides when both carry differing values.
// A differing match token only marks an identity stale when it carries no
// ordering information at all.
func IsStale(in, auth RoundIdentity) bool {
	if in.Sequence != nil && auth.Sequence != nil {
		return *in.Sequence < *auth.Sequence
	}
	if in.RoundIndex != nil && auth.RoundIndex != nil && *in.RoundIndex != *auth.RoundIndex {
		return *in.RoundIndex < *auth.RoundIndex
	}
	if in.MatchToken != nil && auth.MatchToken != nil && *in.MatchToken != *auth.MatchToken {
		return in.Sequence == nil && in.RoundIndex == nil
	}
	return false
}

// Authority holds the newest accepted round identity. It only moves forward.
type Authority struct {
	mu      sync.Mutex
	current RoundIdentity
}

// Current returns a copy of the authority identity.
func (a *Authority) Current() RoundIdentity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Update merges in when it is not stale and reports whether it was accepted.
func (a *Authority) Update(in RoundIdentity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if IsStale(in, a.current) {
		return false
	}
	if in.RoundIndex != nil {
		n := *in.RoundIndex
		a.current.RoundIndex = &n
	}
	if in.MatchToken != nil {
		s := *in.MatchToken
		a.current.MatchToken = &s
	}
	if in.Sequence != nil {
		n := *in.Sequence
		a.current.Sequence = &n
	}
	return true
}

// Reset forgets the authority identity.
func (a *Authority) Reset() {
	a.mu.Lock()
	a.current = RoundIdentity{}
	a.mu.Unlock()
}
