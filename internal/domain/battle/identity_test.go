package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func TestIsStale(t *testing.T) {
	cases := []struct {
		name string
		in   RoundIdentity
		auth RoundIdentity
		want bool
	}{
		{"empty authority", RoundIdentity{Sequence: intp(1)}, RoundIdentity{}, false},
		{"lower sequence", RoundIdentity{Sequence: intp(1)}, RoundIdentity{Sequence: intp(2)}, true},
		{"equal sequence", RoundIdentity{Sequence: intp(2)}, RoundIdentity{Sequence: intp(2)}, false},
		{"sequence beats round index", RoundIdentity{Sequence: intp(3), RoundIndex: intp(1)}, RoundIdentity{Sequence: intp(2), RoundIndex: intp(5)}, false},
		{"lower round index", RoundIdentity{RoundIndex: intp(1)}, RoundIdentity{RoundIndex: intp(2)}, true},
		{"higher round index", RoundIdentity{RoundIndex: intp(3)}, RoundIdentity{RoundIndex: intp(2)}, false},
		{"token differs without ordering", RoundIdentity{MatchToken: strp("b")}, RoundIdentity{MatchToken: strp("a")}, true},
		{"token differs with round index", RoundIdentity{MatchToken: strp("b"), RoundIndex: intp(2)}, RoundIdentity{MatchToken: strp("a"), RoundIndex: intp(2)}, false},
		{"same token", RoundIdentity{MatchToken: strp("a")}, RoundIdentity{MatchToken: strp("a"), Sequence: intp(9)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsStale(tc.in, tc.auth))
		})
	}
}

func TestAuthoritySequenceIsMonotonic(t *testing.T) {
	var a Authority
	seqs := []int{1, 3, 2, 3, 7, 0, 5, 8}
	highest := 0
	for _, s := range seqs {
		accepted := a.Update(RoundIdentity{Sequence: intp(s)})
		assert.Equal(t, s >= highest, accepted, "sequence %d", s)
		if accepted {
			highest = s
		}
		require.NotNil(t, a.Current().Sequence)
		assert.Equal(t, highest, *a.Current().Sequence)
	}
}

func TestAuthorityMergesFields(t *testing.T) {
	var a Authority
	require.True(t, a.Update(NewRoundIdentity(1, "m1", 1)))
	require.True(t, a.Update(RoundIdentity{RoundIndex: intp(2)}))

	cur := a.Current()
	assert.Equal(t, 2, *cur.RoundIndex)
	assert.Equal(t, "m1", *cur.MatchToken)
	assert.Equal(t, 1, *cur.Sequence)

	assert.False(t, a.Update(RoundIdentity{MatchToken: strp("other")}))
	assert.Equal(t, "m1", *a.Current().MatchToken)

	a.Reset()
	assert.Equal(t, RoundIdentity{}, a.Current())
}

func TestIdentityOf(t *testing.T) {
	id, ok := IdentityOf(RoundEvaluated{RoundIdentity: NewRoundIdentity(2, "tok", 4)})
	require.True(t, ok)
	assert.Equal(t, 4, *id.Sequence)

	id, ok = IdentityOf(map[string]any{"roundIndex": float64(3), "matchToken": "tok"})
	require.True(t, ok)
	assert.Equal(t, 3, *id.RoundIndex)
	assert.Nil(t, id.Sequence)

	_, ok = IdentityOf(map[string]any{"roundIndex": 1.5})
	assert.False(t, ok)
	_, ok = IdentityOf("nope")
	assert.False(t, ok)
}
