package battle

import "sync"

// TimerState is the MemoryEngine timer view.
type TimerState struct {
	Paused      bool `json:"paused"`
	Suspensions int  `json:"suspensions"`
}

// MemoryEngine is an in-process Engine that tallies recorded rounds.
type MemoryEngine struct {
	mu          sync.Mutex
	seed        *int64
	rounds      int
	scores      Scores
	paused      bool
	suspensions int
	errors      []string
	history     []RoundOutcome
}

// NewMemoryEngine creates an engine. A nil seed reports no seed.
func NewMemoryEngine(seed *int64) *MemoryEngine {
	e := &MemoryEngine{}
	if seed != nil {
		s := *seed
		e.seed = &s
	}
	return e
}

func (e *MemoryEngine) RoundsPlayed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rounds
}

func (e *MemoryEngine) Scores() Scores {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scores
}

func (e *MemoryEngine) Seed() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seed == nil {
		return 0, false
	}
	return *e.seed, true
}

func (e *MemoryEngine) TimerState() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return TimerState{Paused: e.paused, Suspensions: e.suspensions}
}

func (e *MemoryEngine) HandleTabInactive() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		e.paused = true
		e.suspensions++
	}
}

func (e *MemoryEngine) HandleTabActive() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
}

func (e *MemoryEngine) InjectError(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors = append(e.errors, msg)
}

// RecordRound tallies an outcome and returns the new scores.
func (e *MemoryEngine) RecordRound(o RoundOutcome) Scores {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rounds++
	switch o.Winner {
	case WinnerPlayer:
		e.scores.Player++
	case WinnerOpponent:
		e.scores.Opponent++
	}
	e.history = append(e.history, o)
	return e.scores
}

// SetScores overrides the tally.
func (e *MemoryEngine) SetScores(s Scores) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scores = s
}

// Errors returns injected error messages.
func (e *MemoryEngine) Errors() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.errors...)
}

// History returns recorded outcomes in order.
func (e *MemoryEngine) History() []RoundOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]RoundOutcome(nil), e.history...)
}
