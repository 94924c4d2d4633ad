package battle

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_engine.go -package=mocks . Engine

// Scores is the running match score.
type Scores struct {
	Player   int `json:"player"`
	Opponent int `json:"opponent"`
}

// Engine is the game engine a match context exposes to the orchestration.
// Scoring itself lives behind this interface.
type Engine interface {
	RoundsPlayed() int
	Scores() Scores
	Seed() (int64, bool)
	TimerState() any
	HandleTabInactive()
	HandleTabActive()
	InjectError(msg string)
}

// Round winners.
const (
	WinnerPlayer   = "player"
	WinnerOpponent = "opponent"
	WinnerDraw     = "draw"
)

// RoundOutcome is the resolved result of a round.
type RoundOutcome struct {
	Winner        string  `json:"winner"`
	Stat          string  `json:"stat,omitempty"`
	PlayerValue   float64 `json:"playerValue"`
	OpponentValue float64 `json:"opponentValue"`
	Message       string  `json:"message,omitempty"`
}

// RoundRecorder is implemented by engines that accept resolved outcomes.
type RoundRecorder interface {
	RecordRound(outcome RoundOutcome) Scores
}
