package battle

// Interrupt resolution outcomes.
const (
	OutcomeRestartRound = "restartRound"
	OutcomeResumeLobby  = "resumeLobby"
	OutcomeAbortMatch   = "abortMatch"
)

// interruptOutcomes maps resolution events to outcomes. restartMatch shares
// the restartRound outcome.
var interruptOutcomes = map[string]string{
	EventRestartRound: OutcomeRestartRound,
	EventRestartMatch: OutcomeRestartRound,
	EventResumeLobby:  OutcomeResumeLobby,
	EventAbortMatch:   OutcomeAbortMatch,
	EventToLobby:      OutcomeResumeLobby,
}

// InterruptOutcome returns the outcome for an interrupt resolution event.
func InterruptOutcome(event string) (string, bool) {
	o, ok := interruptOutcomes[event]
	return o, ok
}
