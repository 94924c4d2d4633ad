package match

import "github.com/execution-hub/matchflow/internal/fsm"

// Intent rejection reasons.
const (
	ReasonInvalidIntent     = "invalid_intent"
	ReasonNoMachine         = "no_machine"
	ReasonIntentRejected    = "intent_rejected"
	ReasonDispatchException = "dispatch_exception"
)

// IntentResult is the uniform answer to DispatchIntent. Callers branch on
// Accepted; Reason names the failure mode otherwise.
type IntentResult struct {
	Accepted bool                `json:"accepted"`
	Rejected bool                `json:"rejected"`
	Reason   string              `json:"reason,omitempty"`
	Result   *fsm.DispatchResult `json:"result,omitempty"`
	Error    error               `json:"-"`
}

// ErrorMessage returns the dispatch error text, or "".
func (r IntentResult) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Error()
}

func rejected(reason string) IntentResult {
	return IntentResult{Rejected: true, Reason: reason}
}
