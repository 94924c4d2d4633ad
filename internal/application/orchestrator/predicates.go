package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/fsm"
)

// BattlePredicates returns the guard evaluators for battle tables. Every
// predicate expects a *battle.MatchContext as machine data.
func BattlePredicates() fsm.Predicates {
	return fsm.Predicates{
		battle.GuardWinCondition: winCondition,
		battle.GuardFeatureFlag:  featureFlag,
		battle.GuardExpression:   expression,
		battle.GuardStore:        storeValue,
	}
}

func matchContext(c *fsm.Context) (*battle.MatchContext, error) {
	mc, ok := c.Data.(*battle.MatchContext)
	if !ok || mc == nil {
		return nil, fmt.Errorf("machine data is %T, want *battle.MatchContext", c.Data)
	}
	return mc, nil
}

// winCondition passes when either side reached the points threshold. The
// argument overrides the threshold held in the context store.
func winCondition(c *fsm.Context, arg string) (bool, error) {
	mc, err := matchContext(c)
	if err != nil {
		return false, err
	}
	points := mc.PointsToWin()
	if arg = strings.TrimSpace(arg); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return false, fmt.Errorf("win_condition: invalid points %q", arg)
		}
		points = n
	}
	if mc.Engine == nil {
		return false, nil
	}
	s := mc.Engine.Scores()
	return s.Player >= points || s.Opponent >= points, nil
}

func featureFlag(c *fsm.Context, arg string) (bool, error) {
	mc, err := matchContext(c)
	if err != nil {
		return false, err
	}
	return mc.FlagEnabled(arg), nil
}

func expression(c *fsm.Context, arg string) (bool, error) {
	mc, err := matchContext(c)
	if err != nil {
		return false, err
	}
	ok, err := EvaluateCondition(arg, BuildParams(mc.Params()))
	if err != nil {
		return false, fmt.Errorf("expression %q: %w", arg, err)
	}
	return ok, nil
}

// storeValue passes when the store holds a truthy value under arg.
func storeValue(c *fsm.Context, arg string) (bool, error) {
	mc, err := matchContext(c)
	if err != nil {
		return false, err
	}
	v, ok := mc.Get(arg)
	if !ok {
		return false, nil
	}
	return truthy(v), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
