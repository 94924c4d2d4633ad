package orchestrator

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Knetic/govaluate"
)

// EvaluateCondition evaluates a guard expression against params built with
// BuildParams. Empty condition returns true. Supports "true"/"false" literals.
// Dotted keys must be bracketed: [scores.player] >= 3.
func EvaluateCondition(condition string, params map[string]interface{}) (bool, error) {
	cond := strings.TrimSpace(condition)
	if cond == "" {
		return true, nil
	}
	switch strings.ToLower(cond) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	expr, err := govaluate.NewEvaluableExpression(cond)
	if err != nil {
		return false, err
	}
	result, err := expr.Evaluate(params)
	if err != nil {
		return false, err
	}
	switch v := result.(type) {
	case bool:
		return v, nil
	default:
		return false, errors.New("condition did not evaluate to boolean")
	}
}

// BuildParams converts v into expression parameters: top-level keys plus
// every nested key flattened with dots. Numbers become float64.
func BuildParams(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	return buildContextParams(raw)
}

func buildContextParams(contextJSON json.RawMessage) map[string]interface{} {
	params := map[string]interface{}{}
	if len(contextJSON) == 0 {
		return params
	}
	var raw interface{}
	if err := json.Unmarshal(contextJSON, &raw); err != nil {
		return params
	}
	if m, ok := raw.(map[string]interface{}); ok {
		for k, v := range m {
			params[k] = v
		}
		flattenContext("", m, params)
	}
	return params
}

func flattenContext(prefix string, m map[string]interface{}, out map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch vv := v.(type) {
		case map[string]interface{}:
			flattenContext(key, vv, out)
		default:
			out[key] = vv
		}
	}
}
