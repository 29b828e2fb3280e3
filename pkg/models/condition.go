// Package models provides conditional expression evaluation for workflow actions.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionInterpreter evaluates the boolean expressions used by conditional
// actions. Expressions are evaluated after placeholder resolution, so operands
// are plain literals by the time they arrive here.
//
// Supported forms: an empty expression (true), a bare boolean literal, or a
// single binary comparison `lhs OP rhs` with OP one of ==, !=, >=, <=, >, <,
// contains. Both sides are compared numerically when both parse as numbers,
// otherwise as strings.
type ConditionInterpreter struct{}

var comparisonOps = []string{"==", "!=", ">=", "<=", ">", "<", " contains "}

func (ConditionInterpreter) Evaluate(expression string) (bool, error) {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return true, nil
	}

	for _, op := range comparisonOps {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}

		lhs := trimOperand(expr[:idx])
		rhs := trimOperand(expr[idx+len(op):])

		return compare(lhs, strings.TrimSpace(op), rhs)
	}

	result, err := strconv.ParseBool(expr)
	if err != nil {
		return false, fmt.Errorf("cannot evaluate %q as a boolean expression: %w", expression, err)
	}

	return result, nil
}

func trimOperand(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}

	return s
}

func compare(lhs, op, rhs string) (bool, error) {
	lnum, lerr := strconv.ParseFloat(lhs, 64)
	rnum, rerr := strconv.ParseFloat(rhs, 64)
	numeric := lerr == nil && rerr == nil

	switch op {
	case "==":
		if numeric {
			return lnum == rnum, nil
		}

		return lhs == rhs, nil
	case "!=":
		if numeric {
			return lnum != rnum, nil
		}

		return lhs != rhs, nil
	case ">":
		if !numeric {
			return lhs > rhs, nil
		}

		return lnum > rnum, nil
	case ">=":
		if !numeric {
			return lhs >= rhs, nil
		}

		return lnum >= rnum, nil
	case "<":
		if !numeric {
			return lhs < rhs, nil
		}

		return lnum < rnum, nil
	case "<=":
		if !numeric {
			return lhs <= rhs, nil
		}

		return lnum <= rnum, nil
	case "contains":
		return strings.Contains(lhs, rhs), nil
	default:
		return false, fmt.Errorf("unsupported operator %q", op)
	}
}
