// Package template resolves {{variable}} placeholders in action parameters
// against the execution's variable context.
package template

import (
	"regexp"

	"github.com/routinely/routinely/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Resolve replaces every placeholder in input with the matching context
// variable. An unresolved placeholder becomes an empty string and its name is
// returned as a warning; it is never a hard failure.
func Resolve(input string, executionCtx *models.ExecutionContext) (string, []string) {
	var unresolved []string

	resolved := placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := executionCtx.Get(name)
		if !ok {
			unresolved = append(unresolved, name)

			return ""
		}

		return value
	})

	return resolved, unresolved
}

// Placeholders returns the variable names referenced by input, in order of
// appearance. Used by the validator to check references before execution.
func Placeholders(input string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(input, -1)
	if len(matches) == 0 {
		return nil
	}

	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, match[1])
	}

	return names
}
