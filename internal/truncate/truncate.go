// Package truncate reduces file content to structural lines under budget pressure.
package truncate

import (
	"regexp"
	"strings"
)

// TruncationMarker separates retained import lines from retained definitions.
const TruncationMarker = "# File truncated - showing only definitions:"

// Policy decides how a file body is reduced once the token budget is under
// pressure. Implementations are pure: the same content always yields the same
// reduction. Language-specific refinements can be swapped in without touching
// the assembler.
type Policy interface {
	Name() string
	Reduce(content string) string
}

// linePolicyName identifies the default heuristic policy.
const linePolicyName = "line-heuristic"

// importLineExpression matches import-like statements at the start of a line.
// This is a heuristic line filter, not a parser; missed imports are acceptable.
var importLineExpression = regexp.MustCompile(`(?m)^(?:import\s.+|from\s+\S+\s+import\s.+|#include\s.+|require\s*\(.+|use\s+\S+.*)$`)

// definitionLineExpression matches top-level definition signatures: an
// introducer keyword followed by a name.
var definitionLineExpression = regexp.MustCompile(`(?m)^(?:def|class|func|fn|function|type|interface|impl|struct)\s+\S+.*$`)

// LinePolicy implements Policy with line-level pattern matching.
type LinePolicy struct {
	importExpression     *regexp.Regexp
	definitionExpression *regexp.Regexp
}

// NewLinePolicy constructs the default line-heuristic truncation policy.
func NewLinePolicy() *LinePolicy {
	return &LinePolicy{
		importExpression:     importLineExpression,
		definitionExpression: definitionLineExpression,
	}
}

// Name returns the policy identifier.
func (policy *LinePolicy) Name() string {
	return linePolicyName
}

// Reduce keeps only import-like lines and definition-like lines, separated by
// the truncation marker. The full body never survives a reduction.
func (policy *LinePolicy) Reduce(content string) string {
	importLines := policy.importExpression.FindAllString(content, -1)
	definitionLines := policy.definitionExpression.FindAllString(content, -1)

	var builder strings.Builder
	builder.WriteString(strings.Join(importLines, "\n"))
	builder.WriteString("\n\n")
	builder.WriteString(TruncationMarker)
	builder.WriteString("\n")
	builder.WriteString(strings.Join(definitionLines, "\n"))
	return builder.String()
}

var _ Policy = (*LinePolicy)(nil)
