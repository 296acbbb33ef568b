package truncate_test

import (
	"strings"
	"testing"

	"github.com/mattsilv/codesight/internal/truncate"
)

const sampleSource = `import os
from pathlib import Path

def build(target):
    body_line_one = 1
    body_line_two = 2
    return body_line_one + body_line_two

class Builder:
    def run(self):
        return build("all")

func Process(input string) string {
	return input
}
`

// TestReduceKeepsImportsAndDefinitions verifies the structural subset survives.
func TestReduceKeepsImportsAndDefinitions(testingInstance *testing.T) {
	policy := truncate.NewLinePolicy()
	reduced := policy.Reduce(sampleSource)

	expectedLines := []string{
		"import os",
		"from pathlib import Path",
		"def build(target):",
		"class Builder:",
		"func Process(input string) string {",
		truncate.TruncationMarker,
	}
	for _, expectedLine := range expectedLines {
		if !strings.Contains(reduced, expectedLine) {
			testingInstance.Errorf("expected reduced content to contain %q", expectedLine)
		}
	}
}

// TestReduceDropsBodies verifies no body line survives a reduction.
func TestReduceDropsBodies(testingInstance *testing.T) {
	policy := truncate.NewLinePolicy()
	reduced := policy.Reduce(sampleSource)

	droppedLines := []string{
		"body_line_one = 1",
		"return body_line_one",
		"return input",
	}
	for _, droppedLine := range droppedLines {
		if strings.Contains(reduced, droppedLine) {
			testingInstance.Errorf("expected reduced content to drop %q", droppedLine)
		}
	}
}

// TestReduceIsPure verifies identical input yields identical output.
func TestReduceIsPure(testingInstance *testing.T) {
	policy := truncate.NewLinePolicy()
	if policy.Reduce(sampleSource) != policy.Reduce(sampleSource) {
		testingInstance.Error("expected Reduce to be deterministic")
	}
	if policy.Name() == "" {
		testingInstance.Error("expected a non-empty policy name")
	}
}
