// Package tokenizer provides token counting behind a pluggable Counter interface.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content. A single Counter instance
// is constructed per run and passed explicitly to every consumer so costs stay
// comparable across the whole assembly.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// Config captures tokenizer selection parameters provided by the CLI.
type Config struct {
	Model string
}

const (
	defaultModel        = "gpt-4o"
	defaultEncodingName = "cl100k_base"
)

// NewCounter returns a Counter for the requested model alongside the resolved
// model or encoding name. Unknown models fall back to the default encoding.
func NewCounter(configuration Config) (Counter, string, error) {
	model := strings.TrimSpace(configuration.Model)
	if model == "" {
		model = defaultModel
	}
	lowerModel := strings.ToLower(model)

	encoding, encodingError := tiktoken.EncodingForModel(lowerModel)
	if encodingError == nil && encoding != nil {
		return encodingCounter{encoding: encoding, name: lowerModel}, model, nil
	}

	fallback, fallbackError := tiktoken.GetEncoding(defaultEncodingName)
	if fallbackError != nil {
		return nil, "", fmt.Errorf("initialize fallback tokenizer: %w", fallbackError)
	}
	return encodingCounter{encoding: fallback, name: defaultEncodingName}, defaultEncodingName, nil
}

// encodingCounter implements Counter over a tiktoken encoding.
type encodingCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// Name returns the resolved model or encoding name.
func (counter encodingCounter) Name() string {
	return counter.name
}

// CountString returns the number of tokens in the input.
func (counter encodingCounter) CountString(input string) (int, error) {
	return len(counter.encoding.Encode(input, nil, nil)), nil
}

var _ Counter = encodingCounter{}
