// Package prompt selects the preamble text embedded at the top of the document.
package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattsilv/codesight/internal/types"
	"github.com/mattsilv/codesight/internal/utils"
)

//go:embed templates/*.md
var embeddedTemplates embed.FS

const (
	templateDirectory   = "templates"
	templateExtension   = ".md"
	unknownPromptFormat = "unknown prompt type %q (supported: %s)"
)

// supportedTypes lists every bundled prompt template.
var supportedTypes = []string{types.PromptImprovement, types.PromptBugfix}

// Load returns the preamble for the requested prompt type. A project-local
// override at <root>/.codesight/prompts/<type>.md wins over the bundled
// template of the same name.
func Load(rootDirectory, promptType string) (string, error) {
	if !utils.ContainsString(supportedTypes, promptType) {
		return "", fmt.Errorf(unknownPromptFormat, promptType, strings.Join(supportedTypes, ", "))
	}

	overridePath := filepath.Join(rootDirectory, utils.WorkingDirectoryName, utils.PromptDirectoryName, promptType+templateExtension)
	if overrideBytes, readError := os.ReadFile(overridePath); readError == nil {
		return strings.TrimSpace(string(overrideBytes)), nil
	}

	templateBytes, readError := embeddedTemplates.ReadFile(templateDirectory + "/" + promptType + templateExtension)
	if readError != nil {
		return "", fmt.Errorf("read bundled prompt %s: %w", promptType, readError)
	}
	return strings.TrimSpace(string(templateBytes)), nil
}
