// Package pattern compiles gitignore-style exclusion rules into an immutable Matcher.
package pattern

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mattsilv/codesight/internal/utils"
)

const (
	negationPrefix       = "!"
	directorySuffix      = "/"
	anySegmentPrefix     = "**/"
	malformedGlobMessage = "malformed exclusion pattern %q: %w"
)

// Inputs carries every source of exclusion rules consumed by Compile.
type Inputs struct {
	// UserPatterns are caller-supplied exclusions with the highest precedence.
	UserPatterns []string
	// GitignoreLines are the project's .gitignore patterns, comments already stripped.
	GitignoreLines []string
	// IncludeTests keeps test directories and test files in the collection.
	IncludeTests bool
	// IncludeSelf keeps the tool's own working directory in the collection.
	IncludeSelf bool
	// IncludeStructural keeps low-signal structural files such as manifests.
	IncludeStructural bool
	// OutputFileName is the name of the assembled document. The output file and
	// the prompt-override directory are excluded even with IncludeSelf so a
	// prior run's artifacts never feed the next collection. Empty selects the
	// default output name.
	OutputFileName string
}

// rule is one compiled exclusion pattern.
type rule struct {
	glob          string
	negated       bool
	directoryOnly bool
}

// Matcher evaluates a relative path against ordered rule tiers. Tiers are
// consulted highest precedence first; within a tier the last matching rule
// decides, following gitignore semantics. Matcher is immutable after Compile.
type Matcher struct {
	tiers [][]rule
}

// builtinPatterns always exclude version-control metadata, byte-compiled
// artifacts, virtual environments, lock files, build output, large data files,
// and OS metadata regardless of project configuration.
var builtinPatterns = []string{
	utils.GitDirectoryName + "/",
	".hg/",
	".svn/",
	"__pycache__/",
	"*.pyc",
	"*.pyo",
	"*.so",
	"node_modules/",
	"vendor/",
	"build/",
	"dist/",
	"target/",
	"*.egg-info/",
	".venv/",
	"venv/",
	"env/",
	".env",
	"*.log",
	"*.lock",
	"package-lock.json",
	"yarn.lock",
	"go.sum",
	"*.csv",
	"*.json",
	"*.xml",
	"*.yaml",
	"*.yml",
	"*.bak",
	utils.GitIgnoreFileName,
	utils.ConfigFileName,
	".DS_Store",
	"Thumbs.db",
}

// structuralPatterns exclude files that describe a project rather than implement it.
var structuralPatterns = []string{
	"*.toml",
	"setup.py",
	"setup.cfg",
	"requirements.txt",
	"LICENSE",
	"Dockerfile",
	"docker-compose.yml",
	"Makefile",
	utils.GoModuleFileName,
	"__init__.py",
	"__main__.py",
	"conftest.py",
}

// testPatterns exclude test directories and test files when tests are not requested.
var testPatterns = []string{
	"test/",
	"tests/",
	"testdata/",
	"*_test.go",
	"*_test.py",
	"test_*.py",
}

// Compile builds a Matcher from the provided inputs. Precedence, highest to
// lowest: user patterns, the built-in set (including the self-referential
// working-directory rule and, conditionally, structural files), the project
// .gitignore, and finally test patterns when tests are excluded. The output
// file and the prompt-override directory are appended to the built-in tier
// unconditionally; IncludeSelf relaxes only the blanket working-directory
// rule. A malformed glob aborts compilation; no partial rule set is ever
// returned.
func Compile(inputs Inputs) (*Matcher, error) {
	builtin := make([]string, 0, len(builtinPatterns)+len(structuralPatterns)+4)
	builtin = append(builtin, builtinPatterns...)
	if !inputs.IncludeSelf {
		builtin = append(builtin, utils.WorkingDirectoryName+directorySuffix)
	}
	if !inputs.IncludeStructural {
		builtin = append(builtin, structuralPatterns...)
	}

	outputFileName := strings.TrimSpace(inputs.OutputFileName)
	if outputFileName == "" {
		outputFileName = utils.OutputFileName
	}
	builtin = append(builtin,
		outputFileName,
		utils.WorkingDirectoryName+directorySuffix+outputFileName,
		utils.WorkingDirectoryName+directorySuffix+utils.PromptDirectoryName+directorySuffix,
	)

	var conditionalTestPatterns []string
	if !inputs.IncludeTests {
		conditionalTestPatterns = testPatterns
	}

	tierSources := [][]string{
		utils.DeduplicatePatterns(inputs.UserPatterns),
		builtin,
		inputs.GitignoreLines,
		conditionalTestPatterns,
	}

	matcher := &Matcher{tiers: make([][]rule, 0, len(tierSources))}
	for _, source := range tierSources {
		compiledTier, compileError := compileTier(source)
		if compileError != nil {
			return nil, compileError
		}
		matcher.tiers = append(matcher.tiers, compiledTier)
	}
	return matcher, nil
}

// compileTier parses and validates one ordered list of raw patterns.
func compileTier(rawPatterns []string) ([]rule, error) {
	compiled := make([]rule, 0, len(rawPatterns))
	for _, rawPattern := range rawPatterns {
		trimmedPattern := strings.TrimSpace(rawPattern)
		if trimmedPattern == "" {
			continue
		}
		parsedRule, parseError := parseRule(trimmedPattern)
		if parseError != nil {
			return nil, parseError
		}
		compiled = append(compiled, parsedRule)
	}
	return compiled, nil
}

// parseRule translates one gitignore pattern into a doublestar glob. A pattern
// containing a slash is anchored to the scan root; otherwise it matches the
// final path segment at any depth.
func parseRule(rawPattern string) (rule, error) {
	parsed := rule{}

	patternBody := rawPattern
	if strings.HasPrefix(patternBody, negationPrefix) {
		parsed.negated = true
		patternBody = strings.TrimPrefix(patternBody, negationPrefix)
	}
	if strings.HasSuffix(patternBody, directorySuffix) {
		parsed.directoryOnly = true
		patternBody = strings.TrimSuffix(patternBody, directorySuffix)
	}
	patternBody = strings.TrimPrefix(patternBody, directorySuffix)
	patternBody = strings.ReplaceAll(patternBody, "\\", "/")

	anchored := strings.Contains(patternBody, directorySuffix)
	if !anchored {
		patternBody = anySegmentPrefix + patternBody
	}

	if !doublestar.ValidatePattern(patternBody) {
		return rule{}, fmt.Errorf(malformedGlobMessage, rawPattern, doublestar.ErrBadPattern)
	}

	parsed.glob = patternBody
	return parsed, nil
}

// Matches reports whether the path relative to the scan root is excluded.
// Evaluation is case-sensitive against the forward-slash form of relativePath.
func (matcher *Matcher) Matches(relativePath string, isDirectory bool) bool {
	normalizedPath := strings.ReplaceAll(relativePath, "\\", "/")
	if normalizedPath == "." || normalizedPath == "" {
		return false
	}

	for _, tier := range matcher.tiers {
		matched, excluded := evaluateTier(tier, normalizedPath, isDirectory)
		if matched {
			return excluded
		}
	}
	return false
}

// evaluateTier applies every rule of a tier in order and reports whether any
// rule matched and, if so, whether the final decision is exclusion.
func evaluateTier(tier []rule, normalizedPath string, isDirectory bool) (matched bool, excluded bool) {
	for _, candidateRule := range tier {
		if !candidateRule.matchesPath(normalizedPath, isDirectory) {
			continue
		}
		matched = true
		excluded = !candidateRule.negated
	}
	return matched, excluded
}

// matchesPath reports whether the rule applies to the path itself or to one of
// its ancestor directories. Ancestor matches implement the gitignore behavior
// of excluding everything beneath an excluded directory.
func (candidateRule rule) matchesPath(normalizedPath string, isDirectory bool) bool {
	if isMatched, _ := doublestar.Match(candidateRule.glob, normalizedPath); isMatched {
		if candidateRule.directoryOnly && !isDirectory {
			return false
		}
		return true
	}

	for ancestor := path.Dir(normalizedPath); ancestor != "." && ancestor != "/"; ancestor = path.Dir(ancestor) {
		if isMatched, _ := doublestar.Match(candidateRule.glob, ancestor); isMatched {
			return true
		}
	}
	return false
}
