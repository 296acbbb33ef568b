// Package config loads ignore files and application configuration.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattsilv/codesight/internal/utils"
)

// LoadGitignorePatterns reads the .gitignore of the given directory and
// returns its patterns in file order. Blank lines and comments are dropped;
// negation patterns are preserved. A missing file yields no patterns.
//
// #nosec G304
func LoadGitignorePatterns(rootDirectory string) ([]string, error) {
	gitIgnoreFilePath := filepath.Join(rootDirectory, utils.GitIgnoreFileName)
	fileHandle, openFileError := os.Open(gitIgnoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading %s from %s: %w", utils.GitIgnoreFileName, rootDirectory, openFileError)
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", gitIgnoreFilePath, closeError)
		}
	}()

	var patterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
			continue
		}
		patterns = append(patterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, fmt.Errorf("reading %s: %w", gitIgnoreFilePath, scanError)
	}
	return utils.DeduplicatePatterns(patterns), nil
}
