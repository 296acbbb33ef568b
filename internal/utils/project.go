package utils

import (
	"os"
	"path"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// ProjectName derives a display name for the project rooted at rootDirectory.
// When the root carries a parseable go.mod the final element of its module path
// is used; otherwise the root directory's base name is returned.
func ProjectName(rootDirectory string) string {
	moduleFilePath := filepath.Join(rootDirectory, GoModuleFileName)
	moduleFileBytes, readError := os.ReadFile(moduleFilePath)
	if readError == nil {
		modulePath := modfile.ModulePath(moduleFileBytes)
		if modulePath != "" {
			return path.Base(modulePath)
		}
	}
	return filepath.Base(filepath.Clean(rootDirectory))
}
