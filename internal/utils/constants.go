package utils

// Well-known file and directory names used across the project.
const (
	// WorkingDirectoryName is the tool's own working directory inside a project.
	WorkingDirectoryName = ".codesight"
	// OutputFileName is the default name of the assembled document.
	OutputFileName = "llm.txt"
	// PromptDirectoryName holds project-local prompt template overrides.
	PromptDirectoryName = "prompts"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// GoModuleFileName is the name of the Go module definition file.
	GoModuleFileName = "go.mod"
	// ConfigFileName is the name of the local configuration file.
	ConfigFileName = ".csconfig.yaml"
	// GlobalConfigDirectoryName is the directory under the user home holding global configuration.
	GlobalConfigDirectoryName = ".codesight"
)

// LoggerInitializationFailedMessageFormat reports a failure to construct the application logger.
const LoggerInitializationFailedMessageFormat = "logger initialization failed: %w"

// ApplicationExecutionFailedMessage reports a fatal application error.
const ApplicationExecutionFailedMessage = "application execution failed"
