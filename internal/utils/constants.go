package utils

const (
	// LocalConfigFileName is read from the key directory.
	LocalConfigFileName = ".projectkey.yaml"
	// GlobalConfigDirectoryName is created under the user's home directory.
	GlobalConfigDirectoryName = ".projectkey"
	// GlobalConfigFileName is read from GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.yaml"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
)

const (
	// ErrorLogFormat defines the formatting string for error log messages.
	ErrorLogFormat = "Error: %v"
	// LoggerInitializationFailedMessageFormat reports a logger that cannot be built.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
)
