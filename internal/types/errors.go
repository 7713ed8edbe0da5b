package types

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a command collection that cannot be turned into a registry.
	ErrConfiguration = errors.New("configuration error")
	// ErrCommandNotFound marks a dispatch to a name that is not registered.
	ErrCommandNotFound = errors.New("command not found")
	// ErrArityMismatch marks a dispatch with an argument count outside the contract.
	ErrArityMismatch = errors.New("incorrect number of arguments")
)

const (
	configurationErrorFormat   = "command %q: %s"
	commandNotFoundErrorFormat = "command %q not found in %s"
	arityMismatchErrorFormat   = "command %q accepts %d to %d arguments, got %d"
	exitErrorFormat            = "exit status %d"
)

// ConfigurationError reports a command whose declaration is unusable.
type ConfigurationError struct {
	Command string
	Reason  string
}

func (configurationError *ConfigurationError) Error() string {
	return fmt.Sprintf(configurationErrorFormat, configurationError.Command, configurationError.Reason)
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (configurationError *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// CommandNotFoundError reports an unknown command name.
type CommandNotFoundError struct {
	Command    string
	SourceFile string
}

func (notFoundError *CommandNotFoundError) Error() string {
	return fmt.Sprintf(commandNotFoundErrorFormat, notFoundError.Command, notFoundError.SourceFile)
}

// Unwrap allows errors.Is(err, ErrCommandNotFound).
func (notFoundError *CommandNotFoundError) Unwrap() error {
	return ErrCommandNotFound
}

// ArityMismatchError reports arguments that do not fit a command's contract.
type ArityMismatchError struct {
	Command          string
	Arguments        []string
	MinimumArguments int
	MaximumArguments int
}

func (arityError *ArityMismatchError) Error() string {
	return fmt.Sprintf(arityMismatchErrorFormat, arityError.Command, arityError.MinimumArguments, arityError.MaximumArguments, len(arityError.Arguments))
}

// Unwrap allows errors.Is(err, ErrArityMismatch).
func (arityError *ArityMismatchError) Unwrap() error {
	return ErrArityMismatch
}

// ExitError lets a command choose the process exit status.
type ExitError struct {
	Code int
	Err  error
}

func (exitError *ExitError) Error() string {
	if exitError.Err != nil {
		return exitError.Err.Error()
	}
	return fmt.Sprintf(exitErrorFormat, exitError.Code)
}

func (exitError *ExitError) Unwrap() error {
	return exitError.Err
}

// ExitStatus maps an error returned from dispatch to a process exit status.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitError *ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	return 1
}
