// Package dispatch validates and invokes a single command from a registry.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/projectkey/internal/services/clipboard"
	"github.com/temirov/projectkey/internal/types"
)

const (
	rejectedStatus = 1

	commandNotFoundMessageFormat    = "Command '%s' not found in %s\n"
	incorrectArgumentsMessageFormat = "Incorrect number of arguments for command '%s'.\n"
	argumentsUsedMessageFormat      = "Arguments used: \"%s\"\n"
	argumentsUsedSeparator          = ", "
	resultLineFormat                = "%v\n"
	workingDirectoryErrorFormat     = "unable to determine working directory: %w"
	changeDirectoryErrorFormat      = "unable to change directory to %s: %w"

	commandDispatchedMessage = "command dispatched"
	commandRejectedMessage   = "command rejected"
	clipboardFailedMessage   = "failed to copy result to clipboard"
)

// CommandSource is the read-only view of a registry the dispatcher needs.
type CommandSource interface {
	Lookup(name string) (types.Contract, bool)
	SourceFile() string
	KeyDirectory() string
}

// Dispatcher runs one command per call.
type Dispatcher struct {
	source                 CommandSource
	stdin                  io.Reader
	stdout                 io.Writer
	stderr                 io.Writer
	logger                 *zap.Logger
	notifier               SignalNotifier
	exit                   func(int)
	changeDirectory        func(string) error
	workingDirectory       func() (string, error)
	lookupEnvironment      func(string) (string, bool)
	copier                 clipboard.Copier
	changeWorkingDirectory bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithStreams sets the standard streams handed to commands and used for reports.
func WithStreams(stdin io.Reader, stdout io.Writer, stderr io.Writer) Option {
	return func(dispatcher *Dispatcher) {
		if stdin != nil {
			dispatcher.stdin = stdin
		}
		if stdout != nil {
			dispatcher.stdout = stdout
		}
		if stderr != nil {
			dispatcher.stderr = stderr
		}
	}
}

// WithLogger sets the logger for dispatch diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(dispatcher *Dispatcher) {
		if logger != nil {
			dispatcher.logger = logger
		}
	}
}

// WithSignalNotifier replaces process signal delivery.
func WithSignalNotifier(notifier SignalNotifier) Option {
	return func(dispatcher *Dispatcher) {
		if notifier != nil {
			dispatcher.notifier = notifier
		}
	}
}

// WithExit replaces os.Exit for the default interrupt policy.
func WithExit(exit func(int)) Option {
	return func(dispatcher *Dispatcher) {
		if exit != nil {
			dispatcher.exit = exit
		}
	}
}

// WithDirectoryChanger replaces os.Chdir.
func WithDirectoryChanger(changeDirectory func(string) error) Option {
	return func(dispatcher *Dispatcher) {
		if changeDirectory != nil {
			dispatcher.changeDirectory = changeDirectory
		}
	}
}

// WithWorkingDirectory replaces os.Getwd.
func WithWorkingDirectory(workingDirectory func() (string, error)) Option {
	return func(dispatcher *Dispatcher) {
		if workingDirectory != nil {
			dispatcher.workingDirectory = workingDirectory
		}
	}
}

// WithEnvironmentLookup replaces os.LookupEnv.
func WithEnvironmentLookup(lookupEnvironment func(string) (string, bool)) Option {
	return func(dispatcher *Dispatcher) {
		if lookupEnvironment != nil {
			dispatcher.lookupEnvironment = lookupEnvironment
		}
	}
}

// WithClipboard copies every reported result with copier.
func WithClipboard(copier clipboard.Copier) Option {
	return func(dispatcher *Dispatcher) {
		dispatcher.copier = copier
	}
}

// WithDirectoryChange controls whether the process moves into the key directory.
func WithDirectoryChange(enabled bool) Option {
	return func(dispatcher *Dispatcher) {
		dispatcher.changeWorkingDirectory = enabled
	}
}

// New creates a dispatcher over source.
func New(source CommandSource, options ...Option) *Dispatcher {
	dispatcher := &Dispatcher{
		source:                 source,
		stdin:                  os.Stdin,
		stdout:                 os.Stdout,
		stderr:                 os.Stderr,
		logger:                 zap.NewNop(),
		notifier:               processSignals{},
		exit:                   os.Exit,
		changeDirectory:        os.Chdir,
		workingDirectory:       os.Getwd,
		lookupEnvironment:      os.LookupEnv,
		changeWorkingDirectory: true,
	}
	for _, option := range options {
		if option != nil {
			option(dispatcher)
		}
	}
	return dispatcher
}

// Dispatch validates arguments against the command's contract, prepares the
// execution context and invokes the command. Validation failures are reported
// on stderr and return status 1 without invoking anything. Errors and panics
// raised by the command reach the caller unchanged.
func (dispatcher *Dispatcher) Dispatch(ctx context.Context, commandName string, arguments []string) (int, error) {
	contract, found := dispatcher.source.Lookup(commandName)
	if !found {
		fmt.Fprintf(dispatcher.stderr, commandNotFoundMessageFormat, commandName, dispatcher.source.SourceFile())
		dispatcher.logger.Debug(commandRejectedMessage, zap.String("command", commandName), zap.Error(types.ErrCommandNotFound))
		return rejectedStatus, &types.CommandNotFoundError{Command: commandName, SourceFile: dispatcher.source.SourceFile()}
	}
	if !contract.Accepts(len(arguments)) {
		fmt.Fprintf(dispatcher.stderr, incorrectArgumentsMessageFormat, commandName)
		fmt.Fprintf(dispatcher.stderr, argumentsUsedMessageFormat, strings.Join(arguments, argumentsUsedSeparator))
		dispatcher.logger.Debug(commandRejectedMessage, zap.String("command", commandName), zap.Strings("arguments", arguments), zap.Error(types.ErrArityMismatch))
		return rejectedStatus, &types.ArityMismatchError{
			Command:          commandName,
			Arguments:        append([]string(nil), arguments...),
			MinimumArguments: contract.MinimumArguments,
			MaximumArguments: contract.MaximumArguments,
		}
	}

	keyDirectory, launchDirectory, prepareError := dispatcher.prepareContext()
	if prepareError != nil {
		return rejectedStatus, prepareError
	}

	scope := dispatcher.installInterruptPolicy(ctx, contract.HonorsInterrupt)
	defer scope.release()

	executionContext := types.NewContext(scope.commandContext, keyDirectory, launchDirectory, scope.observed)
	executionContext.Stdin = dispatcher.stdin
	executionContext.Stdout = dispatcher.stdout
	executionContext.Stderr = dispatcher.stderr

	dispatcher.logger.Debug(commandDispatchedMessage,
		zap.String("command", commandName),
		zap.Strings("arguments", arguments),
		zap.String("keyDirectory", keyDirectory),
		zap.Bool("honorsInterrupt", contract.HonorsInterrupt),
	)
	result, invokeError := contract.Invoker.Invoke(executionContext, arguments)
	if invokeError != nil {
		return types.ExitStatus(invokeError), invokeError
	}
	dispatcher.report(result)
	return 0, nil
}

// prepareContext resolves KEYDIR and CWD and moves into KEYDIR.
func (dispatcher *Dispatcher) prepareContext() (string, string, error) {
	launchDirectory, launchedByLauncher := dispatcher.lookupEnvironment(types.LaunchDirectoryEnvironment)
	if !launchedByLauncher || launchDirectory == "" {
		currentDirectory, workingDirectoryError := dispatcher.workingDirectory()
		if workingDirectoryError != nil {
			return "", "", fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
		}
		launchDirectory = currentDirectory
	}
	keyDirectory := dispatcher.source.KeyDirectory()
	if keyDirectory == "" {
		keyDirectory = launchDirectory
	}
	if dispatcher.changeWorkingDirectory {
		if changeError := dispatcher.changeDirectory(keyDirectory); changeError != nil {
			return "", "", fmt.Errorf(changeDirectoryErrorFormat, keyDirectory, changeError)
		}
	}
	return keyDirectory, launchDirectory, nil
}

func (dispatcher *Dispatcher) report(result any) {
	if result == nil {
		return
	}
	fmt.Fprintf(dispatcher.stdout, resultLineFormat, result)
	if dispatcher.copier == nil {
		return
	}
	if copyError := dispatcher.copier.Copy(fmt.Sprint(result)); copyError != nil {
		dispatcher.logger.Warn(clipboardFailedMessage, zap.Error(copyError))
	}
}
