// Package cli provides the command line interfaces of key programs and of
// the projectkey launcher.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/projectkey/internal/completion"
	"github.com/temirov/projectkey/internal/config"
	"github.com/temirov/projectkey/internal/dispatch"
	"github.com/temirov/projectkey/internal/help"
	"github.com/temirov/projectkey/internal/registry"
	"github.com/temirov/projectkey/internal/services/clipboard"
	"github.com/temirov/projectkey/internal/types"
	"github.com/temirov/projectkey/internal/utils"
)

const (
	// DefaultProgramName appears in usage lines and completion scripts.
	DefaultProgramName = "projectkey"

	versionArgument    = "--version"
	completionArgument = "--completion"

	bashShell       = "bash"
	zshShell        = "zsh"
	fishShell       = "fish"
	powerShellShell = "powershell"

	commandsHeading               = "Commands:"
	overviewUsageFormat           = "Usage: %s <command> [arguments...]\n"
	helpHintFormat                = "Run '%s help <command>' for the arguments of a command.\n"
	versionTemplate               = "%s version: %s\n"
	helpTopicNotFoundFormat       = "Command '%s' not found in %s\n"
	errorLineFormat               = utils.ErrorLogFormat + "\n"
	missingCompletionShellMessage = "--completion requires a shell: bash, zsh, fish or powershell"
	unsupportedShellFormat        = "unsupported completion shell %q"

	registryBuiltMessage = "command registry built"
)

// Streams bundles the standard streams of a key program.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (streams Streams) withDefaults() Streams {
	if streams.Stdin == nil {
		streams.Stdin = os.Stdin
	}
	if streams.Stdout == nil {
		streams.Stdout = os.Stdout
	}
	if streams.Stderr == nil {
		streams.Stderr = os.Stderr
	}
	return streams
}

// Program is a key program: a command collection plus the surroundings it runs in.
type Program struct {
	Name                 string
	Collection           *registry.Collection
	Streams              Streams
	ConfigurationOptions config.LoadOptions
	DispatchOptions      []dispatch.Option
}

// Run builds the registry and executes one command line, returning the
// process exit status. Panics raised by commands are not recovered.
func (program Program) Run(ctx context.Context, arguments []string) int {
	streams := program.Streams.withDefaults()

	loadOptions := program.ConfigurationOptions
	if loadOptions.KeyDirectory == "" && program.Collection != nil && program.Collection.SourceFile() != "" {
		loadOptions.KeyDirectory = filepath.Dir(program.Collection.SourceFile())
	}
	configuration, configurationError := config.LoadApplicationConfiguration(loadOptions)
	if configurationError != nil {
		fmt.Fprintf(streams.Stderr, errorLineFormat, configurationError)
		return 1
	}
	logger, loggerError := utils.NewApplicationLogger(configuration.LogLevel())
	if loggerError != nil {
		fmt.Fprintf(streams.Stderr, errorLineFormat, loggerError)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if program.Collection == nil {
		program.Collection = registry.NewCollection("", "", "")
	}
	built, buildError := registry.Build(program.Collection)
	if buildError != nil {
		fmt.Fprintf(streams.Stderr, errorLineFormat, buildError)
		return 1
	}
	logger.Debug(registryBuiltMessage,
		zap.String("sourceFile", built.SourceFile()),
		zap.Strings("commands", built.ListCommands()),
		zap.Strings("skipped", built.Skipped()),
	)

	dispatchOptions := []dispatch.Option{
		dispatch.WithStreams(streams.Stdin, streams.Stdout, streams.Stderr),
		dispatch.WithLogger(logger),
		dispatch.WithDirectoryChange(configuration.ChangeDirectoryEnabled()),
	}
	if configuration.ClipboardEnabled() {
		dispatchOptions = append(dispatchOptions, dispatch.WithClipboard(clipboard.NewService()))
	}
	dispatchOptions = append(dispatchOptions, program.DispatchOptions...)

	programName := program.Name
	if programName == "" {
		programName = DefaultProgramName
	}
	runner := &programRunner{
		programName: programName,
		registry:    built,
		dispatcher:  dispatch.New(built, dispatchOptions...),
		streams:     streams,
	}
	rootCommand := runner.rootCommand()
	rootCommand.SetArgs(append([]string{}, arguments...))
	rootCommand.SetIn(streams.Stdin)
	rootCommand.SetOut(streams.Stdout)
	rootCommand.SetErr(streams.Stderr)
	if ctx == nil {
		ctx = context.Background()
	}
	if executeError := rootCommand.ExecuteContext(ctx); executeError != nil {
		runner.reportFailure(executeError)
		if runner.status == 0 {
			runner.status = types.ExitStatus(executeError)
		}
	}
	return runner.status
}

type programRunner struct {
	programName string
	registry    *registry.Registry
	dispatcher  *dispatch.Dispatcher
	streams     Streams
	status      int
}

// rootCommand hands every argument to the runner untouched; command names
// and their arguments are not flags.
func (runner *programRunner) rootCommand() *cobra.Command {
	return &cobra.Command{
		Use:                runner.programName,
		Long:               runner.registry.Documentation(),
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		ValidArgsFunction: func(command *cobra.Command, arguments []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return completion.Complete(runner.registry, toComplete, arguments), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: runner.execute,
	}
}

func (runner *programRunner) execute(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 {
		runner.printOverview()
		return nil
	}
	switch leading := arguments[0]; {
	case completion.IsHelpAlias(leading):
		return runner.printHelp(arguments[1:])
	case leading == versionArgument:
		fmt.Fprintf(runner.streams.Stdout, versionTemplate, runner.programName, utils.GetApplicationVersion())
		return nil
	case leading == completionArgument:
		return runner.printCompletion(command, arguments[1:])
	}
	status, dispatchError := runner.dispatcher.Dispatch(command.Context(), arguments[0], arguments[1:])
	runner.status = status
	return dispatchError
}

func (runner *programRunner) printOverview() {
	stdout := runner.streams.Stdout
	if documentation := strings.TrimSpace(runner.registry.Documentation()); documentation != "" {
		fmt.Fprintf(stdout, "%s\n\n", documentation)
	}
	fmt.Fprintf(stdout, overviewUsageFormat, runner.programName)
	listing := help.Format(runner.registry)
	if listing == "" {
		return
	}
	fmt.Fprintln(stdout)
	_, _ = color.New(color.Bold).Fprintln(stdout, commandsHeading)
	fmt.Fprint(stdout, listing)
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, helpHintFormat, runner.programName)
}

func (runner *programRunner) printHelp(topics []string) error {
	if len(topics) == 0 {
		runner.printOverview()
		return nil
	}
	for _, topic := range topics {
		contract, found := runner.registry.Lookup(topic)
		if !found {
			fmt.Fprintf(runner.streams.Stderr, helpTopicNotFoundFormat, topic, runner.registry.SourceFile())
			runner.status = 1
			return &types.CommandNotFoundError{Command: topic, SourceFile: runner.registry.SourceFile()}
		}
		fmt.Fprint(runner.streams.Stdout, help.Usage(runner.programName, contract))
	}
	return nil
}

func (runner *programRunner) printCompletion(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 {
		runner.status = 1
		return errors.New(missingCompletionShellMessage)
	}
	stdout := runner.streams.Stdout
	switch shell := strings.ToLower(arguments[0]); shell {
	case bashShell:
		return command.GenBashCompletionV2(stdout, true)
	case zshShell:
		return command.GenZshCompletion(stdout)
	case fishShell:
		return command.GenFishCompletion(stdout, true)
	case powerShellShell:
		return command.GenPowerShellCompletionWithDesc(stdout)
	default:
		runner.status = 1
		return fmt.Errorf(unsupportedShellFormat, shell)
	}
}

// reportFailure prints errors the dispatcher has not already reported.
func (runner *programRunner) reportFailure(failure error) {
	if errors.Is(failure, types.ErrCommandNotFound) || errors.Is(failure, types.ErrArityMismatch) {
		return
	}
	var exitError *types.ExitError
	if errors.As(failure, &exitError) && exitError.Err == nil {
		return
	}
	fmt.Fprintf(runner.streams.Stderr, errorLineFormat, failure)
}
