package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/projectkey/internal/config"
	"github.com/temirov/projectkey/internal/launcher"
	"github.com/temirov/projectkey/internal/utils"
)

const (
	keyFileFlagName     = "key-file"
	initConfigFlagName  = "init-config"
	globalFlagName      = "global"
	forceFlagName       = "force"
	launcherVersionFlag = "version"
	launcherUse         = "projectkey [flags] <command> [arguments...]"
	launcherShort       = "run commands from the nearest key.go"
	launcherLong        = `projectkey searches the current directory and its parents for a key program
(key.go by default), builds it and runs it with the remaining arguments.
The key program sees the directory projectkey was started from as CWD.`
	launcherExample = `  # List the commands of the nearest key program
  projectkey

  # Run a command with arguments
  projectkey deploy staging

  # Write a default configuration next to the key program
  projectkey --init-config`

	keyFileFlagDescription    = "key program file name to search for"
	initConfigFlagDescription = "write a default configuration file and exit"
	globalFlagDescription     = "with --init-config, write to the global configuration directory"
	forceFlagDescription      = "with --init-config, overwrite an existing file"
	versionDescription        = "display application version"

	launcherVersionTemplate    = "projectkey version: %s\n"
	configurationWrittenFormat = "Configuration written to %s\n"
	workingDirectoryFormat     = "unable to determine working directory: %w"

	keyFileLocatedMessage = "key file located"
)

// KeyProgramRunner runs a located key program and returns its exit status.
type KeyProgramRunner interface {
	Run(ctx context.Context, request launcher.Request) (int, error)
}

// Launcher holds what the projectkey launcher depends on.
type Launcher struct {
	FileSystem           afero.Fs
	WorkingDirectory     func() (string, error)
	Streams              Streams
	ConfigurationOptions config.LoadOptions
	Runner               KeyProgramRunner
}

// ExecuteLauncher runs the projectkey launcher with the process surroundings.
func ExecuteLauncher(ctx context.Context, arguments []string) int {
	return Launcher{}.Execute(ctx, arguments)
}

// Execute parses the launcher flags and runs the nearest key program with
// the remaining arguments. It returns the process exit status.
func (launcherConfig Launcher) Execute(ctx context.Context, arguments []string) int {
	launcherConfig = launcherConfig.withDefaults()
	streams := launcherConfig.Streams

	var (
		keyFileName string
		initConfig  bool
		globalInit  bool
		forceInit   bool
		showVersion bool
		status      int
	)

	rootCommand := &cobra.Command{
		Use:           launcherUse,
		Short:         launcherShort,
		Long:          launcherLong,
		Example:       launcherExample,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(command *cobra.Command, commandArguments []string) error {
			if showVersion {
				fmt.Fprintf(streams.Stdout, launcherVersionTemplate, utils.GetApplicationVersion())
				return nil
			}
			workingDirectory, workingDirectoryError := launcherConfig.WorkingDirectory()
			if workingDirectoryError != nil {
				status = 1
				return fmt.Errorf(workingDirectoryFormat, workingDirectoryError)
			}
			if initConfig {
				return launcherConfig.initializeConfiguration(workingDirectory, keyFileName, globalInit, forceInit)
			}
			runStatus, runError := launcherConfig.runKeyProgram(command.Context(), workingDirectory, keyFileName, commandArguments)
			status = runStatus
			return runError
		},
	}
	rootCommand.Flags().SetInterspersed(false)
	rootCommand.Flags().StringVar(&keyFileName, keyFileFlagName, "", keyFileFlagDescription)
	registerBooleanFlag(rootCommand.Flags(), &initConfig, initConfigFlagName, false, initConfigFlagDescription)
	registerBooleanFlag(rootCommand.Flags(), &globalInit, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(rootCommand.Flags(), &forceInit, forceFlagName, false, forceFlagDescription)
	registerBooleanFlag(rootCommand.Flags(), &showVersion, launcherVersionFlag, false, versionDescription)

	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, append([]string{}, arguments...)))
	rootCommand.SetIn(streams.Stdin)
	rootCommand.SetOut(streams.Stdout)
	rootCommand.SetErr(streams.Stderr)
	if ctx == nil {
		ctx = context.Background()
	}
	if executeError := rootCommand.ExecuteContext(ctx); executeError != nil {
		fmt.Fprintf(streams.Stderr, errorLineFormat, executeError)
		if status == 0 {
			status = 1
		}
	}
	return status
}

func (launcherConfig Launcher) withDefaults() Launcher {
	if launcherConfig.FileSystem == nil {
		launcherConfig.FileSystem = afero.NewOsFs()
	}
	if launcherConfig.WorkingDirectory == nil {
		launcherConfig.WorkingDirectory = os.Getwd
	}
	launcherConfig.Streams = launcherConfig.Streams.withDefaults()
	return launcherConfig
}

// loadConfiguration reads configuration for keyDirectory, which may be empty
// before the key program is located.
func (launcherConfig Launcher) loadConfiguration(keyDirectory string) (config.ApplicationConfiguration, error) {
	loadOptions := launcherConfig.ConfigurationOptions
	loadOptions.KeyDirectory = keyDirectory
	return config.LoadApplicationConfiguration(loadOptions)
}

func (launcherConfig Launcher) runKeyProgram(ctx context.Context, workingDirectory string, keyFileFlag string, arguments []string) (int, error) {
	preliminary, configurationError := launcherConfig.loadConfiguration("")
	if configurationError != nil {
		return 1, configurationError
	}
	keyFileName := keyFileFlag
	if keyFileName == "" {
		keyFileName = preliminary.KeyFileName()
	}
	keyFile, findError := launcher.FindKeyFile(launcherConfig.FileSystem, workingDirectory, keyFileName)
	if findError != nil {
		return 1, findError
	}
	keyDirectory := filepath.Dir(keyFile)

	configuration, configurationError := launcherConfig.loadConfiguration(keyDirectory)
	if configurationError != nil {
		return 1, configurationError
	}
	logger, loggerError := utils.NewApplicationLogger(configuration.LogLevel())
	if loggerError != nil {
		return 1, loggerError
	}
	defer func() { _ = logger.Sync() }()
	logger.Debug(keyFileLocatedMessage, zap.String("keyFile", keyFile), zap.String("launchDirectory", workingDirectory))

	module, moduleError := launcher.LoadModule(launcherConfig.FileSystem, keyDirectory)
	if moduleError != nil {
		return 1, moduleError
	}
	if requirementError := module.RequireProjectKey(); requirementError != nil {
		return 1, requirementError
	}

	runner := launcherConfig.Runner
	if runner == nil {
		runner = launcher.Runner{
			GoBinary: configuration.GoBinary(),
			Stdin:    launcherConfig.Streams.Stdin,
			Stdout:   launcherConfig.Streams.Stdout,
			Stderr:   launcherConfig.Streams.Stderr,
			Logger:   logger,
		}
	}
	return runner.Run(ctx, launcher.Request{
		KeyFile:         keyFile,
		Arguments:       arguments,
		LaunchDirectory: workingDirectory,
	})
}

// initializeConfiguration writes next to the nearest key program, or into the
// working directory when there is none.
func (launcherConfig Launcher) initializeConfiguration(workingDirectory string, keyFileFlag string, global bool, force bool) error {
	initOptions := config.InitOptions{
		Target:        config.InitTargetLocal,
		Force:         force,
		KeyDirectory:  workingDirectory,
		HomeDirectory: launcherConfig.ConfigurationOptions.HomeDirectory,
	}
	if global {
		initOptions.Target = config.InitTargetGlobal
	} else {
		keyFileName := keyFileFlag
		if keyFileName == "" {
			keyFileName = config.DefaultKeyFileName
		}
		if keyFile, findError := launcher.FindKeyFile(launcherConfig.FileSystem, workingDirectory, keyFileName); findError == nil {
			initOptions.KeyDirectory = filepath.Dir(keyFile)
		}
	}
	writtenPath, initError := config.InitializeConfiguration(initOptions)
	if initError != nil {
		return initError
	}
	fmt.Fprintf(launcherConfig.Streams.Stdout, configurationWrittenFormat, writtenPath)
	return nil
}
