package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/projectkey/internal/types"
)

const (
	temporaryDirectoryPattern = "projectkey-*"
	goSourceExtension         = ".go"
	defaultBinaryName         = "key"

	buildFailedFormat             = "%w: %s: %v"
	temporaryDirectoryErrorFormat = "create build directory: %w"
	startFailedFormat             = "start %s: %w"

	keyProgramBuiltMessage    = "key program built"
	signalForwardedMessage    = "signal forwarded to key program"
	cleanupFailedMessage      = "failed to remove build directory"
	keyProgramFinishedMessage = "key program finished"
)

// ErrBuildFailed indicates the key program does not compile.
var ErrBuildFailed = errors.New("key program build failed")

// SignalNotifier delivers process signals. It matches os/signal.
type SignalNotifier interface {
	Notify(channel chan<- os.Signal, signals ...os.Signal)
	Stop(channel chan<- os.Signal)
}

type processSignals struct{}

func (processSignals) Notify(channel chan<- os.Signal, signals ...os.Signal) {
	signal.Notify(channel, signals...)
}

func (processSignals) Stop(channel chan<- os.Signal) {
	signal.Stop(channel)
}

// Runner builds a key program and runs it as a child process.
type Runner struct {
	GoBinary string
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *zap.Logger
	Signals  SignalNotifier
}

// Request names the key program and the command line handed to it.
type Request struct {
	KeyFile         string
	Arguments       []string
	LaunchDirectory string
}

// Run compiles request.KeyFile and executes it from the launch directory with
// PROJECTKEY_CWD set. It returns the child's exit status. Termination
// signals received meanwhile are forwarded to the child; interrupts reach the
// child through the terminal and are not acted on here.
func (runner Runner) Run(ctx context.Context, request Request) (int, error) {
	runner = runner.withDefaults()

	buildDirectory, directoryError := os.MkdirTemp("", temporaryDirectoryPattern)
	if directoryError != nil {
		return 1, fmt.Errorf(temporaryDirectoryErrorFormat, directoryError)
	}
	defer func() {
		if removeError := os.RemoveAll(buildDirectory); removeError != nil {
			runner.Logger.Warn(cleanupFailedMessage, zap.String("directory", buildDirectory), zap.Error(removeError))
		}
	}()

	binaryPath, buildError := runner.build(ctx, request.KeyFile, buildDirectory)
	if buildError != nil {
		return 1, buildError
	}
	return runner.execute(ctx, binaryPath, request)
}

func (runner Runner) withDefaults() Runner {
	if runner.GoBinary == "" {
		runner.GoBinary = "go"
	}
	if runner.Stdin == nil {
		runner.Stdin = os.Stdin
	}
	if runner.Stdout == nil {
		runner.Stdout = os.Stdout
	}
	if runner.Stderr == nil {
		runner.Stderr = os.Stderr
	}
	if runner.Logger == nil {
		runner.Logger = zap.NewNop()
	}
	if runner.Signals == nil {
		runner.Signals = processSignals{}
	}
	return runner
}

func binaryName(keyFile string) string {
	name := strings.TrimSuffix(filepath.Base(keyFile), goSourceExtension)
	if name == "" {
		return defaultBinaryName
	}
	return name
}

// build compiles the single key file so build constraints on it are ignored.
func (runner Runner) build(ctx context.Context, keyFile string, buildDirectory string) (string, error) {
	binaryPath := filepath.Join(buildDirectory, binaryName(keyFile))
	// #nosec G204
	buildCommand := exec.CommandContext(ctx, runner.GoBinary, "build", "-o", binaryPath, filepath.Base(keyFile))
	buildCommand.Dir = filepath.Dir(keyFile)
	buildCommand.Stdout = runner.Stderr
	buildCommand.Stderr = runner.Stderr
	if runError := buildCommand.Run(); runError != nil {
		return "", fmt.Errorf(buildFailedFormat, ErrBuildFailed, keyFile, runError)
	}
	runner.Logger.Debug(keyProgramBuiltMessage, zap.String("keyFile", keyFile), zap.String("binary", binaryPath))
	return binaryPath, nil
}

func (runner Runner) execute(ctx context.Context, binaryPath string, request Request) (int, error) {
	// #nosec G204
	keyCommand := exec.Command(binaryPath, request.Arguments...)
	keyCommand.Dir = request.LaunchDirectory
	keyCommand.Env = append(os.Environ(), types.LaunchDirectoryEnvironment+"="+request.LaunchDirectory)
	keyCommand.Stdin = runner.Stdin
	keyCommand.Stdout = runner.Stdout
	keyCommand.Stderr = runner.Stderr

	received := make(chan os.Signal, 1)
	runner.Signals.Notify(received, os.Interrupt, syscall.SIGTERM)
	defer runner.Signals.Stop(received)

	if startError := keyCommand.Start(); startError != nil {
		return 1, fmt.Errorf(startFailedFormat, binaryPath, startError)
	}

	finished := make(chan struct{})
	group, groupContext := errgroup.WithContext(ctx)
	group.Go(func() error {
		for {
			select {
			case <-finished:
				return nil
			case <-groupContext.Done():
				_ = keyCommand.Process.Signal(syscall.SIGTERM)
				return nil
			case delivered := <-received:
				if delivered == os.Interrupt {
					continue
				}
				runner.Logger.Debug(signalForwardedMessage, zap.Stringer("signal", delivered))
				_ = keyCommand.Process.Signal(delivered)
			}
		}
	})

	waitError := keyCommand.Wait()
	close(finished)
	_ = group.Wait()

	status := exitStatus(keyCommand.ProcessState, waitError)
	runner.Logger.Debug(keyProgramFinishedMessage, zap.Int("status", status))
	if status == 0 && waitError != nil {
		return 1, waitError
	}
	return status, nil
}

func exitStatus(state *os.ProcessState, waitError error) int {
	if state == nil {
		if waitError != nil {
			return 1
		}
		return 0
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return 1
}
