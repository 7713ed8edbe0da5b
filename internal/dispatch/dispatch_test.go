package dispatch_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/temirov/projectkey/internal/dispatch"
	"github.com/temirov/projectkey/internal/registry"
	"github.com/temirov/projectkey/internal/types"
)

const (
	testLaunchDirectory = "/launch/here"
	signalWaitTimeout   = 5 * time.Second
)

// greet prints a greeting.
func greet(name string, greeting string) string {
	return greeting + ", " + name
}

func nothing() {}

type lockedBuffer struct {
	mutex  sync.Mutex
	buffer bytes.Buffer
}

func (locked *lockedBuffer) Write(data []byte) (int, error) {
	locked.mutex.Lock()
	defer locked.mutex.Unlock()
	return locked.buffer.Write(data)
}

func (locked *lockedBuffer) String() string {
	locked.mutex.Lock()
	defer locked.mutex.Unlock()
	return locked.buffer.String()
}

type fakeNotifier struct {
	mutex      sync.Mutex
	channels   []chan<- os.Signal
	stopCount  int
	registered chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{registered: make(chan struct{}, 1)}
}

func (notifier *fakeNotifier) Notify(channel chan<- os.Signal, signals ...os.Signal) {
	notifier.mutex.Lock()
	notifier.channels = append(notifier.channels, channel)
	notifier.mutex.Unlock()
	select {
	case notifier.registered <- struct{}{}:
	default:
	}
}

func (notifier *fakeNotifier) Stop(channel chan<- os.Signal) {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	notifier.stopCount++
}

func (notifier *fakeNotifier) deliver(delivered os.Signal) {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	for _, channel := range notifier.channels {
		channel <- delivered
	}
}

func (notifier *fakeNotifier) stops() int {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	return notifier.stopCount
}

type recordingCopier struct {
	copied []string
}

func (copier *recordingCopier) Copy(text string) error {
	copier.copied = append(copier.copied, text)
	return nil
}

type environment struct {
	stdout    *lockedBuffer
	stderr    *lockedBuffer
	notifier  *fakeNotifier
	exitCodes chan int
	chdirs    []string
}

func newEnvironment() *environment {
	return &environment{
		stdout:    &lockedBuffer{},
		stderr:    &lockedBuffer{},
		notifier:  newFakeNotifier(),
		exitCodes: make(chan int, 1),
	}
}

func (testEnvironment *environment) dispatcher(source dispatch.CommandSource, options ...dispatch.Option) *dispatch.Dispatcher {
	defaults := []dispatch.Option{
		dispatch.WithStreams(strings.NewReader(""), testEnvironment.stdout, testEnvironment.stderr),
		dispatch.WithSignalNotifier(testEnvironment.notifier),
		dispatch.WithExit(func(code int) { testEnvironment.exitCodes <- code }),
		dispatch.WithDirectoryChanger(func(directory string) error {
			testEnvironment.chdirs = append(testEnvironment.chdirs, directory)
			return nil
		}),
		dispatch.WithEnvironmentLookup(func(name string) (string, bool) {
			if name == types.LaunchDirectoryEnvironment {
				return testLaunchDirectory, true
			}
			return "", false
		}),
	}
	return dispatch.New(source, append(defaults, options...)...)
}

func buildRegistry(t *testing.T, configure func(*registry.Collection)) *registry.Registry {
	t.Helper()
	collection := registry.CallerCollection("", 1)
	configure(collection)
	built, buildError := registry.Build(collection)
	if buildError != nil {
		t.Fatalf("unexpected build error: %v", buildError)
	}
	return built
}

func TestDispatchPrintsResultWithDefaults(t *testing.T) {
	t.Parallel()

	built := buildRegistry(t, func(collection *registry.Collection) {
		collection.Add("greet", greet, registry.WithDefaults("hi"))
	})
	testEnvironment := newEnvironment()
	copier := &recordingCopier{}
	status, dispatchError := testEnvironment.dispatcher(built, dispatch.WithClipboard(copier)).Dispatch(context.Background(), "greet", []string{"world"})
	if dispatchError != nil || status != 0 {
		t.Fatalf("unexpected result status=%d error=%v", status, dispatchError)
	}
	if testEnvironment.stdout.String() != "hi, world\n" {
		t.Fatalf("unexpected stdout %q", testEnvironment.stdout.String())
	}
	if len(copier.copied) != 1 || copier.copied[0] != "hi, world" {
		t.Fatalf("unexpected clipboard contents %v", copier.copied)
	}
	if testEnvironment.notifier.stops() != 1 {
		t.Fatalf("expected interrupt policy released once, got %d", testEnvironment.notifier.stops())
	}
}

func TestDispatchRejectsInvalidRequests(t *testing.T) {
	t.Parallel()

	built := buildRegistry(t, func(collection *registry.Collection) {
		collection.Add("greet", greet, registry.WithDefaults("hi"))
	})
	testCases := []struct {
		name           string
		command        string
		arguments      []string
		expectedStderr string
		expectedError  error
	}{
		{
			name:           "unknown_command",
			command:        "frobnicate",
			expectedStderr: "Command 'frobnicate' not found in " + built.SourceFile() + "\n",
			expectedError:  types.ErrCommandNotFound,
		},
		{
			name:           "too_many_arguments",
			command:        "greet",
			arguments:      []string{"a", "b", "c"},
			expectedStderr: "Incorrect number of arguments for command 'greet'.\nArguments used: \"a, b, c\"\n",
			expectedError:  types.ErrArityMismatch,
		},
		{
			name:           "too_few_arguments",
			command:        "greet",
			expectedStderr: "Incorrect number of arguments for command 'greet'.\nArguments used: \"\"\n",
			expectedError:  types.ErrArityMismatch,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			testEnvironment := newEnvironment()
			status, dispatchError := testEnvironment.dispatcher(built).Dispatch(context.Background(), testCase.command, testCase.arguments)
			if status != 1 {
				t.Fatalf("expected status 1, got %d", status)
			}
			if !errors.Is(dispatchError, testCase.expectedError) {
				t.Fatalf("expected %v, got %v", testCase.expectedError, dispatchError)
			}
			if testEnvironment.stderr.String() != testCase.expectedStderr {
				t.Fatalf("expected stderr %q, got %q", testCase.expectedStderr, testEnvironment.stderr.String())
			}
			if testEnvironment.stdout.String() != "" {
				t.Fatalf("unexpected stdout %q", testEnvironment.stdout.String())
			}
			if len(testEnvironment.chdirs) != 0 {
				t.Fatalf("rejected command changed directory to %v", testEnvironment.chdirs)
			}
		})
	}
}

func TestDispatchPreparesContext(t *testing.T) {
	t.Parallel()

	var observed *types.Context
	built := buildRegistry(t, func(collection *registry.Collection) {
		collection.Add("where", func(executionContext *types.Context) {
			observed = executionContext
		})
	})
	testEnvironment := newEnvironment()
	status, dispatchError := testEnvironment.dispatcher(built).Dispatch(context.Background(), "where", nil)
	if dispatchError != nil || status != 0 {
		t.Fatalf("unexpected result status=%d error=%v", status, dispatchError)
	}
	expectedKeyDirectory := filepath.Dir(built.SourceFile())
	if observed == nil || observed.KeyDirectory != expectedKeyDirectory || observed.LaunchDirectory != testLaunchDirectory {
		t.Fatalf("unexpected context %+v", observed)
	}
	if len(testEnvironment.chdirs) != 1 || testEnvironment.chdirs[0] != expectedKeyDirectory {
		t.Fatalf("expected chdir to %s, got %v", expectedKeyDirectory, testEnvironment.chdirs)
	}
	if observed.Interrupted() != nil {
		t.Fatalf("expected no interrupt channel for a default command")
	}
	if testEnvironment.stdout.String() != "" {
		t.Fatalf("expected no output for a command without results, got %q", testEnvironment.stdout.String())
	}
}

func TestDispatchSkipsDirectoryChangeWhenDisabled(t *testing.T) {
	t.Parallel()

	built := buildRegistry(t, func(collection *registry.Collection) {
		collection.Register(nothing)
	})
	testEnvironment := newEnvironment()
	dispatcher := testEnvironment.dispatcher(built,
		dispatch.WithDirectoryChange(false),
		dispatch.WithEnvironmentLookup(func(string) (string, bool) { return "", false }),
		dispatch.WithWorkingDirectory(func() (string, error) { return "/from/getwd", nil }),
	)
	if status, dispatchError := dispatcher.Dispatch(context.Background(), "nothing", nil); dispatchError != nil || status != 0 {
		t.Fatalf("unexpected result status=%d error=%v", status, dispatchError)
	}
	if len(testEnvironment.chdirs) != 0 {
		t.Fatalf("unexpected chdir %v", testEnvironment.chdirs)
	}
}

func TestDispatchPropagatesCommandFailures(t *testing.T) {
	t.Parallel()

	commandFailure := errors.New("deploy failed")
	built := buildRegistry(t, func(collection *registry.Collection) {
		collection.Add("fail", func() error { return commandFailure })
		collection.Add("exitThree", func() error { return &types.ExitError{Code: 3} })
		collection.Add("explode", func() { panic("boom") })
	})
	testEnvironment := newEnvironment()
	dispatcher := testEnvironment.dispatcher(built)

	status, dispatchError := dispatcher.Dispatch(context.Background(), "fail", nil)
	if status != 1 || !errors.Is(dispatchError, commandFailure) {
		t.Fatalf("unexpected failure status=%d error=%v", status, dispatchError)
	}
	status, dispatchError = dispatcher.Dispatch(context.Background(), "exitThree", nil)
	if status != 3 || dispatchError == nil {
		t.Fatalf("unexpected exit status=%d error=%v", status, dispatchError)
	}

	defer func() {
		if recovered := recover(); recovered != "boom" {
			t.Fatalf("expected panic to propagate, got %v", recovered)
		}
		if testEnvironment.notifier.stops() != 3 {
			t.Fatalf("expected policy released after panic, got %d stops", testEnvironment.notifier.stops())
		}
	}()
	_, _ = dispatcher.Dispatch(context.Background(), "explode", nil)
}

func TestDispatchDefaultInterruptExits(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	finish := make(chan struct{})
	built := buildRegistry(t, func(collection *registry.Collection) {
		collection.Add("block", func() {
			close(started)
			<-finish
		})
	})
	testEnvironment := newEnvironment()
	dispatcher := testEnvironment.dispatcher(built)

	done := make(chan error, 1)
	go func() {
		_, dispatchError := dispatcher.Dispatch(context.Background(), "block", nil)
		done <- dispatchError
	}()
	<-started
	testEnvironment.notifier.deliver(os.Interrupt)

	select {
	case code := <-testEnvironment.exitCodes:
		if code != 1 {
			t.Fatalf("expected exit status 1, got %d", code)
		}
	case <-time.After(signalWaitTimeout):
		t.Fatalf("interrupt did not terminate the command")
	}
	close(finish)
	if dispatchError := <-done; dispatchError != nil {
		t.Fatalf("unexpected error: %v", dispatchError)
	}
	if testEnvironment.stdout.String() != "\n" {
		t.Fatalf("expected a single newline on stdout, got %q", testEnvironment.stdout.String())
	}
}

func TestDispatchHonoringCommandObservesInterrupt(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	built := buildRegistry(t, func(collection *registry.Collection) {
		collection.Add("watch", func(executionContext *types.Context) string {
			close(started)
			delivered := <-executionContext.Interrupted()
			<-executionContext.Context().Done()
			return "observed " + delivered.String()
		}, registry.IgnoreInterrupt())
	})
	testEnvironment := newEnvironment()
	dispatcher := testEnvironment.dispatcher(built)

	done := make(chan int, 1)
	go func() {
		status, _ := dispatcher.Dispatch(context.Background(), "watch", nil)
		done <- status
	}()
	<-started
	testEnvironment.notifier.deliver(os.Interrupt)

	select {
	case status := <-done:
		if status != 0 {
			t.Fatalf("expected status 0, got %d", status)
		}
	case <-time.After(signalWaitTimeout):
		t.Fatalf("command did not observe the interrupt")
	}
	if len(testEnvironment.exitCodes) != 0 {
		t.Fatalf("process exit requested for a command that handles interrupts")
	}
	if testEnvironment.stdout.String() != "observed interrupt\n" {
		t.Fatalf("unexpected stdout %q", testEnvironment.stdout.String())
	}
}
