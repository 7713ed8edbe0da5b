package shell

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/temirov/projectkey/internal/types"
)

func newTestContext(t *testing.T) (*types.Context, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	keyDirectory := t.TempDir()
	executionContext := types.NewContext(context.Background(), keyDirectory, "/launched/from", nil)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	executionContext.Stdin = strings.NewReader("")
	executionContext.Stdout = stdout
	executionContext.Stderr = stderr
	return executionContext, stdout, stderr
}

func TestRun(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		script         string
		expectedStdout string
		expectedStatus int
	}{
		{name: "writes_stdout", script: "echo hello", expectedStdout: "hello\n"},
		{name: "exports_launch_directory", script: `echo "$CWD"`, expectedStdout: "/launched/from\n"},
		{name: "exit_status_preserved", script: "echo partial; exit 3", expectedStdout: "partial\n", expectedStatus: 3},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			executionContext, stdout, _ := newTestContext(t)
			runError := Run(executionContext, testCase.script)
			if status := types.ExitStatus(runError); status != testCase.expectedStatus {
				t.Fatalf("expected status %d, got %d (%v)", testCase.expectedStatus, status, runError)
			}
			if stdout.String() != testCase.expectedStdout {
				t.Fatalf("expected stdout %q, got %q", testCase.expectedStdout, stdout.String())
			}
		})
	}
}

func TestCaptureRunsInKeyDirectory(t *testing.T) {
	t.Parallel()

	executionContext, stdout, _ := newTestContext(t)
	captured, captureError := Capture(executionContext, `echo "$KEYDIR"; pwd`)
	if captureError != nil {
		t.Fatalf("unexpected error: %v", captureError)
	}
	expected := executionContext.KeyDirectory + "\n" + executionContext.KeyDirectory
	if captured != expected {
		t.Fatalf("expected %q, got %q", expected, captured)
	}
	if stdout.Len() != 0 {
		t.Fatalf("captured output leaked to stdout: %q", stdout.String())
	}
}

func TestRunRejectsInvalidScript(t *testing.T) {
	t.Parallel()

	executionContext, _, _ := newTestContext(t)
	runError := Run(executionContext, "if then fi")
	if runError == nil {
		t.Fatalf("expected parse error")
	}
	var exitError *types.ExitError
	if errors.As(runError, &exitError) {
		t.Fatalf("parse error reported as exit status %d", exitError.Code)
	}
}
