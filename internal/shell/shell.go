// Package shell runs POSIX shell scripts from inside commands using an
// embedded interpreter, so key programs do not depend on a system shell.
package shell

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/temirov/projectkey/internal/types"
)

const (
	scriptName = "projectkey"

	parseErrorFormat       = "parse script: %w"
	interpreterErrorFormat = "prepare shell: %w"
	exitStatusErrorFormat  = "script exited with status %d"
)

// Run executes script in the key directory with KEYDIR and CWD exported.
// A non-zero exit status is returned as *types.ExitError carrying the same code.
func Run(executionContext *types.Context, script string) error {
	return execute(executionContext, script, executionContext.Stdout)
}

// Capture executes script like Run and returns its standard output with the
// trailing newlines removed.
func Capture(executionContext *types.Context, script string) (string, error) {
	var captured bytes.Buffer
	runError := execute(executionContext, script, &captured)
	return strings.TrimRight(captured.String(), "\n"), runError
}

func execute(executionContext *types.Context, script string, stdout io.Writer) error {
	program, parseError := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(script), scriptName)
	if parseError != nil {
		return fmt.Errorf(parseErrorFormat, parseError)
	}

	runnerOptions := []interp.RunnerOption{
		interp.StdIO(executionContext.Stdin, stdout, executionContext.Stderr),
		interp.Env(expand.ListEnviron(executionContext.Environ()...)),
	}
	if executionContext.KeyDirectory != "" {
		runnerOptions = append(runnerOptions, interp.Dir(executionContext.KeyDirectory))
	}
	runner, runnerError := interp.New(runnerOptions...)
	if runnerError != nil {
		return fmt.Errorf(interpreterErrorFormat, runnerError)
	}

	runError := runner.Run(executionContext.Context(), program)
	if status, isStatus := interp.IsExitStatus(runError); isStatus {
		return &types.ExitError{Code: int(status), Err: fmt.Errorf(exitStatusErrorFormat, status)}
	}
	return runError
}
