//go:build ignore

package main

import (
	"fmt"
	"strings"

	"github.com/temirov/projectkey"
)

// Build compiles every package of the module.
func Build(ctx *projectkey.Context) error {
	return projectkey.Run(ctx, "go build ./...")
}

// Test runs the test suite, optionally limited to the given packages.
func Test(ctx *projectkey.Context, packages ...string) error {
	if len(packages) == 0 {
		packages = []string{"./..."}
	}
	return projectkey.Run(ctx, "go test "+strings.Join(packages, " "))
}

// Where reports the key directory and the directory the command ran from.
func Where(ctx *projectkey.Context) string {
	return fmt.Sprintf("KEYDIR=%s CWD=%s", ctx.KeyDirectory, ctx.LaunchDirectory)
}

// Greet prints a greeting.
//
// The greeting defaults to hello.
func Greet(name string, greeting string) string {
	return greeting + ", " + name
}

// Watch tails a log file until interrupted.
//
//projectkey:ignore-interrupt
func Watch(ctx *projectkey.Context, path string) error {
	runError := projectkey.Run(ctx, "tail -f "+path)
	select {
	case <-ctx.Interrupted():
		fmt.Fprintln(ctx.Stdout, "stopped watching")
		return nil
	default:
		return runError
	}
}

func main() {
	projectkey.Main(projectkey.New("Example project commands.").
		Register(Build, Test, Where, Watch).
		Add("greet", Greet, projectkey.WithDefaults("hello")))
}
