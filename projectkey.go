// Package projectkey turns the functions of a key.go file into the commands of
// a project-local command line.
//
// A key program declares its commands and hands them to Main:
//
//	//go:build ignore
//
//	package main
//
//	import "github.com/temirov/projectkey"
//
//	// Build compiles every binary.
//	func Build(ctx *projectkey.Context) error {
//		return projectkey.Run(ctx, "go build ./...")
//	}
//
//	func main() {
//		projectkey.Main(projectkey.New("Project commands.").Register(Build))
//	}
//
// Running `projectkey build` anywhere below the key file builds and runs it.
package projectkey

import (
	"context"
	"os"

	"github.com/temirov/projectkey/internal/cli"
	"github.com/temirov/projectkey/internal/registry"
	"github.com/temirov/projectkey/internal/shell"
	"github.com/temirov/projectkey/internal/signature"
	"github.com/temirov/projectkey/internal/types"
)

// Collection is the set of functions a key program offers as commands.
type Collection = registry.Collection

// Option adjusts a single command registration.
type Option = registry.Option

// Context is handed to commands that declare it as their first parameter.
type Context = types.Context

// ExitError makes the process exit with Code after a command returns it.
type ExitError = types.ExitError

// IgnoreInterruptDirective may precede a command's declaration in place of
// the IgnoreInterrupt option.
const IgnoreInterruptDirective = signature.IgnoreInterruptDirective

// New starts a collection anchored at the caller's source file. Commands must
// be defined in the caller's package; the caller's directory becomes KEYDIR.
func New(documentation string) *Collection {
	return registry.CallerCollection(documentation, 1)
}

// WithDefaults supplies default values for the trailing positional parameters.
func WithDefaults(values ...string) Option {
	return registry.WithDefaults(values...)
}

// WithHelp replaces the help text read from the function's doc comment.
func WithHelp(text string) Option {
	return registry.WithHelp(text)
}

// WithArgumentNames names the parameters shown in usage lines.
func WithArgumentNames(names ...string) Option {
	return registry.WithArgumentNames(names...)
}

// IgnoreInterrupt keeps the command running when an interrupt or termination
// signal arrives; the command observes it through Context.Interrupted.
func IgnoreInterrupt() Option {
	return registry.IgnoreInterrupt()
}

// Main runs the command named by the process arguments and exits.
func Main(collection *Collection) {
	program := cli.Program{Collection: collection}
	os.Exit(program.Run(context.Background(), os.Args[1:]))
}

// Run executes a shell script from KEYDIR with KEYDIR and CWD exported.
func Run(ctx *Context, script string) error {
	return shell.Run(ctx, script)
}

// Capture executes a shell script like Run and returns its output.
func Capture(ctx *Context, script string) (string, error) {
	return shell.Capture(ctx, script)
}

// Exit returns an error that ends the process with code.
func Exit(code int) error {
	return &ExitError{Code: code}
}
