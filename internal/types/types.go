// Package types defines every cross‑package data structure used by projectkey.
package types

import (
	"context"
	"io"
	"os"
)

const (
	// UnboundedArguments caps the argument count accepted by variadic commands.
	UnboundedArguments = 1024

	// KeyDirectoryVariable names the directory that holds the command collection.
	KeyDirectoryVariable = "KEYDIR"
	// LaunchDirectoryVariable names the directory the process was started from.
	LaunchDirectoryVariable = "CWD"
	// LaunchDirectoryEnvironment carries the launch directory from the launcher to the key program.
	LaunchDirectoryEnvironment = "PROJECTKEY_CWD"

	// PrivatePrefix marks names that are never registered as commands.
	PrivatePrefix = "_"
)

// Position locates a command declaration in source and orders commands for display.
type Position struct {
	File string
	Line int
}

// Before reports whether the position sorts ahead of other.
func (position Position) Before(other Position) bool {
	if position.File != other.File {
		return position.File < other.File
	}
	return position.Line < other.Line
}

// Invoker calls the handler behind a command.
type Invoker interface {
	Invoke(executionContext *Context, arguments []string) (any, error)
}

// Contract is the derived calling contract of one command.
type Contract struct {
	Name             string
	MinimumArguments int
	MaximumArguments int
	ArgumentLabels   []string
	HelpText         string
	OneLineHelp      string
	Position         Position
	HonorsInterrupt  bool
	Invoker          Invoker
}

// Accepts reports whether argumentCount lies within the contract bounds.
func (contract Contract) Accepts(argumentCount int) bool {
	return contract.MinimumArguments <= argumentCount && argumentCount <= contract.MaximumArguments
}

// Context is handed to a command for the duration of a single invocation.
type Context struct {
	KeyDirectory    string
	LaunchDirectory string
	Stdin           io.Reader
	Stdout          io.Writer
	Stderr          io.Writer

	context    context.Context
	interrupts <-chan os.Signal
}

// NewContext assembles an invocation context.
func NewContext(base context.Context, keyDirectory string, launchDirectory string, interrupts <-chan os.Signal) *Context {
	if base == nil {
		base = context.Background()
	}
	return &Context{
		KeyDirectory:    keyDirectory,
		LaunchDirectory: launchDirectory,
		Stdin:           os.Stdin,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		context:         base,
		interrupts:      interrupts,
	}
}

// Context returns the standard context of the invocation. Commands that ignore
// interrupts see it cancelled when the first interrupt arrives.
func (executionContext *Context) Context() context.Context {
	if executionContext == nil || executionContext.context == nil {
		return context.Background()
	}
	return executionContext.context
}

// Interrupted delivers interrupt and termination signals received while a
// command that ignores interrupts is running. It is nil for other commands.
func (executionContext *Context) Interrupted() <-chan os.Signal {
	if executionContext == nil {
		return nil
	}
	return executionContext.interrupts
}

// Environ returns the process environment extended with KEYDIR and CWD.
func (executionContext *Context) Environ() []string {
	environment := os.Environ()
	if executionContext == nil {
		return environment
	}
	return append(environment,
		KeyDirectoryVariable+"="+executionContext.KeyDirectory,
		LaunchDirectoryVariable+"="+executionContext.LaunchDirectory,
	)
}
