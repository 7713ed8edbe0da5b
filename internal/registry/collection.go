// Package registry turns a command collection into an immutable command table.
package registry

import (
	"runtime"

	"github.com/temirov/projectkey/internal/signature"
)

// Option adjusts how a single command is registered.
type Option func(*signature.Options)

// WithDefaults supplies default values for the trailing positional parameters.
func WithDefaults(values ...string) Option {
	return func(options *signature.Options) {
		options.Defaults = append([]string(nil), values...)
	}
}

// WithHelp replaces the help text read from the handler's doc comment.
func WithHelp(text string) Option {
	return func(options *signature.Options) {
		options.Help = text
	}
}

// WithArgumentNames names the positional parameters (and the variadic tail)
// when the handler's source is unavailable or its names are unsuitable.
func WithArgumentNames(names ...string) Option {
	return func(options *signature.Options) {
		options.ArgumentNames = append([]string(nil), names...)
	}
}

// IgnoreInterrupt keeps the command running when an interrupt arrives.
func IgnoreInterrupt() Option {
	return func(options *signature.Options) {
		options.IgnoreInterrupt = true
	}
}

type candidate struct {
	name    string
	handler any
	options signature.Options
}

// Collection is the set of candidate commands a key program declares.
type Collection struct {
	documentation string
	sourceFile    string
	packagePath   string
	candidates    []candidate
}

// NewCollection creates a collection whose commands must be defined in
// packagePath. An empty packagePath accepts handlers from any package.
func NewCollection(documentation string, sourceFile string, packagePath string) *Collection {
	return &Collection{
		documentation: documentation,
		sourceFile:    sourceFile,
		packagePath:   packagePath,
	}
}

// CallerCollection creates a collection anchored at the source file and
// package of the function skip frames above the caller.
func CallerCollection(documentation string, skip int) *Collection {
	programCounter, sourceFile, _, known := runtime.Caller(skip + 1)
	if !known {
		return NewCollection(documentation, "", "")
	}
	packagePath := ""
	if callerFunction := runtime.FuncForPC(programCounter); callerFunction != nil {
		packagePath, _ = signature.SplitRuntimeName(callerFunction.Name())
	}
	return NewCollection(documentation, sourceFile, packagePath)
}

// Add registers handler under name.
func (collection *Collection) Add(name string, handler any, options ...Option) *Collection {
	collection.candidates = append(collection.candidates, candidate{
		name:    name,
		handler: handler,
		options: applyOptions(options),
	})
	return collection
}

// Register adds top-level functions under their own names with the first
// letter lowercased.
func (collection *Collection) Register(handlers ...any) *Collection {
	for _, handler := range handlers {
		collection.candidates = append(collection.candidates, candidate{handler: handler})
	}
	return collection
}

// Documentation returns the collection's own documentation.
func (collection *Collection) Documentation() string {
	return collection.documentation
}

// SourceFile returns the file the collection was declared in.
func (collection *Collection) SourceFile() string {
	return collection.sourceFile
}

// PackagePath returns the package commands must be defined in.
func (collection *Collection) PackagePath() string {
	return collection.packagePath
}

func applyOptions(options []Option) signature.Options {
	var applied signature.Options
	for _, option := range options {
		if option != nil {
			option(&applied)
		}
	}
	return applied
}
