package registry

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/temirov/projectkey/internal/signature"
	"github.com/temirov/projectkey/internal/types"
)

const (
	duplicateCommandReason   = "is registered more than once"
	invalidNameReason        = "is not a valid command name"
	underivableNameFormat    = "cannot derive a command name from %s; register it with Add"
	argumentLabelSeparator   = " "
	skippedForeignFormat     = "%s: defined in %s"
	skippedPrivateFormat     = "%s: private name"
	unknownHandlerIdentifier = "handler"
)

var commandNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Registry maps command names to contracts. It is read-only once built.
type Registry struct {
	documentation string
	sourceFile    string
	keyDirectory  string
	commands      map[string]types.Contract
	skipped       []string
}

// Build inspects every candidate of collection. Any configuration error aborts
// construction and no registry is returned.
func Build(collection *Collection) (*Registry, error) {
	built := &Registry{
		documentation: collection.documentation,
		sourceFile:    collection.sourceFile,
		commands:      map[string]types.Contract{},
	}
	if collection.sourceFile != "" {
		if absoluteSource, absoluteError := filepath.Abs(collection.sourceFile); absoluteError == nil {
			built.keyDirectory = filepath.Dir(absoluteSource)
		}
	}

	for _, entry := range collection.candidates {
		location, locateError := signature.Locate(entry.handler)
		if locateError != nil {
			return nil, &types.ConfigurationError{Command: candidateLabel(entry, location), Reason: locateError.Error()}
		}

		commandName := entry.name
		if commandName == "" {
			if !location.Plain() {
				return nil, &types.ConfigurationError{
					Command: candidateLabel(entry, location),
					Reason:  fmt.Sprintf(underivableNameFormat, location.RuntimeName),
				}
			}
			commandName = lowercaseFirst(location.Identifier)
		}

		if strings.HasPrefix(commandName, types.PrivatePrefix) {
			built.skipped = append(built.skipped, fmt.Sprintf(skippedPrivateFormat, commandName))
			continue
		}
		if collection.packagePath != "" && location.PackagePath != collection.packagePath {
			built.skipped = append(built.skipped, fmt.Sprintf(skippedForeignFormat, commandName, location.PackagePath))
			continue
		}
		if !commandNamePattern.MatchString(commandName) {
			return nil, &types.ConfigurationError{Command: commandName, Reason: invalidNameReason}
		}
		if _, exists := built.commands[commandName]; exists {
			return nil, &types.ConfigurationError{Command: commandName, Reason: duplicateCommandReason}
		}

		inspected, inspectError := signature.Inspect(entry.handler, entry.options)
		if inspectError != nil {
			return nil, &types.ConfigurationError{Command: commandName, Reason: inspectError.Error()}
		}
		contract, contractError := inspected.Contract(commandName)
		if contractError != nil {
			return nil, contractError
		}
		built.commands[commandName] = contract
	}
	return built, nil
}

func candidateLabel(entry candidate, location signature.Location) string {
	if entry.name != "" {
		return entry.name
	}
	if location.Identifier != "" {
		return location.Identifier
	}
	return unknownHandlerIdentifier
}

func lowercaseFirst(identifier string) string {
	firstRune, runeSize := utf8.DecodeRuneInString(identifier)
	if firstRune == utf8.RuneError {
		return identifier
	}
	return string(unicode.ToLower(firstRune)) + identifier[runeSize:]
}

// ListCommands returns every registered name in alphabetical order.
func (registry *Registry) ListCommands() []string {
	names := make([]string, 0, len(registry.commands))
	for name := range registry.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedCommands returns contracts in the order they were written.
func (registry *Registry) SortedCommands() []types.Contract {
	contracts := make([]types.Contract, 0, len(registry.commands))
	for _, contract := range registry.commands {
		contracts = append(contracts, contract)
	}
	sort.SliceStable(contracts, func(left, right int) bool {
		if contracts[left].Position == contracts[right].Position {
			return contracts[left].Name < contracts[right].Name
		}
		return contracts[left].Position.Before(contracts[right].Position)
	})
	return contracts
}

// Lookup returns the contract registered under name.
func (registry *Registry) Lookup(name string) (types.Contract, bool) {
	contract, found := registry.commands[name]
	return contract, found
}

// HelpText returns the full help text of a command.
func (registry *Registry) HelpText(name string) (string, bool) {
	contract, found := registry.commands[name]
	return contract.HelpText, found
}

// ArgumentHelp returns the space-joined argument labels of a command.
func (registry *Registry) ArgumentHelp(name string) (string, bool) {
	contract, found := registry.commands[name]
	return strings.Join(contract.ArgumentLabels, argumentLabelSeparator), found
}

// Documentation returns the collection documentation.
func (registry *Registry) Documentation() string {
	return registry.documentation
}

// SourceFile returns the file the collection was declared in.
func (registry *Registry) SourceFile() string {
	return registry.sourceFile
}

// KeyDirectory returns the absolute directory holding the collection source.
func (registry *Registry) KeyDirectory() string {
	return registry.keyDirectory
}

// Skipped lists candidates that were not eligible, with the reason.
func (registry *Registry) Skipped() []string {
	return append([]string(nil), registry.skipped...)
}
