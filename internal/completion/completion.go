// Package completion offers shell completion candidates for command names.
package completion

import "strings"

// HelpCommand is offered alongside every registered command.
const HelpCommand = "help"

var helpAliases = map[string]struct{}{
	HelpCommand: {},
	"--help":    {},
	"-h":        {},
}

// CommandLister supplies registered command names.
type CommandLister interface {
	ListCommands() []string
}

// IsHelpAlias reports whether token asks for help.
func IsHelpAlias(token string) bool {
	_, isAlias := helpAliases[token]
	return isAlias
}

// Complete returns candidates for prefix given the tokens already parsed.
// Command arguments never complete.
func Complete(lister CommandLister, prefix string, parsed []string) []string {
	if len(parsed) > 0 && !IsHelpAlias(parsed[0]) {
		return nil
	}
	var candidates []string
	for _, name := range append(lister.ListCommands(), HelpCommand) {
		if strings.HasPrefix(name, prefix) {
			candidates = append(candidates, name)
		}
	}
	return candidates
}
