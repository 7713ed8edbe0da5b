// Package help renders command listings from a registry.
package help

import (
	"fmt"
	"strings"

	"github.com/temirov/projectkey/internal/types"
)

const (
	commandLineFormat      = "  %*s - %s\n"
	usageLineFormat        = "Usage: %s %s"
	argumentLabelSeparator = " "
	paragraphSeparator     = "\n\n"
)

// CommandSource supplies commands in display order.
type CommandSource interface {
	SortedCommands() []types.Contract
}

// Format renders one line per documented command, names right-aligned to the
// longest registered name.
func Format(source CommandSource) string {
	contracts := source.SortedCommands()
	longestName := 0
	for _, contract := range contracts {
		if len(contract.Name) > longestName {
			longestName = len(contract.Name)
		}
	}
	var builder strings.Builder
	for _, contract := range contracts {
		if contract.HelpText == "" {
			continue
		}
		fmt.Fprintf(&builder, commandLineFormat, longestName, contract.Name, contract.OneLineHelp)
	}
	return builder.String()
}

// Usage renders the usage line and full help text of a single command.
func Usage(programName string, contract types.Contract) string {
	invocation := strings.TrimSpace(contract.Name + argumentLabelSeparator + strings.Join(contract.ArgumentLabels, argumentLabelSeparator))
	usage := fmt.Sprintf(usageLineFormat, programName, invocation)
	if contract.HelpText == "" {
		return usage + "\n"
	}
	return usage + paragraphSeparator + contract.HelpText + "\n"
}
