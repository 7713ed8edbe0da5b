// Package signature derives calling contracts for command handlers.
//
// A handler is any Go function whose parameters are strings, optionally
// preceded by a *types.Context or context.Context, optionally followed by a
// map[string]string keyword tail and a final ...string variadic tail.
// Parameter names and help text are read from the handler's source.
package signature

import (
	"fmt"

	"github.com/temirov/projectkey/internal/types"
)

const (
	ellipsisLabel         = "..."
	optionalLabelFormat   = "[%s]"
	variadicLabelFormat   = "[%s%d]"
	variadicSlotCount     = 3
	ambiguousTailsReason  = "cannot declare both a variadic tail and a keyword tail"
	excessDefaultsFormat  = "declares %d defaults for %d parameters"
	missingParameterLabel = "arg%d"
)

// Shape is the part of a declaration that determines arity.
type Shape struct {
	Parameters   []string
	DefaultCount int
	VariadicName string
	HasVariadic  bool
	HasKeyword   bool
}

// Derive computes arity bounds and argument labels for a command shape.
func Derive(commandName string, shape Shape) (types.Contract, error) {
	if shape.HasVariadic && shape.HasKeyword {
		return types.Contract{}, &types.ConfigurationError{Command: commandName, Reason: ambiguousTailsReason}
	}
	parameterCount := len(shape.Parameters)
	if shape.DefaultCount < 0 || shape.DefaultCount > parameterCount {
		return types.Contract{}, &types.ConfigurationError{
			Command: commandName,
			Reason:  fmt.Sprintf(excessDefaultsFormat, shape.DefaultCount, parameterCount),
		}
	}

	requiredCount := parameterCount - shape.DefaultCount
	labels := make([]string, 0, parameterCount+variadicSlotCount+1)
	for parameterIndex, parameterName := range shape.Parameters {
		if parameterName == "" {
			parameterName = fmt.Sprintf(missingParameterLabel, parameterIndex+1)
		}
		if parameterIndex < requiredCount {
			labels = append(labels, parameterName)
			continue
		}
		labels = append(labels, fmt.Sprintf(optionalLabelFormat, parameterName))
	}

	contract := types.Contract{
		Name:             commandName,
		MinimumArguments: requiredCount,
		MaximumArguments: parameterCount,
	}
	if shape.HasVariadic {
		contract.MaximumArguments = types.UnboundedArguments
		labels = append(labels, variadicLabels(shape.VariadicName)...)
	}
	contract.ArgumentLabels = labels
	return contract, nil
}

// variadicLabels renders three numbered slots named after the singular of the
// variadic parameter followed by an ellipsis.
func variadicLabels(variadicName string) []string {
	stem := variadicName
	if len(stem) > 1 {
		stem = stem[:len(stem)-1]
	}
	labels := make([]string, 0, variadicSlotCount+1)
	for slot := 1; slot <= variadicSlotCount; slot++ {
		labels = append(labels, fmt.Sprintf(variadicLabelFormat, stem, slot))
	}
	return append(labels, ellipsisLabel)
}
