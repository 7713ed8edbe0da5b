package signature

import (
	"fmt"
	"strings"

	"github.com/temirov/projectkey/internal/types"
)

const (
	excessArgumentNamesFormat = "declares %d argument names for %d parameters"
	newlineSeparator          = "\n"
)

// Options carries what a command author declares at registration.
type Options struct {
	Defaults        []string
	ArgumentNames   []string
	Help            string
	IgnoreInterrupt bool
}

// Signature is the inspected form of one handler.
type Signature struct {
	Location        Location
	Shape           Shape
	Documentation   string
	HonorsInterrupt bool
	Position        types.Position
	invoker         *invoker
}

// Inspect derives the parameter shape, documentation and interrupt marker of
// handler.
func Inspect(handler any, options Options) (*Signature, error) {
	handlerValue, valueError := functionValue(handler)
	if valueError != nil {
		return nil, valueError
	}
	location, locateError := Locate(handler)
	if locateError != nil {
		return nil, locateError
	}
	layout, layoutError := analyzeHandler(handlerValue.Type())
	if layoutError != nil {
		return nil, layoutError
	}

	found, _ := handlerSources.find(location)
	shape := Shape{
		DefaultCount: len(options.Defaults),
		HasVariadic:  layout.hasVariadic,
		HasKeyword:   layout.hasKeyword,
	}
	for parameterIndex, kind := range layout.parameterKinds {
		sourceName := ""
		if parameterIndex < len(found.parameterNames) {
			sourceName = found.parameterNames[parameterIndex]
		}
		switch kind {
		case positionalParameter:
			shape.Parameters = append(shape.Parameters, sourceName)
		case variadicParameter:
			shape.VariadicName = sourceName
		}
	}
	if shape.HasVariadic && shape.VariadicName == "" {
		shape.VariadicName = fallbackVariadicName
	}
	if namesError := applyArgumentNames(&shape, options.ArgumentNames); namesError != nil {
		return nil, namesError
	}

	documentation := strings.TrimSpace(found.documentation)
	if options.Help != "" {
		documentation = strings.TrimSpace(options.Help)
	}
	position := types.Position{File: location.File, Line: location.Line}
	if found.line > 0 {
		position.Line = found.line
	}

	return &Signature{
		Location:        location,
		Shape:           shape,
		Documentation:   documentation,
		HonorsInterrupt: options.IgnoreInterrupt || found.hasDirective(IgnoreInterruptDirective),
		Position:        position,
		invoker: &invoker{
			handler:  handlerValue,
			layout:   layout,
			defaults: append([]string(nil), options.Defaults...),
		},
	}, nil
}

func applyArgumentNames(shape *Shape, argumentNames []string) error {
	if len(argumentNames) == 0 {
		return nil
	}
	nameableCount := len(shape.Parameters)
	if shape.HasVariadic {
		nameableCount++
	}
	if len(argumentNames) > nameableCount {
		return fmt.Errorf(excessArgumentNamesFormat, len(argumentNames), nameableCount)
	}
	for nameIndex, argumentName := range argumentNames {
		if nameIndex < len(shape.Parameters) {
			shape.Parameters[nameIndex] = argumentName
			continue
		}
		shape.VariadicName = argumentName
	}
	return nil
}

// Contract derives the command contract registered under commandName.
func (inspected *Signature) Contract(commandName string) (types.Contract, error) {
	contract, deriveError := Derive(commandName, inspected.Shape)
	if deriveError != nil {
		return types.Contract{}, deriveError
	}
	contract.HelpText = inspected.Documentation
	contract.OneLineHelp = strings.SplitN(inspected.Documentation, newlineSeparator, 2)[0]
	contract.Position = inspected.Position
	contract.HonorsInterrupt = inspected.HonorsInterrupt
	contract.Invoker = inspected.invoker
	return contract, nil
}
