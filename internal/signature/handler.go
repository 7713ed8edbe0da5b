package signature

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/temirov/projectkey/internal/types"
)

const (
	notFunctionFormat          = "handler of type %T is not a function"
	nilHandlerReason           = "handler is nil"
	unsupportedParameterFormat = "parameter %d has unsupported type %s"
	misplacedContextFormat     = "context parameter %d must come first"
	misplacedKeywordFormat     = "parameter %d follows the keyword tail"
	duplicateKeywordFormat     = "parameter %d declares a second keyword tail"
	unsupportedVariadicFormat  = "variadic tail of type %s must be ...string"
	unsupportedResultsFormat   = "results %s must be (), (T), (error) or (T, error)"
	fallbackVariadicName       = "args"
	methodValueSuffix          = "-fm"
)

type parameterKind int

const (
	positionalParameter parameterKind = iota
	projectContextParameter
	standardContextParameter
	keywordParameter
	variadicParameter
)

type resultKind int

const (
	noResult resultKind = iota
	valueResult
	errorResult
	valueAndErrorResult
)

var (
	projectContextType  = reflect.TypeOf((*types.Context)(nil))
	standardContextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	stringType          = reflect.TypeOf("")
	keywordType         = reflect.TypeOf(map[string]string(nil))
	errorType           = reflect.TypeOf((*error)(nil)).Elem()
)

// Location identifies where a handler was compiled from.
type Location struct {
	RuntimeName string
	PackagePath string
	Identifier  string
	File        string
	Line        int
}

// Plain reports whether the handler is a top-level function rather than a
// closure or method value.
func (location Location) Plain() bool {
	return location.Identifier != "" &&
		!strings.ContainsAny(location.Identifier, ".()") &&
		!strings.HasSuffix(location.Identifier, methodValueSuffix)
}

// Locate reports the runtime identity of handler.
func Locate(handler any) (Location, error) {
	handlerValue, valueError := functionValue(handler)
	if valueError != nil {
		return Location{}, valueError
	}
	runtimeFunction := runtime.FuncForPC(handlerValue.Pointer())
	if runtimeFunction == nil {
		return Location{}, nil
	}
	file, line := runtimeFunction.FileLine(runtimeFunction.Entry())
	runtimeName := runtimeFunction.Name()
	packagePath, identifier := SplitRuntimeName(runtimeName)
	return Location{
		RuntimeName: runtimeName,
		PackagePath: packagePath,
		Identifier:  identifier,
		File:        file,
		Line:        line,
	}, nil
}

// SplitRuntimeName separates a runtime function name such as
// "example.com/key.greet" into its package path and identifier.
func SplitRuntimeName(runtimeName string) (string, string) {
	lastSlash := strings.LastIndex(runtimeName, "/")
	dotIndex := strings.Index(runtimeName[lastSlash+1:], ".")
	if dotIndex < 0 {
		return runtimeName, ""
	}
	splitIndex := lastSlash + 1 + dotIndex
	return runtimeName[:splitIndex], runtimeName[splitIndex+1:]
}

func functionValue(handler any) (reflect.Value, error) {
	if handler == nil {
		return reflect.Value{}, fmt.Errorf(nilHandlerReason)
	}
	handlerValue := reflect.ValueOf(handler)
	if handlerValue.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf(notFunctionFormat, handler)
	}
	if handlerValue.IsNil() {
		return reflect.Value{}, fmt.Errorf(nilHandlerReason)
	}
	return handlerValue, nil
}

// handlerLayout records how reflect parameters map onto command arguments.
type handlerLayout struct {
	parameterKinds  []parameterKind
	positionalCount int
	hasVariadic     bool
	hasKeyword      bool
	results         resultKind
}

func analyzeHandler(handlerType reflect.Type) (handlerLayout, error) {
	layout := handlerLayout{parameterKinds: make([]parameterKind, handlerType.NumIn())}
	for parameterIndex := 0; parameterIndex < handlerType.NumIn(); parameterIndex++ {
		parameterType := handlerType.In(parameterIndex)
		isLast := parameterIndex == handlerType.NumIn()-1
		switch {
		case parameterType == projectContextType || parameterType == standardContextType:
			if parameterIndex != 0 {
				return handlerLayout{}, fmt.Errorf(misplacedContextFormat, parameterIndex+1)
			}
			if parameterType == projectContextType {
				layout.parameterKinds[parameterIndex] = projectContextParameter
			} else {
				layout.parameterKinds[parameterIndex] = standardContextParameter
			}
		case isLast && handlerType.IsVariadic():
			if parameterType.Elem() != stringType {
				return handlerLayout{}, fmt.Errorf(unsupportedVariadicFormat, parameterType)
			}
			layout.parameterKinds[parameterIndex] = variadicParameter
			layout.hasVariadic = true
		case parameterType == keywordType:
			if layout.hasKeyword {
				return handlerLayout{}, fmt.Errorf(duplicateKeywordFormat, parameterIndex+1)
			}
			layout.parameterKinds[parameterIndex] = keywordParameter
			layout.hasKeyword = true
		case parameterType == stringType:
			if layout.hasKeyword {
				return handlerLayout{}, fmt.Errorf(misplacedKeywordFormat, parameterIndex+1)
			}
			layout.parameterKinds[parameterIndex] = positionalParameter
			layout.positionalCount++
		default:
			return handlerLayout{}, fmt.Errorf(unsupportedParameterFormat, parameterIndex+1, parameterType)
		}
	}

	resultsError := fmt.Errorf(unsupportedResultsFormat, describeResults(handlerType))
	switch handlerType.NumOut() {
	case 0:
		layout.results = noResult
	case 1:
		if handlerType.Out(0) == errorType {
			layout.results = errorResult
		} else {
			layout.results = valueResult
		}
	case 2:
		if handlerType.Out(1) != errorType {
			return handlerLayout{}, resultsError
		}
		layout.results = valueAndErrorResult
	default:
		return handlerLayout{}, resultsError
	}
	return layout, nil
}

func describeResults(handlerType reflect.Type) string {
	resultNames := make([]string, 0, handlerType.NumOut())
	for resultIndex := 0; resultIndex < handlerType.NumOut(); resultIndex++ {
		resultNames = append(resultNames, handlerType.Out(resultIndex).String())
	}
	return "(" + strings.Join(resultNames, ", ") + ")"
}

// invoker calls a handler with string arguments, filling defaults for omitted
// optional parameters.
type invoker struct {
	handler  reflect.Value
	layout   handlerLayout
	defaults []string
}

func (callable *invoker) Invoke(executionContext *types.Context, arguments []string) (any, error) {
	callArguments := make([]reflect.Value, 0, len(callable.layout.parameterKinds)+len(arguments))
	firstDefaultIndex := callable.layout.positionalCount - len(callable.defaults)
	positionalIndex := 0
	for _, kind := range callable.layout.parameterKinds {
		switch kind {
		case projectContextParameter:
			callArguments = append(callArguments, reflect.ValueOf(executionContext))
		case standardContextParameter:
			callArguments = append(callArguments, reflect.ValueOf(executionContext.Context()))
		case keywordParameter:
			callArguments = append(callArguments, reflect.ValueOf(map[string]string{}))
		case positionalParameter:
			value := ""
			if positionalIndex < len(arguments) {
				value = arguments[positionalIndex]
			} else if defaultIndex := positionalIndex - firstDefaultIndex; defaultIndex >= 0 && defaultIndex < len(callable.defaults) {
				value = callable.defaults[defaultIndex]
			}
			callArguments = append(callArguments, reflect.ValueOf(value))
			positionalIndex++
		case variadicParameter:
			if positionalIndex < len(arguments) {
				for _, tailArgument := range arguments[positionalIndex:] {
					callArguments = append(callArguments, reflect.ValueOf(tailArgument))
				}
			}
		}
	}

	results := callable.handler.Call(callArguments)
	switch callable.layout.results {
	case valueResult:
		return resultValue(results[0]), nil
	case errorResult:
		return nil, resultError(results[0])
	case valueAndErrorResult:
		return resultValue(results[0]), resultError(results[1])
	default:
		return nil, nil
	}
}

func resultValue(value reflect.Value) any {
	switch value.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if value.IsNil() {
			return nil
		}
	}
	return value.Interface()
}

func resultError(value reflect.Value) error {
	if value.IsNil() {
		return nil
	}
	return value.Interface().(error)
}
