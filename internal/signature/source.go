package signature

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/tools/go/packages"
)

// IgnoreInterruptDirective in a handler's doc comment opts the command out of
// the abort-on-interrupt policy.
const IgnoreInterruptDirective = "//projectkey:ignore-interrupt"

// declaration is what the source reveals about one handler.
type declaration struct {
	parameterNames []string
	documentation  string
	directives     []string
	line           int
}

func (found declaration) hasDirective(directive string) bool {
	for _, candidate := range found.directives {
		if candidate == directive {
			return true
		}
	}
	return false
}

// sourceReader parses handler sources once per file or package.
type sourceReader struct {
	mutex        sync.Mutex
	fileSet      *token.FileSet
	parsedFiles  map[string]*ast.File
	packageFiles map[string][]*ast.File
}

func newSourceReader() *sourceReader {
	return &sourceReader{
		fileSet:      token.NewFileSet(),
		parsedFiles:  map[string]*ast.File{},
		packageFiles: map[string][]*ast.File{},
	}
}

var handlerSources = newSourceReader()

// find returns the declaration of the handler at location.
func (reader *sourceReader) find(location Location) (declaration, bool) {
	if location.File == "" {
		return declaration{}, false
	}
	for _, fileAST := range reader.filesFor(location) {
		if found, ok := reader.findInFile(fileAST, location); ok {
			return found, true
		}
	}
	return declaration{}, false
}

func (reader *sourceReader) filesFor(location Location) []*ast.File {
	reader.mutex.Lock()
	defer reader.mutex.Unlock()

	if _, statError := os.Stat(location.File); statError == nil {
		if fileAST, cached := reader.parsedFiles[location.File]; cached {
			return nonNilFiles(fileAST)
		}
		fileAST, parseError := parser.ParseFile(reader.fileSet, location.File, nil, parser.ParseComments)
		if parseError != nil {
			fileAST = nil
		}
		reader.parsedFiles[location.File] = fileAST
		return nonNilFiles(fileAST)
	}

	// Binaries built with -trimpath record module-relative file names.
	if location.PackagePath == "" {
		return nil
	}
	if files, cached := reader.packageFiles[location.PackagePath]; cached {
		return files
	}
	packagesConfig := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax,
		Fset: reader.fileSet,
	}
	var files []*ast.File
	if loadedPackages, loadError := packages.Load(packagesConfig, location.PackagePath); loadError == nil {
		for _, loadedPackage := range loadedPackages {
			files = append(files, loadedPackage.Syntax...)
		}
	}
	reader.packageFiles[location.PackagePath] = files
	return files
}

func nonNilFiles(fileAST *ast.File) []*ast.File {
	if fileAST == nil {
		return nil
	}
	return []*ast.File{fileAST}
}

func (reader *sourceReader) findInFile(fileAST *ast.File, location Location) (declaration, bool) {
	if location.Plain() {
		for _, topLevel := range fileAST.Decls {
			functionDeclaration, isFunction := topLevel.(*ast.FuncDecl)
			if !isFunction || functionDeclaration.Recv != nil || functionDeclaration.Name.Name != location.Identifier {
				continue
			}
			found := declaration{
				parameterNames: parameterNames(functionDeclaration.Type),
				line:           reader.fileSet.Position(functionDeclaration.Pos()).Line,
			}
			if functionDeclaration.Doc != nil {
				found.documentation = functionDeclaration.Doc.Text()
				for _, comment := range functionDeclaration.Doc.List {
					found.directives = append(found.directives, comment.Text)
				}
			}
			return found, true
		}
		return declaration{}, false
	}

	var found declaration
	var matched bool
	ast.Inspect(fileAST, func(node ast.Node) bool {
		if matched {
			return false
		}
		literal, isLiteral := node.(*ast.FuncLit)
		if !isLiteral {
			return true
		}
		literalPosition := reader.fileSet.Position(literal.Pos())
		if literalPosition.Line != location.Line || filepath.Base(literalPosition.Filename) != filepath.Base(location.File) {
			return true
		}
		found = declaration{parameterNames: parameterNames(literal.Type), line: literalPosition.Line}
		matched = true
		return false
	})
	return found, matched
}

func parameterNames(functionType *ast.FuncType) []string {
	if functionType == nil || functionType.Params == nil {
		return nil
	}
	var names []string
	for _, field := range functionType.Params.List {
		if len(field.Names) == 0 {
			names = append(names, "")
			continue
		}
		for _, name := range field.Names {
			if name.Name == "_" {
				names = append(names, "")
				continue
			}
			names = append(names, name.Name)
		}
	}
	return names
}
