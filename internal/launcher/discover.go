// Package launcher locates a key program above the working directory and
// runs it with the launch directory passed along.
package launcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/mod/modfile"

	"github.com/temirov/projectkey/internal/utils"
)

const (
	goModFileName = "go.mod"

	keyFileNotFoundFormat    = "no %s found in %s or any parent directory"
	moduleNotFoundFormat     = "%s is not inside a Go module; run 'go mod init' in %s"
	missingRequirementFormat = "module %s does not require %s; run 'go get %s' in %s"
	readModuleErrorFormat    = "read %s: %w"
	parseModuleErrorFormat   = "parse %s: %w"
)

var (
	// ErrKeyFileNotFound indicates no key program exists above the start directory.
	ErrKeyFileNotFound = errors.New("key file not found")
	// ErrModuleNotFound indicates the key program has no enclosing go.mod.
	ErrModuleNotFound = errors.New("go module not found")
	// ErrMissingRequirement indicates the enclosing module does not depend on projectkey.
	ErrMissingRequirement = errors.New("projectkey requirement missing")
)

// Module describes the Go module enclosing a key program.
type Module struct {
	Path               string
	Directory          string
	RequiresProjectKey bool
}

// FindKeyFile walks from startDirectory towards the file system root and
// returns the first regular file named keyFileName.
func FindKeyFile(fileSystem afero.Fs, startDirectory string, keyFileName string) (string, error) {
	currentDirectory := filepath.Clean(startDirectory)
	for {
		candidatePath := filepath.Join(currentDirectory, keyFileName)
		if info, statError := fileSystem.Stat(candidatePath); statError == nil && !info.IsDir() {
			return candidatePath, nil
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}
	return "", fmt.Errorf("%w: "+keyFileNotFoundFormat, ErrKeyFileNotFound, keyFileName, startDirectory)
}

// LoadModule finds the go.mod governing keyDirectory and reports whether it
// depends on projectkey.
func LoadModule(fileSystem afero.Fs, keyDirectory string) (Module, error) {
	moduleDirectory := filepath.Clean(keyDirectory)
	for {
		goModPath := filepath.Join(moduleDirectory, goModFileName)
		goModBytes, readError := afero.ReadFile(fileSystem, goModPath)
		if readError == nil {
			return parseModule(goModPath, moduleDirectory, goModBytes)
		}
		if !os.IsNotExist(readError) {
			return Module{}, fmt.Errorf(readModuleErrorFormat, goModPath, readError)
		}
		parentDirectory := filepath.Dir(moduleDirectory)
		if parentDirectory == moduleDirectory {
			break
		}
		moduleDirectory = parentDirectory
	}
	return Module{}, fmt.Errorf("%w: "+moduleNotFoundFormat, ErrModuleNotFound, keyDirectory, keyDirectory)
}

func parseModule(goModPath string, moduleDirectory string, goModBytes []byte) (Module, error) {
	moduleFile, parseError := modfile.Parse(goModFileName, goModBytes, nil)
	if parseError != nil {
		return Module{}, fmt.Errorf(parseModuleErrorFormat, goModPath, parseError)
	}
	module := Module{Directory: moduleDirectory}
	if moduleFile.Module != nil {
		module.Path = moduleFile.Module.Mod.Path
	}
	module.RequiresProjectKey = module.Path == utils.ModulePath
	for _, requirement := range moduleFile.Require {
		if requirement != nil && requirement.Mod.Path == utils.ModulePath {
			module.RequiresProjectKey = true
			break
		}
	}
	return module, nil
}

// RequireProjectKey returns an error naming the fix when module does not
// depend on projectkey.
func (module Module) RequireProjectKey() error {
	if module.RequiresProjectKey {
		return nil
	}
	return fmt.Errorf("%w: "+missingRequirementFormat, ErrMissingRequirement, module.Path, utils.ModulePath, utils.ModulePath, module.Directory)
}
