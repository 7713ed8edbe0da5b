// Package utils provides logging, version and file name helpers shared by
// key programs and the launcher.
package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	// ModulePath is the import path key programs depend on.
	ModulePath = "github.com/temirov/projectkey"

	unknownVersion = "unknown"
	develVersion   = "(devel)"
)

// GetApplicationVersion reports the projectkey version linked into the
// running binary. It checks Go build info first, for the main module and
// then for a dependency, and falls back to git describe in a checkout.
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if version := versionFromBuildInfo(buildInfo, buildInfoAvailable); version != "" {
		return version
	}

	gitDirectoryPath, gitDirectoryError := findGitDirectory(".")
	if gitDirectoryError == nil && gitDirectoryPath != "" {
		// #nosec G204
		gitExactCommand := exec.Command("git", "describe", "--tags", "--exact-match")
		gitExactCommand.Dir = gitDirectoryPath
		gitExactOutput, errorGitExact := gitExactCommand.Output()
		if errorGitExact == nil && len(gitExactOutput) > 0 {
			return strings.TrimSpace(string(gitExactOutput))
		}

		// #nosec G204
		gitLongCommand := exec.Command("git", "describe", "--tags", "--long", "--dirty")
		gitLongCommand.Dir = gitDirectoryPath
		gitLongOutput, errorGitLong := gitLongCommand.Output()
		if errorGitLong == nil && len(gitLongOutput) > 0 {
			return strings.TrimSpace(string(gitLongOutput))
		}
	}

	return unknownVersion
}

func versionFromBuildInfo(buildInfo *debug.BuildInfo, available bool) string {
	if !available || buildInfo == nil {
		return ""
	}
	if buildInfo.Main.Path == ModulePath && usableVersion(buildInfo.Main.Version) {
		return buildInfo.Main.Version
	}
	for _, dependency := range buildInfo.Deps {
		if dependency == nil || dependency.Path != ModulePath {
			continue
		}
		if dependency.Replace != nil && usableVersion(dependency.Replace.Version) {
			return dependency.Replace.Version
		}
		if usableVersion(dependency.Version) {
			return dependency.Version
		}
	}
	return ""
}

func usableVersion(version string) bool {
	return version != "" && version != develVersion
}

// findGitDirectory searches upward from the provided starting directory
// until it locates a directory containing the .git folder and returns
// the path to that directory.
func findGitDirectory(startDirectory string) (string, error) {
	absoluteStartDirectory, errorAbsolute := filepath.Abs(startDirectory)
	if errorAbsolute != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", startDirectory, errorAbsolute)
	}

	currentDirectory := absoluteStartDirectory
	for {
		gitPath := filepath.Join(currentDirectory, GitDirectoryName)
		fileInformation, errorStat := os.Stat(gitPath)
		if errorStat == nil && fileInformation.IsDir() {
			return currentDirectory, nil
		}

		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}

	return "", fmt.Errorf(".git directory not found in or above %s", absoluteStartDirectory)
}
