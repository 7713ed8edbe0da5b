// Package clipboard copies command results to the system clipboard.
package clipboard

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
)

const copyErrorFormat = "copy %d bytes to clipboard: %w"

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	writeAll func(string) error
}

// NewService constructs a clipboard service backed by the platform clipboard.
func NewService() *Service {
	return &Service{writeAll: clipboard.WriteAll}
}

// Copy writes text to the clipboard without the trailing newline a terminal
// report would carry.
func (service *Service) Copy(text string) error {
	trimmed := strings.TrimRight(text, "\r\n")
	if writeError := service.writeAll(trimmed); writeError != nil {
		return fmt.Errorf(copyErrorFormat, len(trimmed), writeError)
	}
	return nil
}

var _ Copier = (*Service)(nil)
