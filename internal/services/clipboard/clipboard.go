// Package clipboard copies rendered listings to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

const errorCopyFormat = "copy to clipboard: %w"

// ErrUnsupported is returned when no clipboard utility is available on this system.
var ErrUnsupported = errors.New("clipboard is not supported on this system")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	writeAll func(text string) error
}

// NewService returns a Service bound to the system clipboard.
func NewService() *Service {
	if clipboard.Unsupported {
		return &Service{writeAll: func(string) error { return ErrUnsupported }}
	}
	return &Service{writeAll: clipboard.WriteAll}
}

// Copy replaces the clipboard contents with text.
func (service *Service) Copy(text string) error {
	if service == nil || service.writeAll == nil {
		return ErrUnsupported
	}
	if err := service.writeAll(text); err != nil {
		return fmt.Errorf(errorCopyFormat, err)
	}
	return nil
}

var _ Copier = (*Service)(nil)
