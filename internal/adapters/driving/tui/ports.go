// Package tui provides an interactive terminal chat for docchat.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"strings"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	// Chat answers questions about the selected document.
	Chat driving.ChatService

	// FileID is the document every question is scoped to.
	FileID string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if strings.TrimSpace(p.FileID) == "" {
		return ErrMissingFileID
	}
	return nil
}
