package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	assert.NotEqual(t, ErrMissingChatService.Error(), ErrMissingFileID.Error())
}

func TestErrMissingChatService_Message(t *testing.T) {
	assert.Contains(t, ErrMissingChatService.Error(), "chat service")
}

func TestErrMissingFileID_Message(t *testing.T) {
	assert.Contains(t, ErrMissingFileID.Error(), "file id")
}
