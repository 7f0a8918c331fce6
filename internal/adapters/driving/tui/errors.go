package tui

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("tui: chat service is required")

// ErrMissingFileID is returned when no document is selected for the chat.
var ErrMissingFileID = errors.New("tui: file id is required")
