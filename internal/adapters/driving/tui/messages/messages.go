// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// QuestionSubmitted is sent when the user submits a question.
type QuestionSubmitted struct {
	Text string
}

// StreamStarted carries the token stream for the submitted question.
type StreamStarted struct {
	Tokens <-chan domain.Token
}

// TokenReceived carries one streamed piece of the answer.
type TokenReceived struct {
	Text string
}

// StreamEnded signals the answer is complete. Err is set when generation
// failed or was cancelled part way.
type StreamEnded struct {
	Err error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
