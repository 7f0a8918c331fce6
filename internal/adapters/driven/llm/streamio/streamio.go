// Package streamio holds the streaming plumbing shared by the LLM adapters:
// server-sent event parsing and context-guarded token delivery.
package streamio

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ErrStop ends ReadSSE early without reporting an error.
var ErrStop = errors.New("stop reading")

// maxLineSize bounds a single SSE line.
const maxLineSize = 1 << 20

// Event is one server-sent event.
type Event struct {
	// Name is the "event:" field, empty for unnamed events.
	Name string

	// Data is the "data:" payload. Multiple data lines are joined with "\n".
	Data string
}

// ReadSSE parses r as a server-sent event stream and calls fn for each event.
// Comment lines and unknown fields are ignored. Returning ErrStop from fn
// ends reading with a nil error.
func ReadSSE(r io.Reader, fn func(Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var ev Event
	var data []string
	dispatch := func() error {
		if len(data) == 0 {
			ev = Event{}
			return nil
		}
		ev.Data = strings.Join(data, "\n")
		err := fn(ev)
		ev, data = Event{}, data[:0]
		return err
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			if err := dispatch(); err != nil {
				return stopIsNil(err)
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	// A final event without a trailing blank line still counts.
	return stopIsNil(dispatch())
}

func stopIsNil(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

// Send delivers tok unless ctx ends first. It reports whether the token was sent.
func Send(ctx context.Context, ch chan<- domain.Token, tok domain.Token) bool {
	select {
	case ch <- tok:
		return true
	case <-ctx.Done():
		return false
	}
}

// Fail sends err as the final token of a stream. Errors caused by ctx ending
// are dropped: the consumer has already gone away.
func Fail(ctx context.Context, ch chan<- domain.Token, err error) {
	if ctx.Err() != nil {
		return
	}
	Send(ctx, ch, domain.Token{Err: err})
}
