package transport

import "context"

// Message is one inbound text message, normalized away from any
// platform-specific update shape.
type Message struct {
	ChatID    int64
	FirstName string
	Text      string

	// Command is the bare command name ("subscribe", "quote", ...) when the
	// text is a command invocation, empty for free text.
	Command string
}

type Update struct {
	Message *Message
}

// Adapter is the narrow messaging surface the core depends on. It hides the
// chat platform so handlers and the broadcaster are testable with fakes.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, chatID int64, text string) error
}
