// Package transport defines platform-neutral messaging types so the rest
// of the bot never imports a chat SDK directly.
package transport

import "context"

type Update struct {
	Message  *Message
	Callback *Callback
}

// Message is an inbound chat message (commands included).
type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

// Callback is an inline-button press.
type Callback struct {
	ID        string
	ChatID    int64
	FromID    int64
	MessageID int
	Data      string
}

// Button is a single inline button. Data comes back as Callback.Data.
type Button struct {
	Text string
	Data string
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	// Buttons are rendered one per row below the message.
	Buttons []Button
}

const ParseModeMarkdown = "Markdown"

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type Adapter interface {
	// Start begins delivering inbound updates on out until ctx is done.
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, chatID int64, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	// AnswerCallback must be called promptly after a Callback update or the
	// client UI keeps a spinner on the pressed button.
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
