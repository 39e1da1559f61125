package wizard

import (
	"context"

	"github.com/m3rciful/woofinder/core/state"
)

// Format selects how Message.Text is interpreted by the transport.
type Format int

const (
	FormatPlain Format = iota
	FormatHTML
)

// Button is an inline keyboard button. Data comes back verbatim as a Callback.
type Button struct {
	Label string
	Data  string
}

// Point is a map location attached to an outbound message.
type Point struct {
	Lat float64
	Lon float64
}

// Message is an outbound reply. With PhotoRef set it is sent as a photo with
// Text as caption; with Location set, Text (if any) goes first, then the pin.
type Message struct {
	Text           string
	Format         Format
	Buttons        [][]Button
	Location       *Point
	PhotoRef       string
	RequestContact bool
	RemoveKeyboard bool
}

// Plain builds an unformatted text message.
func Plain(text string) Message {
	return Message{Text: text}
}

// HTML builds a message rendered with HTML markup.
func HTML(text string) Message {
	return Message{Text: text, Format: FormatHTML}
}

// WithButtons returns a copy of m with one button per row.
func (m Message) WithButtons(buttons ...Button) Message {
	rows := make([][]Button, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []Button{b})
	}
	m.Buttons = rows
	return m
}

// WithRows returns a copy of m with the given keyboard rows.
func (m Message) WithRows(rows ...[]Button) Message {
	m.Buttons = rows
	return m
}

// Responder delivers outbound messages. Reply goes to the current
// conversation and completes before returning; Notify targets another user.
type Responder interface {
	Reply(ctx context.Context, msg Message) error
	Notify(ctx context.Context, userID int64, msg Message) error
}

// FileResolver checks that a platform file reference can be fetched.
type FileResolver interface {
	ResolveFile(ctx context.Context, ref string) error
}

// Sender describes the user behind an event.
type Sender struct {
	ID           int64
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
	IsBot        bool
	IsPremium    bool
}

// Request is one inbound event together with everything needed to answer it.
// Sender is nil when the platform did not identify the user.
type Request struct {
	Conversation state.Key
	Sender       *Sender
	Event        Event
	Out          Responder
	Files        FileResolver
}

// Grid lays buttons out perRow to a row.
func Grid(perRow int, buttons ...Button) [][]Button {
	if perRow < 1 {
		perRow = 1
	}
	rows := make([][]Button, 0, (len(buttons)+perRow-1)/perRow)
	for start := 0; start < len(buttons); start += perRow {
		end := min(start+perRow, len(buttons))
		rows = append(rows, append([]Button(nil), buttons[start:end]...))
	}
	return rows
}
