// Package wizardtest provides in-memory stand-ins for the transport side of
// the wizard engine.
package wizardtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/m3rciful/woofinder/core/state"
	"github.com/m3rciful/woofinder/core/wizard"
)

// Notification is a message sent to another user.
type Notification struct {
	UserID  int64
	Message wizard.Message
}

// Recorder captures replies and notifications in order.
type Recorder struct {
	mu            sync.Mutex
	replies       []wizard.Message
	notifications []Notification
	// FailReplies makes Reply return an error.
	FailReplies bool
}

var errReplyFailed = errors.New("wizardtest: reply failed")

// Reply implements wizard.Responder.
func (r *Recorder) Reply(_ context.Context, msg wizard.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailReplies {
		return errReplyFailed
	}
	r.replies = append(r.replies, msg)
	return nil
}

// Notify implements wizard.Responder.
func (r *Recorder) Notify(_ context.Context, userID int64, msg wizard.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{UserID: userID, Message: msg})
	return nil
}

// Replies returns every reply so far.
func (r *Recorder) Replies() []wizard.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]wizard.Message(nil), r.replies...)
}

// Texts returns the text of every reply so far.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.replies))
	for i, m := range r.replies {
		out[i] = m.Text
	}
	return out
}

// Last returns the most recent reply.
func (r *Recorder) Last() wizard.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return wizard.Message{}
	}
	return r.replies[len(r.replies)-1]
}

// LastText returns the text of the most recent reply.
func (r *Recorder) LastText() string {
	return r.Last().Text
}

// Contains reports whether any reply contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, t := range r.Texts() {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}

// Notifications returns every notification so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

// Reset forgets captured messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = nil
	r.notifications = nil
}

// Files is a FileResolver that accepts only the listed references.
type Files map[string]bool

// ErrFileNotFound is returned for references not in Files.
var ErrFileNotFound = errors.New("wizardtest: file not found")

// ResolveFile implements wizard.FileResolver.
func (f Files) ResolveFile(_ context.Context, ref string) error {
	if f[ref] {
		return nil
	}
	return ErrFileNotFound
}

// Conversation builds requests for one user in a private chat.
type Conversation struct {
	Sender wizard.Sender
	Out    *Recorder
	Files  wizard.FileResolver
}

// NewConversation returns a conversation for user id with a fresh recorder.
func NewConversation(id int64, firstName string) *Conversation {
	return &Conversation{
		Sender: wizard.Sender{ID: id, FirstName: firstName},
		Out:    &Recorder{},
		Files:  Files{},
	}
}

// Key is the session key of the conversation.
func (c *Conversation) Key() state.Key {
	return state.Key{UserID: c.Sender.ID, ChatID: c.Sender.ID}
}

// Request wraps ev for this conversation.
func (c *Conversation) Request(ev wizard.Event) wizard.Request {
	sender := c.Sender
	return wizard.Request{
		Conversation: c.Key(),
		Sender:       &sender,
		Event:        ev,
		Out:          c.Out,
		Files:        c.Files,
	}
}

// Text wraps a text message.
func (c *Conversation) Text(s string) wizard.Request {
	return c.Request(wizard.Text{Content: s})
}

// Press wraps a button press.
func (c *Conversation) Press(data string) wizard.Request {
	return c.Request(wizard.Callback{Data: data})
}

// Command wraps a slash command.
func (c *Conversation) Command(name string) wizard.Request {
	return c.Request(wizard.Command{Name: name})
}
