package state

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Key identifies one conversation: a user talking in a chat.
type Key struct {
	UserID int64
	ChatID int64
}

// String renders the key as user:chat for logs.
func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.UserID, k.ChatID)
}

// Session is the persisted position of a conversation inside a scene.
type Session struct {
	SceneID string
	Step    int
	// Form is the JSON encoding of the scene's form accumulator.
	Form json.RawMessage
	// Transient values survive exactly one step boundary.
	Transient map[string]string
	UpdatedAt time.Time
}

// Active reports whether the session belongs to a scene.
func (s Session) Active() bool {
	return s.SceneID != ""
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s Session) Clone() Session {
	out := s
	if s.Form != nil {
		out.Form = append(json.RawMessage(nil), s.Form...)
	}
	if s.Transient != nil {
		out.Transient = maps.Clone(s.Transient)
	}
	return out
}

// Store persists sessions. Get reports found=false when the conversation has
// no active scene; that is not an error.
type Store interface {
	Get(ctx context.Context, key Key) (sess Session, found bool, err error)
	Put(ctx context.Context, key Key, sess Session) error
	Clear(ctx context.Context, key Key) error
}
