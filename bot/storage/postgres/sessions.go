package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/woofinder/core/state"
)

// SessionStore persists wizard sessions in the wizard_sessions table so
// conversations survive restarts.
type SessionStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ state.Store = (*SessionStore)(nil)

// NewSessionStore wraps an open connection pool.
func NewSessionStore(db *sqlx.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

type sessionRow struct {
	SceneID   string    `db:"scene_id"`
	Step      int       `db:"step"`
	Form      []byte    `db:"form"`
	Transient []byte    `db:"transient"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Get implements state.Store.
func (s *SessionStore) Get(ctx context.Context, key state.Key) (state.Session, bool, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT scene_id, step, form, transient, updated_at
		FROM wizard_sessions WHERE user_id = $1 AND chat_id = $2`, key.UserID, key.ChatID)
	if errors.Is(err, sql.ErrNoRows) {
		return state.Session{}, false, nil
	}
	if err != nil {
		return state.Session{}, false, fmt.Errorf("get session %s: %w", key, err)
	}
	sess := state.Session{
		SceneID:   row.SceneID,
		Step:      row.Step,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Form) > 0 {
		sess.Form = json.RawMessage(row.Form)
	}
	if len(row.Transient) > 0 {
		if err := json.Unmarshal(row.Transient, &sess.Transient); err != nil {
			return state.Session{}, false, fmt.Errorf("decode session %s transient: %w", key, err)
		}
	}
	return sess, sess.Active(), nil
}

// Put implements state.Store. An inactive session clears the row.
func (s *SessionStore) Put(ctx context.Context, key state.Key, sess state.Session) error {
	if !sess.Active() {
		return s.Clear(ctx, key)
	}
	form := string(sess.Form)
	if form == "" {
		form = "{}"
	}
	var transient sql.NullString
	if len(sess.Transient) > 0 {
		b, err := json.Marshal(sess.Transient)
		if err != nil {
			return fmt.Errorf("encode session %s transient: %w", key, err)
		}
		transient = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wizard_sessions (user_id, chat_id, scene_id, step, form, transient, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, chat_id) DO UPDATE SET
			scene_id = EXCLUDED.scene_id,
			step = EXCLUDED.step,
			form = EXCLUDED.form,
			transient = EXCLUDED.transient,
			updated_at = EXCLUDED.updated_at`,
		key.UserID, key.ChatID, sess.SceneID, sess.Step, form, transient, s.now().UTC())
	if err != nil {
		return fmt.Errorf("put session %s: %w", key, err)
	}
	return nil
}

// Clear implements state.Store.
func (s *SessionStore) Clear(ctx context.Context, key state.Key) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE user_id = $1 AND chat_id = $2`,
		key.UserID, key.ChatID)
	if err != nil {
		return fmt.Errorf("clear session %s: %w", key, err)
	}
	return nil
}
