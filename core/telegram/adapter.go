package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/woofinder/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/woofinder/core/telegram/helpers"
	"github.com/m3rciful/woofinder/core/telegram/keyboard"
	"github.com/m3rciful/woofinder/core/wizard"

	tele "gopkg.in/telebot.v4"
)

var errEmptyMessage = errors.New("telegram: message has nothing to send")

// EventFromContext converts the update behind c into a wizard event. ok is
// false for updates the wizard has no use for (edits, polls, stickers).
func EventFromContext(c tele.Context) (wizard.Event, bool) {
	if cb := c.Callback(); cb != nil {
		return wizard.Callback{Data: callbacks.Data(cb)}, true
	}
	msg := c.Message()
	if msg == nil {
		return nil, false
	}
	switch {
	case msg.Location != nil:
		return wizard.Location{Lat: float64(msg.Location.Lat), Lon: float64(msg.Location.Lng)}, true
	case msg.Contact != nil:
		ct := msg.Contact
		return wizard.Contact{
			Phone:     ct.PhoneNumber,
			FirstName: ct.FirstName,
			LastName:  ct.LastName,
			UserID:    ct.UserID,
		}, true
	case msg.Photo != nil:
		return wizard.Photo{FileRef: msg.Photo.FileID}, true
	case msg.Document != nil:
		return wizard.Document{FileRef: msg.Document.FileID, FileName: msg.Document.FileName}, true
	}
	if msg.Text == "" {
		return nil, false
	}
	if cmd, ok := wizard.ParseCommand(msg.Text); ok {
		return cmd, true
	}
	return wizard.Text{Content: msg.Text}, true
}

// NewRequest builds the wizard request for the update behind c.
func NewRequest(c tele.Context) (wizard.Request, bool) {
	ev, ok := EventFromContext(c)
	if !ok {
		return wizard.Request{}, false
	}
	return wizard.Request{
		Conversation: tghelpers.ConversationKey(c),
		Sender:       tghelpers.SenderFrom(c),
		Event:        ev,
		Out:          Responder{c: c},
		Files:        NewFileResolver(c.Bot()),
	}, true
}

// Responder answers the current update through telebot. Replies are sent
// synchronously; notifications to other users go through the async sender.
type Responder struct {
	c tele.Context
}

// Reply sends msg to the chat of the current update.
func (r Responder) Reply(_ context.Context, msg wizard.Message) error {
	return deliver(func(what interface{}, opts *tele.SendOptions) error {
		return r.c.Send(what, opts)
	}, msg)
}

// Notify queues msg for the private chat of userID.
func (r Responder) Notify(ctx context.Context, userID int64, msg wizard.Message) error {
	api := r.c.Bot()
	return deliver(func(what interface{}, opts *tele.SendOptions) error {
		return tghelpers.SendTo(ctx, api, userID, what, opts)
	}, msg)
}

// deliver renders msg as one or two telebot sends. A location is preceded by
// its text, since Telegram location messages have no caption.
func deliver(send func(what interface{}, opts *tele.SendOptions) error, msg wizard.Message) error {
	opts := &tele.SendOptions{ReplyMarkup: keyboard.Markup(msg)}
	if msg.Format == wizard.FormatHTML {
		opts.ParseMode = tele.ModeHTML
	}

	switch {
	case msg.PhotoRef != "":
		photo := &tele.Photo{File: tele.File{FileID: msg.PhotoRef}, Caption: msg.Text}
		if err := send(photo, opts); err != nil {
			return fmt.Errorf("send photo: %w", err)
		}
		return nil
	case msg.Location != nil:
		if msg.Text != "" {
			if err := send(msg.Text, &tele.SendOptions{ParseMode: opts.ParseMode}); err != nil {
				return fmt.Errorf("send text: %w", err)
			}
		}
		loc := &tele.Location{Lat: float32(msg.Location.Lat), Lng: float32(msg.Location.Lon)}
		if err := send(loc, &tele.SendOptions{ReplyMarkup: opts.ReplyMarkup}); err != nil {
			return fmt.Errorf("send location: %w", err)
		}
		return nil
	case msg.Text == "":
		return errEmptyMessage
	}
	if err := send(msg.Text, opts); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

type fileGetter interface {
	FileByID(fileID string) (tele.File, error)
}

// FileResolver checks photo and document references against the Bot API.
type FileResolver struct {
	api fileGetter
}

// NewFileResolver wraps a bot. Anything without FileByID yields a resolver
// that rejects every reference.
func NewFileResolver(bot any) FileResolver {
	api, _ := bot.(fileGetter)
	return FileResolver{api: api}
}

// ResolveFile reports an error when Telegram cannot find ref.
func (f FileResolver) ResolveFile(_ context.Context, ref string) error {
	if f.api == nil {
		return errors.New("telegram: no bot to resolve files with")
	}
	if _, err := f.api.FileByID(ref); err != nil {
		return fmt.Errorf("resolve file: %w", err)
	}
	return nil
}
