package middleware

import (
	"github.com/m3rciful/woofinder/core/metrics"

	tele "gopkg.in/telebot.v4"
)

const repliesKey = "replies"

// replies counts what a handler sent back for the current update.
type replies struct {
	messages int
	keyboard bool
}

func (r *replies) add(err error, opts []interface{}) error {
	if err != nil {
		return err
	}
	r.messages++
	r.keyboard = r.keyboard || hasKeyboard(opts)
	return nil
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// countingContext counts successful replies made through the tele.Context.
type countingContext struct {
	tele.Context
	r *replies
}

func (c countingContext) Send(what interface{}, opts ...interface{}) error {
	return c.r.add(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what interface{}, opts ...interface{}) error {
	return c.r.add(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what interface{}, opts ...interface{}) error {
	return c.r.add(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return c.r.add(c.Context.EditOrSend(what, opts...), opts)
}

func (c countingContext) EditOrReply(what interface{}, opts ...interface{}) error {
	return c.r.add(c.Context.EditOrReply(what, opts...), opts)
}

// MessageMetricsMiddleware counts the replies of each update and reports
// them to m when the handler returns.
func MessageMetricsMiddleware(m *metrics.Metrics) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			r := &replies{}
			c.Set(repliesKey, r)
			err := next(countingContext{Context: c, r: r})
			m.RecordMessages(r.messages, r.keyboard)
			return err
		}
	}
}

// GetCounters returns the replies counted so far for the update in c.
func GetCounters(c tele.Context) (int, bool) {
	if r, ok := c.Get(repliesKey).(*replies); ok {
		return r.messages, r.keyboard
	}
	return 0, false
}
