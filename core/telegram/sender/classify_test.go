package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	tele "gopkg.in/telebot.v4"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), "timeout"},
		{"net timeout", timeoutErr{}, "timeout"},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.telegram.org"}, "dns"},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, "dial"},
		{"api 403", &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}, "http_4xx"},
		{"message status", errors.New("telegram: internal error (502)"), "http_5xx"},
		{"opaque", errors.New("boom"), "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyError(tc.err))
		})
	}
}

func TestRedactToken(t *testing.T) {
	msg := `Post "https://api.telegram.org/bot123456:AA-bb_CC/sendMessage": EOF`
	got := redactToken(msg)
	assert.NotContains(t, got, "123456:AA-bb_CC")
	assert.Contains(t, got, "bot<redacted>/sendMessage")
}
