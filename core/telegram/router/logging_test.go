package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type codedErr struct{ code string }

func (e codedErr) Error() string { return "coded" }
func (e codedErr) Code() string  { return e.code }

type lookupError struct{}

func (*lookupError) Error() string { return "lookup" }

func TestHandlerName(t *testing.T) {
	assert.Equal(t, "command.pets", handlerName("command", "/Pets"))
	assert.Equal(t, "callback.pet_register", handlerName("callback", "pet register"))
	assert.Equal(t, "callback.unknown", handlerName("callback", "  "))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", errorCode(codedErr{code: "not found"}))
	assert.Equal(t, "LOOKUPERROR", errorCode(&lookupError{}))
	assert.Equal(t, "WRAPERROR", errorCode(fmt.Errorf("ctx: %w", errors.New("x"))))
	assert.Equal(t, "ERRORSTRING", errorCode(errors.New("plain")))
}
