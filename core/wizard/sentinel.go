package wizard

import "strings"

const (
	// ExitToken cancels the active scene from any free-text step.
	ExitToken = "exit"
	// BackToken returns to the previous step.
	BackToken = "back"

	callbackSep = ":"
)

// IsExit reports whether ev is the exit sentinel, typed or pressed.
func IsExit(ev Event) bool {
	switch e := ev.(type) {
	case Text:
		return strings.EqualFold(strings.TrimSpace(e.Content), ExitToken)
	case Callback:
		return e.Data == ExitToken
	}
	return false
}

// IsBack reports whether ev is the back sentinel.
func IsBack(ev Event) bool {
	switch e := ev.(type) {
	case Text:
		return strings.EqualFold(strings.TrimSpace(e.Content), BackToken)
	case Callback:
		return e.Data == BackToken
	}
	return false
}

// CallbackData joins an action token and its payload into button data.
func CallbackData(token, payload string) string {
	if payload == "" {
		return token
	}
	return token + callbackSep + payload
}

// SplitCallback is the inverse of CallbackData.
func SplitCallback(data string) (token, payload string) {
	token, payload, _ = strings.Cut(data, callbackSep)
	return token, payload
}
