// Package state stores per-conversation wizard sessions. It is transport
// agnostic: the key is a (user, chat) pair and the form is an opaque JSON
// document owned by the active scene.
package state
