// Package state keeps per-chat conversation sessions in memory.
//
// A Session carries the current state, scratch values gathered across
// multi-step flows, the admin role flag and three trails of bot message ids
// that are still visible in the chat. Session fields are not synchronized on
// their own: callers hold Lock for the whole handling of one event, which
// also serializes deferred cleanup against live handlers.
package state
