// Package store abstracts the durable key-value medium behind the chat log.
//
// A Store holds exactly one serialized value. The log is the single writer;
// concurrent processes sharing the same persisted key are out of scope.
package store

import "errors"

// ErrStoreClosed indicates the store can no longer serve reads or writes.
var ErrStoreClosed = errors.New("store: closed")

// Store persists a single serialized payload.
type Store interface {
	// Save durably replaces the stored payload.
	Save(data []byte) error

	// Load returns the stored payload, or (nil, nil) when nothing has been
	// saved yet. Absence is a normal outcome, not an error.
	Load() ([]byte, error)
}
