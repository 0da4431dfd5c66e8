// Package chat maintains the ordered conversation log: message CRUD with
// validation, durable persistence through a store, change notification
// through a bus, and the versioned snapshot codec used for import/export.
package chat

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no message exists under the requested id.
	ErrNotFound = errors.New("chat: message not found")
	// ErrImmutable indicates an attempt to edit a service-authored message.
	ErrImmutable = errors.New("chat: cannot edit bot messages")
	// ErrInvalidFormat indicates an import payload without a messages array.
	ErrInvalidFormat = errors.New("chat: invalid import format: messages array not found")
	// ErrEmptyImport indicates an import whose entries were all invalid.
	ErrEmptyImport = errors.New("chat: no valid messages found in import")
)

// Message is one conversational turn. IsUser is fixed at creation: true for
// human-authored turns, false for service-authored ones. Only user messages
// may be edited.
type Message struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	IsUser    bool       `json:"isUser"`
	Timestamp time.Time  `json:"timestamp"`
	Edited    bool       `json:"edited"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
}

func cloneMessage(msg Message) Message {
	clone := msg
	if msg.EditedAt != nil {
		at := *msg.EditedAt
		clone.EditedAt = &at
	}
	return clone
}

func cloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, msg := range msgs {
		out[i] = cloneMessage(msg)
	}
	return out
}

// rawMessage is the tolerant decoding shape shared by the startup loader and
// the import codec. Pointer fields distinguish absent from zero, and string
// timestamps keep a malformed instant from invalidating an otherwise valid
// entry. Unknown extra fields are ignored.
type rawMessage struct {
	ID        *string `json:"id"`
	Text      *string `json:"text"`
	IsUser    *bool   `json:"isUser"`
	Timestamp *string `json:"timestamp"`
	Edited    *bool   `json:"edited"`
	EditedAt  *string `json:"editedAt"`
}

// decodeEntry applies the per-message validity check: a non-empty string id,
// a string text and a boolean isUser must all be present.
func decodeEntry(raw json.RawMessage) (Message, bool) {
	var entry rawMessage
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Message{}, false
	}
	if entry.ID == nil || *entry.ID == "" || entry.Text == nil || entry.IsUser == nil {
		return Message{}, false
	}
	msg := Message{
		ID:     *entry.ID,
		Text:   *entry.Text,
		IsUser: *entry.IsUser,
	}
	if entry.Timestamp != nil {
		if ts, err := time.Parse(time.RFC3339Nano, *entry.Timestamp); err == nil {
			msg.Timestamp = ts
		}
	}
	if entry.Edited != nil {
		msg.Edited = *entry.Edited
	}
	if entry.EditedAt != nil {
		if at, err := time.Parse(time.RFC3339Nano, *entry.EditedAt); err == nil {
			msg.EditedAt = &at
		}
	}
	return msg, true
}
