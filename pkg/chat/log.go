package chat

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cexll/chatkit-go/pkg/bus"
	"github.com/cexll/chatkit-go/pkg/store"
)

// Log is the ordered, persistent collection of messages. It is the single
// source of truth for display order and exclusively owns its entries: every
// accessor hands out copies.
//
// Mutations are atomic with respect to each other. Persistence is
// fire-and-forget: a failed save publishes EventSaveError but never rolls the
// in-memory state back or surfaces an error to the mutating caller.
type Log struct {
	mu       sync.RWMutex
	messages []Message

	store  store.Store
	bus    *bus.Bus
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

// Option customizes a Log.
type Option func(*Log)

// WithLogger routes persistence diagnostics to the given logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithIDFunc overrides message id generation.
func WithIDFunc(newID func() string) Option {
	return func(l *Log) { l.newID = newID }
}

// NewLog builds a log on top of the given store and bus and loads any
// previously persisted history. A missing stored value starts the log empty;
// a malformed one also starts it empty and publishes EventLoadError with the
// cause. Loading never fails hard.
func NewLog(st store.Store, b *bus.Bus, opts ...Option) *Log {
	l := &Log{
		store:  st,
		bus:    b,
		logger: zerolog.Nop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.load()
	return l
}

func (l *Log) load() {
	data, err := l.store.Load()
	if err != nil {
		l.logger.Error().Err(err).Msg("chat: load history")
		l.bus.Publish(EventLoadError, err.Error())
		return
	}
	if len(data) == 0 {
		return
	}
	msgs, err := decodeHistory(data)
	if err != nil {
		l.logger.Error().Err(err).Msg("chat: decode history")
		l.bus.Publish(EventLoadError, err.Error())
		return
	}
	l.mu.Lock()
	l.messages = msgs
	l.mu.Unlock()
	l.bus.Publish(EventDataLoaded, cloneMessages(msgs))
}

// decodeHistory is strict: any entry failing the validity check poisons the
// whole stored value.
func decodeHistory(data []byte) ([]Message, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("chat: stored history is not a message array: %w", err)
	}
	msgs := make([]Message, 0, len(entries))
	for i, raw := range entries {
		msg, ok := decodeEntry(raw)
		if !ok {
			return nil, fmt.Errorf("chat: stored history entry %d is invalid", i)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Append constructs a message with a fresh id and current timestamp, adds it
// to the tail, persists, and publishes EventMessageAdded. The log does not
// enforce non-empty text; rejecting empty input is the caller's concern.
func (l *Log) Append(text string, isUser bool) Message {
	l.mu.Lock()
	msg := Message{
		ID:        l.newID(),
		Text:      text,
		IsUser:    isUser,
		Timestamp: l.now().UTC(),
	}
	l.messages = append(l.messages, msg)
	snapshot := cloneMessages(l.messages)
	l.mu.Unlock()

	l.persist(snapshot)
	l.bus.Publish(EventMessageAdded, cloneMessage(msg))
	return msg
}

// Get looks a message up by id. Absence is a normal outcome.
func (l *Log) Get(id string) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, msg := range l.messages {
		if msg.ID == id {
			return cloneMessage(msg), true
		}
	}
	return Message{}, false
}

// Update replaces the text of a user message, marks it edited, persists, and
// publishes EventMessageUpdated. Bot messages are immutable.
func (l *Log) Update(id, newText string) (Message, error) {
	l.mu.Lock()
	idx := l.indexLocked(id)
	if idx < 0 {
		l.mu.Unlock()
		return Message{}, ErrNotFound
	}
	if !l.messages[idx].IsUser {
		l.mu.Unlock()
		return Message{}, ErrImmutable
	}
	editedAt := l.now().UTC()
	l.messages[idx].Text = newText
	l.messages[idx].Edited = true
	l.messages[idx].EditedAt = &editedAt
	msg := cloneMessage(l.messages[idx])
	snapshot := cloneMessages(l.messages)
	l.mu.Unlock()

	l.persist(snapshot)
	l.bus.Publish(EventMessageUpdated, cloneMessage(msg))
	return msg, nil
}

// Delete removes and returns the message with the given id, persists, and
// publishes EventMessageDeleted.
func (l *Log) Delete(id string) (Message, error) {
	l.mu.Lock()
	idx := l.indexLocked(id)
	if idx < 0 {
		l.mu.Unlock()
		return Message{}, ErrNotFound
	}
	msg := l.messages[idx]
	l.messages = append(l.messages[:idx], l.messages[idx+1:]...)
	snapshot := cloneMessages(l.messages)
	l.mu.Unlock()

	l.persist(snapshot)
	l.bus.Publish(EventMessageDeleted, cloneMessage(msg))
	return cloneMessage(msg), nil
}

// Clear unconditionally empties the log, persists, and publishes
// EventAllCleared.
func (l *Log) Clear() {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()

	l.persist(nil)
	l.bus.Publish(EventAllCleared, nil)
}

// Count returns the number of messages.
func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// All returns the messages in insertion order. The returned slice is a deep
// copy; mutating it does not affect the log.
func (l *Log) All() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneMessages(l.messages)
}

func (l *Log) indexLocked(id string) int {
	for i, msg := range l.messages {
		if msg.ID == id {
			return i
		}
	}
	return -1
}

// persist writes the snapshot through the store. Failures publish
// EventSaveError; the in-memory log stays authoritative either way.
func (l *Log) persist(snapshot []Message) {
	if snapshot == nil {
		snapshot = []Message{}
	}
	data, err := json.Marshal(snapshot)
	if err == nil {
		err = l.store.Save(data)
	}
	if err != nil {
		l.logger.Error().Err(err).Msg("chat: save history")
		l.bus.Publish(EventSaveError, err.Error())
		return
	}
	l.bus.Publish(EventDataSaved, l.now().UTC().Format(time.RFC3339))
}

// replace swaps the whole transcript in one step. Used by the import codec.
func (l *Log) replace(msgs []Message) {
	l.mu.Lock()
	l.messages = cloneMessages(msgs)
	snapshot := cloneMessages(l.messages)
	l.mu.Unlock()
	l.persist(snapshot)
}
