package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion tags the export payload format.
const SnapshotVersion = "1.0"

// Snapshot is the versioned, self-describing export/import unit. Message ids
// and timestamps inside a snapshot are data: they are carried verbatim, never
// regenerated.
type Snapshot struct {
	Version      string    `json:"version"`
	ExportDate   time.Time `json:"exportDate"`
	MessageCount int       `json:"messageCount"`
	Messages     []Message `json:"messages"`
}

// Export captures the current log as a snapshot.
func (l *Log) Export() Snapshot {
	msgs := l.All()
	return Snapshot{
		Version:      SnapshotVersion,
		ExportDate:   l.now().UTC(),
		MessageCount: len(msgs),
		Messages:     msgs,
	}
}

// ExportJSON renders the snapshot as indented UTF-8 JSON together with a
// filename embedding the export date, e.g. "chat-export-2026-08-31.json".
func (l *Log) ExportJSON() ([]byte, string, error) {
	snap := l.Export()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("chat: encode snapshot: %w", err)
	}
	name := fmt.Sprintf("chat-export-%s.json", snap.ExportDate.Format("2006-01-02"))
	return data, name, nil
}

// Import validates a raw snapshot and adopts it wholesale, replacing the live
// log. Entries failing the per-message validity check are silently dropped;
// only the final count is reported. It returns the number of imported
// messages.
//
// ErrInvalidFormat: the payload has no messages array. ErrEmptyImport: every
// entry was invalid; the prior log is left untouched. Failures additionally
// publish EventImportError.
func (l *Log) Import(raw []byte) (int, error) {
	msgs, err := decodeSnapshot(raw)
	if err != nil {
		l.logger.Warn().Err(err).Msg("chat: import rejected")
		l.bus.Publish(EventImportError, err.Error())
		return 0, err
	}

	l.replace(msgs)
	l.bus.Publish(EventDataImported, cloneMessages(msgs))
	return len(msgs), nil
}

func decodeSnapshot(raw []byte) ([]Message, error) {
	var envelope struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(envelope.Messages) == 0 || string(envelope.Messages) == "null" {
		return nil, ErrInvalidFormat
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(envelope.Messages, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	msgs := make([]Message, 0, len(entries))
	for _, entry := range entries {
		if msg, ok := decodeEntry(entry); ok {
			msgs = append(msgs, msg)
		}
	}
	if len(msgs) == 0 {
		return nil, ErrEmptyImport
	}
	return msgs, nil
}
