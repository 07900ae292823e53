package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action names the kind of write that produced an EntryChangedMessage.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// EntryChangedMessage announces a write to a diary entry. It carries the entry
// date so consumers know which year grid to rebuild without a lookup; deleted
// entries can no longer be fetched.
type EntryChangedMessage struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	EntryDate string    `json:"entry_date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntryChangedMessage(id string, action Action, entryDate string) *EntryChangedMessage {
	return &EntryChangedMessage{
		ID:        id,
		Action:    action,
		EntryDate: entryDate,
		Timestamp: time.Now(),
	}
}

// Year returns the calendar year of the entry date, or 0 if it does not parse.
func (m *EntryChangedMessage) Year() int {
	t, err := time.Parse("2006-01-02", firstN(m.EntryDate, 10))
	if err != nil {
		return 0
	}
	return t.Year()
}

func (m *EntryChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryChangedMessageFromJSON(data []byte) (*EntryChangedMessage, error) {
	var msg EntryChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	if msg.Year() == 0 {
		return nil, fmt.Errorf("entry %s: unusable entry date %q", msg.ID, msg.EntryDate)
	}
	return &msg, nil
}

func firstN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
