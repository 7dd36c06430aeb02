package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"cajas/internal/core"
)

// SnapshotRefreshedMessage announces that a fresh dataset was loaded.
// Consumers only need to drop their cached copy; the dataset itself is not
// carried.
type SnapshotRefreshedMessage struct {
	SnapshotID int64     `json:"snapshot_id"`
	LoadedAt   time.Time `json:"loaded_at"`
	Movements  int       `json:"movements"`
	Summaries  int       `json:"summaries"`
	Malformed  int       `json:"malformed"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSnapshotRefreshedMessage describes ds.
func NewSnapshotRefreshedMessage(ds *core.Dataset) *SnapshotRefreshedMessage {
	return &SnapshotRefreshedMessage{
		SnapshotID: ds.SnapshotID,
		LoadedAt:   ds.LoadedAt,
		Movements:  len(ds.Movements),
		Summaries:  len(ds.Summaries),
		Malformed:  ds.Diagnostics.Malformed,
		Timestamp:  time.Now(),
	}
}

func (m *SnapshotRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotRefreshedMessageFromJSON decodes a message body. A body without a
// load time is rejected.
func SnapshotRefreshedMessageFromJSON(data []byte) (*SnapshotRefreshedMessage, error) {
	var msg SnapshotRefreshedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.LoadedAt.IsZero() {
		return nil, errors.New("message has no loaded_at")
	}
	return &msg, nil
}
