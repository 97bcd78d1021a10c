package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type InputState string

const (
	InputStateRunning InputState = "RUNNING"
	InputStateStopped InputState = "STOPPED"
	InputStatePaused  InputState = "PAUSED"
	// InputStateFailed is reported, never stored: desired RUNNING but not running.
	InputStateFailed InputState = "FAILED"
)

// Input is a persisted ingest endpoint definition. Kind decides which audit
// stream (and therefore which index) its payloads are written to.
type Input struct {
	ID            uuid.UUID       `db:"id"`
	Type          string          `db:"type"`
	Title         string          `db:"title"`
	Kind          RecordKind      `db:"kind"`
	Configuration json.RawMessage `db:"configuration"`
	CreatedAt     time.Time       `db:"created_at"`
	DesiredState  InputState      `db:"desired_state"`
}
