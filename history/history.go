// Package history defines the audit log written for every completed lifecycle
// operation.
package history

import (
	"context"
	"time"
)

const (
	EntryTypeComplete = "complete"
	EntryTypeReject   = "reject"

	TypeTextComplete = "task completed"
	TypeTextReject   = "task rejected"
)

// Entry is one audit record. Entries are never mutated after insertion and
// are totally ordered by insertion per process instance.
type Entry struct {
	ID string `json:"id,omitempty"`

	BusinessKey string `json:"business_key,omitempty"`

	// Type is the lifecycle operation, see EntryType constants. TypeText is
	// its display text.
	Type     string `json:"type,omitempty"`
	TypeText string `json:"type_text,omitempty"`

	CreatorID   string `json:"creator_id,omitempty"`
	CreatorName string `json:"creator_name,omitempty"`

	ProcessDefinitionID string `json:"process_definition_id,omitempty"`
	ProcessInstanceID   string `json:"process_instance_id,omitempty"`

	TaskID            string `json:"task_id,omitempty"`
	TaskDefinitionKey string `json:"task_definition_key,omitempty"`
	TaskName          string `json:"task_name,omitempty"`

	// Data is caller-supplied context for the operation.
	Data map[string]any `json:"data,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Recorder is the append-only audit store. Durability follows the surrounding
// atomic unit: Record is the last step of a lifecycle operation, so an
// operation that fails never appends.
type Recorder interface {
	// Record appends one entry. The recorder assigns the id if empty.
	Record(ctx context.Context, entry *Entry) error

	// ProcessHistory returns the entries of one instance in insertion order.
	ProcessHistory(ctx context.Context, processInstanceID string) ([]*Entry, error)

	// Close closes any underlying resources.
	Close() error
}
