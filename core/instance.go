package core

import "time"

// ProcessInstance is one running enactment of a process definition.
type ProcessInstance struct {
	ID string `json:"id,omitempty"`

	// BusinessKey is an opaque correlation id supplied at start.
	BusinessKey string `json:"business_key,omitempty"`

	ProcessDefinitionID string `json:"process_definition_id,omitempty"`

	// Variables is the instance's variable mapping at the time of the query.
	Variables map[string]any `json:"variables,omitempty"`

	StartedAt time.Time `json:"started_at,omitempty"`
}

// HistoricProcessInstance is the immutable record of an instance that reached
// a terminal activity.
type HistoricProcessInstance struct {
	ID                  string    `json:"id,omitempty"`
	BusinessKey         string    `json:"business_key,omitempty"`
	ProcessDefinitionID string    `json:"process_definition_id,omitempty"`
	EndActivityID       string    `json:"end_activity_id,omitempty"`
	StartedAt           time.Time `json:"started_at,omitempty"`
	EndedAt             time.Time `json:"ended_at,omitempty"`
}
