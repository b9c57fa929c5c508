package core

import "time"

// HistoricTaskInstance is the immutable record of a task that left the live
// state. It is keyed by the original task id and deletable only through the
// reject correction pass.
type HistoricTaskInstance struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`

	ProcessDefinitionID string `json:"process_definition_id,omitempty"`
	ProcessInstanceID   string `json:"process_instance_id,omitempty"`
	ExecutionID         string `json:"execution_id,omitempty"`
	TaskDefinitionKey   string `json:"task_definition_key,omitempty"`

	Assignee string `json:"assignee,omitempty"`

	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}
