package core

import (
	"slices"
	"time"
)

// Task is a live unit of work sitting at a user-task activity of one process
// instance. Engine implementations return copies; mutations go through the
// engine so they take part in its locking and transactions.
type Task struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`

	ProcessDefinitionID string `json:"process_definition_id,omitempty"`
	ProcessInstanceID   string `json:"process_instance_id,omitempty"`

	// ExecutionID identifies the execution branch the task is bound to.
	ExecutionID string `json:"execution_id,omitempty"`

	// TaskDefinitionKey is the id of the activity this task was created for.
	TaskDefinitionKey string `json:"task_definition_key,omitempty"`

	// Assignee is the single owner of the task, empty until claimed.
	Assignee string `json:"assignee,omitempty"`

	// Candidates are the users eligible to claim the task.
	Candidates []string `json:"candidates,omitempty"`

	// Variables holds the instance variables when the query that produced
	// this task asked for them to be included.
	Variables map[string]any `json:"variables,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// HasCandidate reports whether userID is in the task's candidate set.
func (t *Task) HasCandidate(userID string) bool {
	return slices.Contains(t.Candidates, userID)
}
