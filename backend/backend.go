package backend

import (
	"context"

	"github.com/enactio/enact/core"
)

const TracerName = "enact"

// TaskFilter narrows a live-task query. Zero fields are ignored.
type TaskFilter struct {
	TaskID            string
	ProcessInstanceID string
	TaskDefinitionKey string

	// CandidateUser restricts to tasks the user is a candidate for.
	CandidateUser string

	// ActiveOnly excludes tasks of suspended or ended instances.
	ActiveOnly bool

	// IncludeVariables populates Task.Variables with the instance variables.
	IncludeVariables bool
}

// HistoricTaskFilter narrows a historic-task query. Zero fields are ignored.
type HistoricTaskFilter struct {
	TaskID            string
	ProcessInstanceID string
	TaskDefinitionKey string
}

// Engine is the process execution engine of record this module drives. It owns
// definitions, instances, live and historic tasks; this module holds no state
// of its own besides the audit log.
//
// All mutating calls made inside WithinTransaction are part of that
// transaction; implementations roll every one of them back when the
// transaction function returns an error.
type Engine interface {
	// DeployedDefinition returns the live graph object of a deployed
	// definition. Callers share this object across instances; it must only
	// be mutated under the definition lock held by a reject operation.
	DeployedDefinition(ctx context.Context, definitionID string) (*core.ProcessDefinition, error)

	// LatestDefinitionID resolves a definition key to the id of its most
	// recently deployed version.
	LatestDefinitionID(ctx context.Context, definitionKey string) (string, error)

	// ProcessInstance returns a running instance, or a not-found error when
	// the instance does not exist or already ended.
	ProcessInstance(ctx context.Context, instanceID string) (*core.ProcessInstance, error)

	// HistoricProcessInstance returns the record of an ended instance.
	HistoricProcessInstance(ctx context.Context, instanceID string) (*core.HistoricProcessInstance, error)

	// LiveTasks returns the live tasks matching the filter.
	LiveTasks(ctx context.Context, filter TaskFilter) ([]*core.Task, error)

	// HistoricTasks returns the historic task records matching the filter.
	HistoricTasks(ctx context.Context, filter HistoricTaskFilter) ([]*core.HistoricTaskInstance, error)

	// DeleteHistoricTask removes one historic task record.
	DeleteHistoricTask(ctx context.Context, taskID string) error

	// DeleteHistoricActivity removes the historic activity records written
	// for the given activity of the given instance.
	DeleteHistoricActivity(ctx context.Context, instanceID, activityKey string) error

	// Advance completes the given task and moves its execution forward along
	// the activity's current outgoing transitions, returning the tasks the
	// move created. variables are merged into the instance's mapping;
	// transientVariables are visible to the move but not persisted.
	//
	// "Current" is literal: while a reject holds the definition lock and has
	// the activity temporarily rewired, an Advance through that activity on
	// any instance of the definition follows the temporary edges. Callers
	// that must not observe the rewired graph take the definition lock too.
	Advance(ctx context.Context, taskID string, variables, transientVariables map[string]any) ([]*core.Task, error)

	// ForceJump relocates an execution to the named activity, ignoring
	// transitions. An administrative override, not a normal advancement.
	ForceJump(ctx context.Context, executionID, activityID string) error

	// Claim atomically sets the task's assignee if and only if it has none.
	// Exactly one of any number of concurrent claims succeeds; losers get a
	// conflict error.
	Claim(ctx context.Context, taskID, userID string) error

	// SetAssignee overwrites the task's assignee unconditionally.
	SetAssignee(ctx context.Context, taskID, userID string) error

	// AddCandidateUser adds userID to the task's candidate set. Adding a
	// user that is already a candidate is a no-op.
	AddCandidateUser(ctx context.Context, taskID, userID string) error

	// Variables returns the root execution's variable mapping.
	Variables(ctx context.Context, instanceID string) (map[string]any, error)

	// TaskVariables returns the variables visible to a task.
	TaskVariables(ctx context.Context, taskID string) (map[string]any, error)

	// TaskVariablesLocal returns only the task-local variables.
	TaskVariablesLocal(ctx context.Context, taskID string) (map[string]any, error)

	SetVariables(ctx context.Context, taskID string, variables map[string]any) error
	SetVariablesLocal(ctx context.Context, taskID string, variables map[string]any) error
	RemoveVariables(ctx context.Context, taskID string, names []string) error

	// IsConcurrentBranch reports whether the execution is a concurrent
	// branch of a parallel split.
	IsConcurrentBranch(ctx context.Context, executionID string) (bool, error)

	// PendingJobCount returns the number of scheduled jobs (timers) attached
	// to the execution.
	PendingJobCount(ctx context.Context, executionID string) (int, error)

	// WithinTransaction runs fn as one atomic unit against the engine state
	// of the given instance. Calls against the same instance serialize; an
	// error from fn rolls back every engine mutation fn performed and is
	// returned verbatim.
	WithinTransaction(ctx context.Context, instanceID string, fn func(ctx context.Context) error) error
}
