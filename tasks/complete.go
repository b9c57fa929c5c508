package tasks

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/enactio/enact/backend"
	"github.com/enactio/enact/fault"
	"github.com/enactio/enact/history"
	"github.com/enactio/enact/internal/log"
	"github.com/enactio/enact/internal/metrickeys"
	"github.com/enactio/enact/metrics"
)

// CompleteTaskRequest describes one task completion.
type CompleteTaskRequest struct {
	TaskID string

	CompleteUserID   string
	CompleteUserName string

	// Variables are merged into the process instance's variable mapping.
	Variables map[string]any

	// FormData is handed to the form collaborator and visible to the
	// advancement as transient variables, but not persisted as instance
	// variables.
	FormData map[string]any

	// NextActivityID, when set, force-redirects execution to that activity
	// after completion instead of following the graph's edges.
	NextActivityID string

	// NextClaimUserID, when set, becomes the sole candidate of every
	// successor task instead of policy-resolved candidates.
	NextClaimUserID string
}

func (r *CompleteTaskRequest) validate() error {
	if r.TaskID == "" {
		return fault.Business("taskId can not be empty")
	}
	if r.CompleteUserID == "" {
		return fault.Business("completeUserId can not be empty")
	}

	return nil
}

// Complete finishes a task on behalf of its assignee and advances execution.
// The whole operation is one atomic unit: any failure rolls back variable
// writes, the advancement, candidate assignment and the audit entry.
func (s *Service) Complete(ctx context.Context, request CompleteTaskRequest) error {
	if err := request.validate(); err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, "Complete", trace.WithAttributes(
		attribute.String(log.TaskIDKey, request.TaskID),
		attribute.String(log.UserIDKey, request.CompleteUserID),
	))
	defer span.End()

	// Locate the task once to learn its instance, then run everything
	// inside that instance's atomic unit, re-reading state there
	task, err := s.SelectTaskByTaskID(ctx, request.TaskID)
	if err != nil {
		return err
	}

	instanceID := task.ProcessInstanceID

	err = s.engine.WithinTransaction(ctx, instanceID, func(ctx context.Context) error {
		return s.complete(ctx, request)
	})
	if err != nil {
		return err
	}

	s.options.Logger.Debug("Task completed",
		log.TaskIDKey, request.TaskID,
		log.InstanceIDKey, instanceID,
		log.UserIDKey, request.CompleteUserID,
	)
	s.options.Metrics.Counter(metrickeys.TaskCompleted, metrics.Tags{}, 1)

	return nil
}

func (s *Service) complete(ctx context.Context, request CompleteTaskRequest) error {
	tasks, err := s.engine.LiveTasks(ctx, backend.TaskFilter{
		TaskID:           request.TaskID,
		ActiveOnly:       true,
		IncludeVariables: true,
	})
	if err != nil {
		return fault.FromEngine("querying task", err)
	}
	if len(tasks) == 0 {
		return fault.NotFound(fmt.Sprintf("task %q does not exist", request.TaskID))
	}
	task := tasks[0]

	if task.Assignee == "" {
		return fault.Business("task has not been claimed")
	}
	if task.Assignee != request.CompleteUserID {
		return fault.Forbidden("only the assignee may complete their own task")
	}

	// Tag the variable merge with the task that produced it
	variables := map[string]any{"oldTaskId": task.ID}
	transient := map[string]any{}
	for k, v := range request.Variables {
		variables[k] = v
		transient[k] = v
	}

	instance, err := s.engine.ProcessInstance(ctx, task.ProcessInstanceID)
	if err != nil {
		return fault.FromEngine("querying process instance", err)
	}

	if err := s.forms.SaveTaskForm(ctx, instance, task, SaveFormRequest{
		UserID:   request.CompleteUserID,
		UserName: request.CompleteUserName,
		FormData: request.FormData,
	}); err != nil {
		return fault.FromEngine("saving task form", err)
	}

	for k, v := range request.FormData {
		transient[k] = v
	}

	if _, err := s.engine.Advance(ctx, task.ID, variables, transient); err != nil {
		return fault.FromEngine("advancing execution", err)
	}

	if request.NextActivityID != "" {
		if err := s.engine.ForceJump(ctx, task.ExecutionID, request.NextActivityID); err != nil {
			return fault.FromEngine("jumping execution", err)
		}
	}

	successors, err := s.SelectNowTask(ctx, task.ProcessInstanceID)
	if err != nil {
		return err
	}

	for _, next := range successors {
		if request.NextClaimUserID != "" {
			if err := s.engine.AddCandidateUser(ctx, next.ID, request.NextClaimUserID); err != nil {
				return fault.FromEngine("adding candidate user", err)
			}
		} else {
			if err := s.SetCandidate(ctx, request.CompleteUserID, next); err != nil {
				return err
			}
		}
	}

	entry := &history.Entry{
		BusinessKey:         instance.BusinessKey,
		Type:                history.EntryTypeComplete,
		TypeText:            history.TypeTextComplete,
		CreatorID:           request.CompleteUserID,
		CreatorName:         request.CompleteUserName,
		ProcessDefinitionID: instance.ProcessDefinitionID,
		ProcessInstanceID:   instance.ID,
		TaskID:              task.ID,
		TaskDefinitionKey:   task.TaskDefinitionKey,
		TaskName:            task.Name,
		CreatedAt:           s.clock.Now(),
	}

	if err := s.recorder.Record(ctx, entry); err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}

	return nil
}
