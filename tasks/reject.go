package tasks

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/enactio/enact/backend"
	"github.com/enactio/enact/core"
	"github.com/enactio/enact/fault"
	"github.com/enactio/enact/graph"
	"github.com/enactio/enact/history"
	"github.com/enactio/enact/internal/log"
	"github.com/enactio/enact/internal/metrickeys"
	"github.com/enactio/enact/metrics"
)

// RejectTaskRequest describes one reject: walk execution backward from the
// given activity to its predecessor(s).
type RejectTaskRequest struct {
	ProcessInstanceID string

	// ActivityID is the activity whose historic occurrence is rejected.
	ActivityID string

	RejectUserID   string
	RejectUserName string

	// Data is recorded on the audit entry.
	Data map[string]any
}

func (r *RejectTaskRequest) validate() error {
	if r.ProcessInstanceID == "" {
		return fault.Business("processInstanceId can not be empty")
	}
	if r.ActivityID == "" {
		return fault.Business("activityId can not be empty")
	}
	if r.RejectUserID == "" {
		return fault.Business("rejectUserId can not be empty")
	}

	return nil
}

// Reject moves execution backward from the given activity to its
// predecessors. The engine only walks forward, so the activity's outgoing
// transitions are temporarily replaced by edges pointing at its predecessors,
// a normal forward completion is driven across them, and the original edges
// are put back before the operation returns, on every path. The synthetic
// backward hop leaves no forward trace: its historic task and activity rows
// are deleted, as is the historic task that was rejected. The whole operation
// is one atomic unit.
func (s *Service) Reject(ctx context.Context, request RejectTaskRequest) error {
	if err := request.validate(); err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, "Reject", trace.WithAttributes(
		attribute.String(log.InstanceIDKey, request.ProcessInstanceID),
		attribute.String(log.ActivityIDKey, request.ActivityID),
		attribute.String(log.UserIDKey, request.RejectUserID),
	))
	defer span.End()

	err := s.engine.WithinTransaction(ctx, request.ProcessInstanceID, func(ctx context.Context) error {
		return s.reject(ctx, request)
	})
	if err != nil {
		return err
	}

	s.options.Logger.Debug("Task rejected",
		log.InstanceIDKey, request.ProcessInstanceID,
		log.ActivityIDKey, request.ActivityID,
		log.UserIDKey, request.RejectUserID,
	)
	s.options.Metrics.Counter(metrickeys.TaskRejected, metrics.Tags{}, 1)

	return nil
}

func (s *Service) reject(ctx context.Context, request RejectTaskRequest) error {
	historicTasks, err := s.engine.HistoricTasks(ctx, backend.HistoricTaskFilter{
		ProcessInstanceID: request.ProcessInstanceID,
		TaskDefinitionKey: request.ActivityID,
	})
	if err != nil {
		return fault.FromEngine("querying historic tasks", err)
	}
	if len(historicTasks) == 0 {
		return fault.NotFound("activity has no historic occurrence")
	}
	historicTask := latestOccurrence(historicTasks)

	instance, err := s.engine.ProcessInstance(ctx, request.ProcessInstanceID)
	if err != nil {
		if fault.IsNotFound(err) {
			return fault.NotFound("process already ended")
		}
		return fault.FromEngine("querying process instance", err)
	}

	concurrent, err := s.engine.IsConcurrentBranch(ctx, historicTask.ExecutionID)
	if err != nil {
		return fault.FromEngine("checking execution branch", err)
	}
	if concurrent {
		return fault.Business("cannot reject a parallel branch")
	}

	jobs, err := s.engine.PendingJobCount(ctx, historicTask.ExecutionID)
	if err != nil {
		return fault.FromEngine("counting pending jobs", err)
	}
	if jobs > 0 {
		return fault.Business("activity has pending timers, cannot reject")
	}

	definition, err := s.graph.Definition(ctx, historicTask.ProcessDefinitionID)
	if err != nil {
		return err
	}

	activity := definition.Activity(request.ActivityID)
	if activity == nil {
		return fault.NotFound(fmt.Sprintf("activity %q does not exist in definition %q", request.ActivityID, definition.ID))
	}

	// The rewire mutates the deployed definition shared by every running
	// instance; hold the definition lock for the whole rewire window
	unlock, err := s.locker.Lock(ctx, definition.ID)
	if err != nil {
		return fmt.Errorf("locking definition: %w", err)
	}
	defer unlock()

	if err := s.driveBackward(ctx, instance, activity); err != nil {
		return err
	}

	// Candidates for whatever is live now, resolved for the rejecting user
	liveTasks, err := s.SelectNowTask(ctx, instance.ID)
	if err != nil {
		return err
	}

	var last *core.Task
	for _, task := range liveTasks {
		if err := s.SetCandidate(ctx, request.RejectUserID, task); err != nil {
			return err
		}
		last = task
	}

	if err := s.engine.DeleteHistoricTask(ctx, historicTask.ID); err != nil {
		return fault.FromEngine("deleting rejected historic task", err)
	}

	entry := &history.Entry{
		BusinessKey:         instance.BusinessKey,
		Type:                history.EntryTypeReject,
		TypeText:            history.TypeTextReject,
		CreatorID:           request.RejectUserID,
		CreatorName:         request.RejectUserName,
		ProcessDefinitionID: instance.ProcessDefinitionID,
		ProcessInstanceID:   instance.ID,
		Data:                request.Data,
		CreatedAt:           s.clock.Now(),
	}
	if last != nil {
		entry.TaskID = last.ID
		entry.TaskDefinitionKey = last.TaskDefinitionKey
		entry.TaskName = last.Name
	}

	if err := s.recorder.Record(ctx, entry); err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}

	return nil
}

// latestOccurrence picks the most recent occurrence of an activity. A still
// unfinished occurrence wins over any finished one; among equals the later
// start wins. Historic rows exist from task creation on, so the occurrence
// being rejected is usually the one still missing its end time.
func latestOccurrence(historicTasks []*core.HistoricTaskInstance) *core.HistoricTaskInstance {
	best := historicTasks[0]
	for _, ht := range historicTasks[1:] {
		if ht.EndedAt.IsZero() != best.EndedAt.IsZero() {
			if ht.EndedAt.IsZero() {
				best = ht
			}
			continue
		}
		if ht.StartedAt.After(best.StartedAt) {
			best = ht
		}
	}
	return best
}

// driveBackward temporarily points the activity's outgoing transitions at its
// predecessors and completes every live task sitting at the activity, walking
// execution backward. The temporary edges are removed and the original
// outgoing list restored before returning, whether the drive succeeded or not.
func (s *Service) driveBackward(ctx context.Context, instance *core.ProcessInstance, activity *core.Activity) error {
	handle := graph.RewireToPredecessors(activity)
	defer handle.Restore()

	liveTasks, err := s.engine.LiveTasks(ctx, backend.TaskFilter{
		ProcessInstanceID: instance.ID,
		TaskDefinitionKey: activity.ID,
	})
	if err != nil {
		return fault.FromEngine("querying live tasks at activity", err)
	}

	for _, task := range liveTasks {
		if _, err := s.engine.Advance(ctx, task.ID, instance.Variables, nil); err != nil {
			return fault.FromEngine("driving execution backward", err)
		}

		// The synthetic hop must not read as a forward step
		if err := s.engine.DeleteHistoricTask(ctx, task.ID); err != nil {
			return fault.FromEngine("deleting synthetic historic task", err)
		}
		if err := s.engine.DeleteHistoricActivity(ctx, instance.ID, task.TaskDefinitionKey); err != nil {
			return fault.FromEngine("deleting synthetic historic activity", err)
		}
	}

	return nil
}
