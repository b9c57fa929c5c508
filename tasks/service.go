// Package tasks is the task-enactment surface of the module: it tracks where
// execution of a process instance currently sits, advances it, reverses it,
// force-redirects it, and resolves who may act next, while recording an audit
// entry for every transition.
package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/enactio/enact/backend"
	"github.com/enactio/enact/candidate"
	"github.com/enactio/enact/core"
	"github.com/enactio/enact/fault"
	"github.com/enactio/enact/graph"
	"github.com/enactio/enact/history"
	"github.com/enactio/enact/internal/lock"
	"github.com/enactio/enact/internal/log"
	"github.com/enactio/enact/internal/metrickeys"
	"github.com/enactio/enact/metrics"
)

// Locker hands out exclusive per-definition locks. A reject holds its
// definition's lock while the graph is temporarily rewired.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type Service struct {
	engine   backend.Engine
	recorder history.Recorder
	resolver *candidate.Resolver
	graph    *graph.Accessor
	forms    FormService
	locker   Locker
	clock    clock.Clock

	options backend.Options
	tracer  trace.Tracer
}

type Option func(*Service)

// WithFormService sets the collaborator that persists task form data.
func WithFormService(forms FormService) Option {
	return func(s *Service) {
		s.forms = forms
	}
}

// WithLocker replaces the in-process definition locker, e.g. with a
// cross-process one when several engines share deployed definitions.
func WithLocker(locker Locker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.options.Logger = logger
	}
}

func WithMetrics(client metrics.Client) Option {
	return func(s *Service) {
		s.options.Metrics = client
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.options.TracerProvider = tp
	}
}

func New(engine backend.Engine, recorder history.Recorder, provider candidate.PolicyProvider, opts ...Option) *Service {
	s := &Service{
		engine:   engine,
		recorder: recorder,
		resolver: candidate.NewResolver(provider),
		graph:    graph.NewAccessor(engine),
		forms:    nopFormService{},
		locker:   lock.NewKeyedLocker(),
		clock:    clock.New(),
		options:  backend.DefaultOptions,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.tracer = s.options.TracerProvider.Tracer(backend.TracerName)

	return s
}

// SelectNowTask returns the live tasks of an instance.
func (s *Service) SelectNowTask(ctx context.Context, processInstanceID string) ([]*core.Task, error) {
	tasks, err := s.engine.LiveTasks(ctx, backend.TaskFilter{
		ProcessInstanceID: processInstanceID,
		ActiveOnly:        true,
	})
	if err != nil {
		return nil, fault.FromEngine("querying live tasks", err)
	}

	return tasks, nil
}

// SelectTaskByProcessID returns the live tasks of an instance.
func (s *Service) SelectTaskByProcessID(ctx context.Context, processInstanceID string) ([]*core.Task, error) {
	return s.SelectNowTask(ctx, processInstanceID)
}

// SelectTaskByTaskID returns one live task.
func (s *Service) SelectTaskByTaskID(ctx context.Context, taskID string) (*core.Task, error) {
	tasks, err := s.engine.LiveTasks(ctx, backend.TaskFilter{TaskID: taskID, ActiveOnly: true})
	if err != nil {
		return nil, fault.FromEngine("querying task", err)
	}

	if len(tasks) == 0 {
		return nil, fault.NotFound(fmt.Sprintf("task %q does not exist", taskID))
	}

	return tasks[0], nil
}

// Claim gives userID sole ownership of an unassigned task the user is a
// candidate for. Exactly one of any number of concurrent claims succeeds.
func (s *Service) Claim(ctx context.Context, taskID, userID string) error {
	ctx, span := s.tracer.Start(ctx, "Claim", trace.WithAttributes(
		attribute.String(log.TaskIDKey, taskID),
		attribute.String(log.UserIDKey, userID),
	))
	defer span.End()

	tasks, err := s.engine.LiveTasks(ctx, backend.TaskFilter{
		TaskID:        taskID,
		CandidateUser: userID,
		ActiveOnly:    true,
	})
	if err != nil {
		return fault.FromEngine("querying candidate task", err)
	}

	if len(tasks) == 0 {
		return fault.NotFound("task cannot be claimed by this user")
	}

	if tasks[0].Assignee != "" {
		return fault.Conflict("task is already claimed")
	}

	// The engine's claim is an atomic check-and-set; a lost race surfaces
	// as a conflict here even though the check above saw no assignee
	if err := s.engine.Claim(ctx, taskID, userID); err != nil {
		return fault.FromEngine("claiming task", err)
	}

	s.options.Logger.Debug("Task claimed",
		log.TaskIDKey, taskID,
		log.UserIDKey, userID,
	)
	s.options.Metrics.Counter(metrickeys.TaskClaimed, metrics.Tags{}, 1)

	return nil
}

// JumpTask relocates a task's execution to the named activity, ignoring
// transitions. An administrative override: the target only has to exist, and
// the resulting state may be unreachable by normal traversal.
func (s *Service) JumpTask(ctx context.Context, taskID, activityID string) (*core.Task, error) {
	ctx, span := s.tracer.Start(ctx, "JumpTask", trace.WithAttributes(
		attribute.String(log.TaskIDKey, taskID),
		attribute.String(log.ActivityIDKey, activityID),
	))
	defer span.End()

	task, err := s.SelectTaskByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.ForceJump(ctx, task.ExecutionID, activityID); err != nil {
		return nil, fault.FromEngine("jumping execution", err)
	}

	s.options.Logger.Debug("Task jumped",
		log.TaskIDKey, taskID,
		log.ActivityIDKey, activityID,
		log.ExecutionIDKey, task.ExecutionID,
	)
	s.options.Metrics.Counter(metrickeys.TaskJumped, metrics.Tags{}, 1)

	return task, nil
}

// EndProcess force-finishes an instance by jumping every live execution to
// the definition's end event. The whole operation is one atomic unit: a
// failed jump rolls back the branches already finished.
func (s *Service) EndProcess(ctx context.Context, processInstanceID string) error {
	ctx, span := s.tracer.Start(ctx, "EndProcess", trace.WithAttributes(
		attribute.String(log.InstanceIDKey, processInstanceID),
	))
	defer span.End()

	err := s.engine.WithinTransaction(ctx, processInstanceID, func(ctx context.Context) error {
		return s.endProcess(ctx, processInstanceID)
	})
	if err != nil {
		return err
	}

	s.options.Logger.Info("Process force-finished",
		log.InstanceIDKey, processInstanceID,
	)
	s.options.Metrics.Counter(metrickeys.ProcessEnded, metrics.Tags{}, 1)

	return nil
}

func (s *Service) endProcess(ctx context.Context, processInstanceID string) error {
	instance, err := s.engine.ProcessInstance(ctx, processInstanceID)
	if err != nil {
		return fault.FromEngine("querying process instance", err)
	}

	end, err := s.graph.EndEvent(ctx, instance.ProcessDefinitionID)
	if err != nil {
		return err
	}

	for {
		tasks, err := s.SelectNowTask(ctx, processInstanceID)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			break
		}

		if err := s.engine.ForceJump(ctx, tasks[0].ExecutionID, end.ID); err != nil {
			return fault.FromEngine("jumping execution to end event", err)
		}
	}

	return nil
}

// SetAssignee overwrites the task's assignee.
func (s *Service) SetAssignee(ctx context.Context, taskID, userID string) error {
	if err := s.engine.SetAssignee(ctx, taskID, userID); err != nil {
		return fault.FromEngine("setting assignee", err)
	}

	return nil
}

// RemoveHistoricTask deletes one historic task record.
func (s *Service) RemoveHistoricTask(ctx context.Context, taskID string) error {
	if err := s.engine.DeleteHistoricTask(ctx, taskID); err != nil {
		return fault.FromEngine("deleting historic task", err)
	}

	return nil
}

// SelectHistoricProcessInstance returns the record of an ended instance.
func (s *Service) SelectHistoricProcessInstance(ctx context.Context, processInstanceID string) (*core.HistoricProcessInstance, error) {
	hpi, err := s.engine.HistoricProcessInstance(ctx, processInstanceID)
	if err != nil {
		return nil, fault.FromEngine("querying historic process instance", err)
	}

	return hpi, nil
}

// UserTasksByProcessDefinitionKey maps activity id to display name for every
// user task of the latest deployed version of the definition key.
func (s *Service) UserTasksByProcessDefinitionKey(ctx context.Context, definitionKey string) (map[string]string, error) {
	definitionID, err := s.engine.LatestDefinitionID(ctx, definitionKey)
	if err != nil {
		return nil, fault.FromEngine("resolving latest definition", err)
	}

	return s.userTasks(ctx, definitionID)
}

// UserTasksByProcessInstanceID maps activity id to display name for every
// user task of the instance's definition.
func (s *Service) UserTasksByProcessInstanceID(ctx context.Context, processInstanceID string) (map[string]string, error) {
	instance, err := s.engine.ProcessInstance(ctx, processInstanceID)
	if err != nil {
		return nil, fault.FromEngine("querying process instance", err)
	}

	return s.userTasks(ctx, instance.ProcessDefinitionID)
}

func (s *Service) userTasks(ctx context.Context, definitionID string) (map[string]string, error) {
	activities, err := s.graph.UserTaskActivities(ctx, definitionID)
	if err != nil {
		return nil, err
	}

	m := make(map[string]string, len(activities))
	for _, activity := range activities {
		m[activity.ID] = activity.Name
	}

	return m, nil
}
