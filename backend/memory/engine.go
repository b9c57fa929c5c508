// Package memory provides an in-process execution engine of record. It is the
// reference Engine implementation, used by tests and samples the same way a
// real deployment would use an external engine.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/enactio/enact/backend"
	"github.com/enactio/enact/core"
	"github.com/enactio/enact/fault"
	"github.com/enactio/enact/internal/log"
)

type Engine struct {
	mu sync.Mutex

	clock   clock.Clock
	options backend.Options

	definitions map[string]*core.ProcessDefinition
	latestByKey map[string]string

	instances map[string]*instanceState

	// pendingJobs simulates scheduled jobs (timers) per execution.
	pendingJobs map[string]int

	txLocks map[string]*sync.Mutex
}

type instanceState struct {
	id           string
	businessKey  string
	definitionID string
	variables    map[string]any
	startedAt    time.Time

	ended         bool
	endActivityID string
	endedAt       time.Time

	executions map[string]*execution
	tasks      map[string]*taskState

	historicTasks      map[string]*core.HistoricTaskInstance
	historicActivities []*historicActivity
}

type execution struct {
	id         string
	parentID   string
	activityID string
	concurrent bool
	active     bool
}

type taskState struct {
	id          string
	name        string
	activityID  string
	executionID string
	assignee    string
	candidates  []string
	localVars   map[string]any
	createdAt   time.Time
}

type historicActivity struct {
	id         string
	activityID string
	enteredAt  time.Time
}

func NewEngine(opts ...backend.BackendOption) *Engine {
	return &Engine{
		clock:       clock.New(),
		options:     backend.ApplyOptions(opts...),
		definitions: map[string]*core.ProcessDefinition{},
		latestByKey: map[string]string{},
		instances:   map[string]*instanceState{},
		pendingJobs: map[string]int{},
		txLocks:     map[string]*sync.Mutex{},
	}
}

var _ backend.Engine = (*Engine)(nil)

// Deploy registers a definition. The most recently deployed version of a key
// becomes its latest.
func (e *Engine) Deploy(def *core.ProcessDefinition) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.definitions[def.ID] = def
	e.latestByKey[def.Key] = def.ID
}

// StartInstance starts a new enactment of the definition, advancing from the
// start event until execution comes to rest at user tasks or the end event.
func (e *Engine) StartInstance(ctx context.Context, definitionID, businessKey string, variables map[string]any) (*core.ProcessInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	def, ok := e.definitions[definitionID]
	if !ok {
		return nil, fault.NotFound(fmt.Sprintf("process definition %q is not deployed", definitionID))
	}

	var start *core.Activity
	for _, a := range def.Activities {
		if a.Type == core.ActivityStartEvent {
			start = a
			break
		}
	}
	if start == nil {
		return nil, fault.Business(fmt.Sprintf("definition %q has no start event", definitionID))
	}

	inst := &instanceState{
		id:            uuid.NewString(),
		businessKey:   businessKey,
		definitionID:  definitionID,
		variables:     map[string]any{},
		startedAt:     e.clock.Now(),
		executions:    map[string]*execution{},
		tasks:         map[string]*taskState{},
		historicTasks: map[string]*core.HistoricTaskInstance{},
	}
	for k, v := range variables {
		inst.variables[k] = v
	}
	e.instances[inst.id] = inst

	root := &execution{id: uuid.NewString(), activityID: start.ID, active: true}
	inst.executions[root.id] = root

	e.moveExecution(inst, def, root, start)

	e.options.Logger.Debug("Started process instance",
		log.InstanceIDKey, inst.id,
		log.DefinitionIDKey, definitionID,
	)

	return instanceToCore(inst), nil
}

// moveExecution enters activity with the given execution and keeps walking
// until every affected execution rests at a user task or has ended. Returns
// the tasks created along the way. Caller holds e.mu.
func (e *Engine) moveExecution(inst *instanceState, def *core.ProcessDefinition, exec *execution, activity *core.Activity) []*core.Task {
	exec.activityID = activity.ID

	inst.historicActivities = append(inst.historicActivities, &historicActivity{
		id:         uuid.NewString(),
		activityID: activity.ID,
		enteredAt:  e.clock.Now(),
	})

	switch activity.Type {
	case core.ActivityUserTask:
		task := &taskState{
			id:          uuid.NewString(),
			name:        activity.Name,
			activityID:  activity.ID,
			executionID: exec.id,
			createdAt:   e.clock.Now(),
		}
		inst.tasks[task.id] = task
		// The historic record exists from creation on, unfinished until the
		// task completes
		inst.historicTasks[task.id] = &core.HistoricTaskInstance{
			ID:                  task.id,
			Name:                task.name,
			ProcessDefinitionID: inst.definitionID,
			ProcessInstanceID:   inst.id,
			ExecutionID:         task.executionID,
			TaskDefinitionKey:   task.activityID,
			StartedAt:           task.createdAt,
		}
		return []*core.Task{e.taskToCore(inst, task, false)}

	case core.ActivityEndEvent:
		exec.active = false
		if !e.anyActiveWork(inst) {
			e.endInstance(inst, activity.ID)
		}
		return nil

	case core.ActivityParallelGateway:
		var created []*core.Task
		exec.active = false
		for _, t := range activity.Outgoing {
			child := &execution{
				id:         uuid.NewString(),
				parentID:   exec.id,
				activityID: activity.ID,
				concurrent: true,
				active:     true,
			}
			inst.executions[child.id] = child
			created = append(created, e.moveExecution(inst, def, child, t.Destination)...)
		}
		return created

	default:
		return e.followOutgoing(inst, def, exec, activity)
	}
}

// followOutgoing leaves activity along its current outgoing transitions. A
// single transition keeps the execution; multiple transitions fork concurrent
// child executions.
func (e *Engine) followOutgoing(inst *instanceState, def *core.ProcessDefinition, exec *execution, activity *core.Activity) []*core.Task {
	outgoing := activity.Outgoing

	switch len(outgoing) {
	case 0:
		exec.active = false
		if !e.anyActiveWork(inst) {
			e.endInstance(inst, activity.ID)
		}
		return nil

	case 1:
		return e.moveExecution(inst, def, exec, outgoing[0].Destination)

	default:
		var created []*core.Task
		exec.active = false
		for _, t := range outgoing {
			child := &execution{
				id:         uuid.NewString(),
				parentID:   exec.id,
				activityID: activity.ID,
				concurrent: true,
				active:     true,
			}
			inst.executions[child.id] = child
			created = append(created, e.moveExecution(inst, def, child, t.Destination)...)
		}
		return created
	}
}

func (e *Engine) anyActiveWork(inst *instanceState) bool {
	if len(inst.tasks) > 0 {
		return true
	}
	for _, ex := range inst.executions {
		if ex.active {
			return true
		}
	}
	return false
}

func (e *Engine) endInstance(inst *instanceState, endActivityID string) {
	inst.ended = true
	inst.endActivityID = endActivityID
	inst.endedAt = e.clock.Now()
	for _, ex := range inst.executions {
		ex.active = false
	}

	e.options.Logger.Debug("Process instance ended",
		log.InstanceIDKey, inst.id,
		log.ActivityIDKey, endActivityID,
	)
}

func (e *Engine) Advance(ctx context.Context, taskID string, variables, transientVariables map[string]any) ([]*core.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, task := e.findTask(taskID)
	if task == nil {
		return nil, fault.NotFound(fmt.Sprintf("task %q does not exist", taskID))
	}

	def := e.definitions[inst.definitionID]
	activity := def.Activity(task.activityID)
	if activity == nil {
		return nil, fault.Business(fmt.Sprintf("activity %q missing from definition %q", task.activityID, def.ID))
	}

	for k, v := range variables {
		inst.variables[k] = v
	}
	// transientVariables influence the move only; they are not persisted
	_ = transientVariables

	e.completeTask(inst, task)

	exec := inst.executions[task.executionID]
	created := e.followOutgoing(inst, def, exec, activity)

	return created, nil
}

func (e *Engine) ForceJump(ctx context.Context, executionID, activityID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, exec := e.findExecution(executionID)
	if exec == nil {
		return fault.NotFound(fmt.Sprintf("execution %q does not exist", executionID))
	}

	def := e.definitions[inst.definitionID]
	target := def.Activity(activityID)
	if target == nil {
		return fault.NotFound(fmt.Sprintf("activity %q does not exist in definition %q", activityID, def.ID))
	}

	// Drop the live tasks bound to this execution before relocating it
	for _, task := range inst.tasks {
		if task.executionID == exec.id {
			e.completeTask(inst, task)
		}
	}

	exec.active = true
	e.moveExecution(inst, def, exec, target)

	return nil
}

// completeTask removes a live task and finishes its historic record. Caller
// holds e.mu.
func (e *Engine) completeTask(inst *instanceState, task *taskState) {
	if ht, ok := inst.historicTasks[task.id]; ok {
		ht.Assignee = task.assignee
		ht.EndedAt = e.clock.Now()
	}
	delete(inst.tasks, task.id)
}

func (e *Engine) Claim(ctx context.Context, taskID, userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, task := e.findTask(taskID)
	if task == nil {
		return fault.NotFound(fmt.Sprintf("task %q does not exist", taskID))
	}

	if task.assignee != "" {
		return fault.Conflict("task is already claimed")
	}

	task.assignee = userID

	return nil
}

func (e *Engine) SetAssignee(ctx context.Context, taskID, userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, task := e.findTask(taskID)
	if task == nil {
		return fault.NotFound(fmt.Sprintf("task %q does not exist", taskID))
	}

	task.assignee = userID

	return nil
}

func (e *Engine) AddCandidateUser(ctx context.Context, taskID, userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, task := e.findTask(taskID)
	if task == nil {
		return fault.NotFound(fmt.Sprintf("task %q does not exist", taskID))
	}

	if slices.Contains(task.candidates, userID) {
		return nil
	}
	task.candidates = append(task.candidates, userID)

	return nil
}

func (e *Engine) DeleteHistoricTask(ctx context.Context, taskID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Deleting an absent record is a no-op; the reject correction pass may
	// delete the same record twice
	for _, inst := range e.instances {
		delete(inst.historicTasks, taskID)
	}

	return nil
}

func (e *Engine) DeleteHistoricActivity(ctx context.Context, instanceID, activityKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[instanceID]
	if !ok {
		return fault.NotFound(fmt.Sprintf("process instance %q does not exist", instanceID))
	}

	kept := inst.historicActivities[:0]
	for _, ha := range inst.historicActivities {
		if ha.activityID != activityKey {
			kept = append(kept, ha)
		}
	}
	inst.historicActivities = kept

	return nil
}

func (e *Engine) SetVariables(ctx context.Context, taskID string, variables map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, task := e.findTask(taskID)
	if task == nil {
		return fault.NotFound(fmt.Sprintf("task %q does not exist", taskID))
	}

	for k, v := range variables {
		inst.variables[k] = v
	}

	return nil
}

func (e *Engine) SetVariablesLocal(ctx context.Context, taskID string, variables map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, task := e.findTask(taskID)
	if task == nil {
		return fault.NotFound(fmt.Sprintf("task %q does not exist", taskID))
	}

	if task.localVars == nil {
		task.localVars = map[string]any{}
	}
	for k, v := range variables {
		task.localVars[k] = v
	}

	return nil
}

func (e *Engine) RemoveVariables(ctx context.Context, taskID string, names []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, task := e.findTask(taskID)
	if task == nil {
		return fault.NotFound(fmt.Sprintf("task %q does not exist", taskID))
	}

	for _, name := range names {
		delete(inst.variables, name)
		delete(task.localVars, name)
	}

	return nil
}

// SetPendingJobs sets the simulated scheduled-job count for an execution.
// Timers themselves are not modeled; the count is what reject checks.
func (e *Engine) SetPendingJobs(executionID string, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pendingJobs[executionID] = n
}

func (e *Engine) PendingJobCount(ctx context.Context, executionID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pendingJobs[executionID], nil
}

func (e *Engine) IsConcurrentBranch(ctx context.Context, executionID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, exec := e.findExecution(executionID)
	if exec == nil {
		return false, fault.NotFound(fmt.Sprintf("execution %q does not exist", executionID))
	}

	return exec.concurrent, nil
}

// findTask returns the instance and live task for taskID. Caller holds e.mu.
func (e *Engine) findTask(taskID string) (*instanceState, *taskState) {
	for _, inst := range e.instances {
		if task, ok := inst.tasks[taskID]; ok {
			return inst, task
		}
	}
	return nil, nil
}

// findExecution returns the instance and execution for executionID. Caller
// holds e.mu.
func (e *Engine) findExecution(executionID string) (*instanceState, *execution) {
	for _, inst := range e.instances {
		if exec, ok := inst.executions[executionID]; ok {
			return inst, exec
		}
	}
	return nil, nil
}
