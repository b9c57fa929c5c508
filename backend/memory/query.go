package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/enactio/enact/backend"
	"github.com/enactio/enact/core"
	"github.com/enactio/enact/fault"
)

func (e *Engine) DeployedDefinition(ctx context.Context, definitionID string) (*core.ProcessDefinition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	def, ok := e.definitions[definitionID]
	if !ok {
		return nil, fault.NotFound(fmt.Sprintf("process definition %q is not deployed", definitionID))
	}

	return def, nil
}

func (e *Engine) LatestDefinitionID(ctx context.Context, definitionKey string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.latestByKey[definitionKey]
	if !ok {
		return "", fault.NotFound(fmt.Sprintf("no definition deployed for key %q", definitionKey))
	}

	return id, nil
}

func (e *Engine) ProcessInstance(ctx context.Context, instanceID string) (*core.ProcessInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[instanceID]
	if !ok || inst.ended {
		return nil, fault.NotFound(fmt.Sprintf("process instance %q does not exist or has ended", instanceID))
	}

	return instanceToCore(inst), nil
}

func (e *Engine) HistoricProcessInstance(ctx context.Context, instanceID string) (*core.HistoricProcessInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[instanceID]
	if !ok {
		return nil, fault.NotFound(fmt.Sprintf("process instance %q does not exist", instanceID))
	}

	hpi := &core.HistoricProcessInstance{
		ID:                  inst.id,
		BusinessKey:         inst.businessKey,
		ProcessDefinitionID: inst.definitionID,
		StartedAt:           inst.startedAt,
	}
	if inst.ended {
		hpi.EndActivityID = inst.endActivityID
		hpi.EndedAt = inst.endedAt
	}

	return hpi, nil
}

func (e *Engine) LiveTasks(ctx context.Context, filter backend.TaskFilter) ([]*core.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var tasks []*core.Task

	for _, inst := range e.instances {
		if filter.ProcessInstanceID != "" && inst.id != filter.ProcessInstanceID {
			continue
		}
		if filter.ActiveOnly && inst.ended {
			continue
		}

		for _, task := range inst.tasks {
			if filter.TaskID != "" && task.id != filter.TaskID {
				continue
			}
			if filter.TaskDefinitionKey != "" && task.activityID != filter.TaskDefinitionKey {
				continue
			}
			if filter.CandidateUser != "" && !slices.Contains(task.candidates, filter.CandidateUser) {
				continue
			}

			tasks = append(tasks, e.taskToCore(inst, task, filter.IncludeVariables))
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})

	return tasks, nil
}

func (e *Engine) HistoricTasks(ctx context.Context, filter backend.HistoricTaskFilter) ([]*core.HistoricTaskInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var tasks []*core.HistoricTaskInstance

	for _, inst := range e.instances {
		if filter.ProcessInstanceID != "" && inst.id != filter.ProcessInstanceID {
			continue
		}

		for _, ht := range inst.historicTasks {
			if filter.TaskID != "" && ht.ID != filter.TaskID {
				continue
			}
			if filter.TaskDefinitionKey != "" && ht.TaskDefinitionKey != filter.TaskDefinitionKey {
				continue
			}

			c := *ht
			tasks = append(tasks, &c)
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].EndedAt.Equal(tasks[j].EndedAt) {
			return tasks[i].EndedAt.Before(tasks[j].EndedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})

	return tasks, nil
}

// HistoricActivityCount returns how many historic activity records exist for
// the given activity of the given instance.
func (e *Engine) HistoricActivityCount(instanceID, activityKey string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[instanceID]
	if !ok {
		return 0
	}

	n := 0
	for _, ha := range inst.historicActivities {
		if ha.activityID == activityKey {
			n++
		}
	}

	return n
}

func (e *Engine) Variables(ctx context.Context, instanceID string) (map[string]any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[instanceID]
	if !ok {
		return nil, fault.NotFound(fmt.Sprintf("process instance %q does not exist", instanceID))
	}

	return cloneVariables(inst.variables), nil
}

func (e *Engine) TaskVariables(ctx context.Context, taskID string) (map[string]any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, task := e.findTask(taskID)
	if task == nil {
		return nil, fault.NotFound(fmt.Sprintf("task %q does not exist", taskID))
	}

	variables := cloneVariables(inst.variables)
	for k, v := range task.localVars {
		variables[k] = v
	}

	return variables, nil
}

func (e *Engine) TaskVariablesLocal(ctx context.Context, taskID string) (map[string]any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, task := e.findTask(taskID)
	if task == nil {
		return nil, fault.NotFound(fmt.Sprintf("task %q does not exist", taskID))
	}

	return cloneVariables(task.localVars), nil
}

// taskToCore copies a live task into its public shape. Caller holds e.mu.
func (e *Engine) taskToCore(inst *instanceState, task *taskState, includeVariables bool) *core.Task {
	t := &core.Task{
		ID:                  task.id,
		Name:                task.name,
		ProcessDefinitionID: inst.definitionID,
		ProcessInstanceID:   inst.id,
		ExecutionID:         task.executionID,
		TaskDefinitionKey:   task.activityID,
		Assignee:            task.assignee,
		Candidates:          append([]string(nil), task.candidates...),
		CreatedAt:           task.createdAt,
	}

	if includeVariables {
		t.Variables = cloneVariables(inst.variables)
		for k, v := range task.localVars {
			t.Variables[k] = v
		}
	}

	return t
}

func instanceToCore(inst *instanceState) *core.ProcessInstance {
	return &core.ProcessInstance{
		ID:                  inst.id,
		BusinessKey:         inst.businessKey,
		ProcessDefinitionID: inst.definitionID,
		Variables:           cloneVariables(inst.variables),
		StartedAt:           inst.startedAt,
	}
}

func cloneVariables(variables map[string]any) map[string]any {
	clone := make(map[string]any, len(variables))
	for k, v := range variables {
		clone[k] = v
	}
	return clone
}
