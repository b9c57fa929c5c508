package memory

import (
	"context"
	"sync"

	"github.com/enactio/enact/core"
)

// WithinTransaction serializes per instance and rolls the instance's state
// back on error by restoring a snapshot taken before fn ran. Definition graph
// state is not part of the snapshot: the only runtime graph mutation, the
// reject rewire, restores itself.
func (e *Engine) WithinTransaction(ctx context.Context, instanceID string, fn func(ctx context.Context) error) error {
	txLock := e.transactionLock(instanceID)
	txLock.Lock()
	defer txLock.Unlock()

	e.mu.Lock()
	inst, ok := e.instances[instanceID]
	var snapshot *instanceState
	if ok {
		snapshot = inst.clone()
	}
	e.mu.Unlock()

	if err := fn(ctx); err != nil {
		e.mu.Lock()
		if snapshot != nil {
			e.instances[instanceID] = snapshot
		} else {
			delete(e.instances, instanceID)
		}
		e.mu.Unlock()

		return err
	}

	return nil
}

func (e *Engine) transactionLock(instanceID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.txLocks[instanceID]
	if !ok {
		l = &sync.Mutex{}
		e.txLocks[instanceID] = l
	}

	return l
}

func (inst *instanceState) clone() *instanceState {
	c := &instanceState{
		id:            inst.id,
		businessKey:   inst.businessKey,
		definitionID:  inst.definitionID,
		variables:     cloneVariables(inst.variables),
		startedAt:     inst.startedAt,
		ended:         inst.ended,
		endActivityID: inst.endActivityID,
		endedAt:       inst.endedAt,
		executions:    make(map[string]*execution, len(inst.executions)),
		tasks:         make(map[string]*taskState, len(inst.tasks)),
		historicTasks: make(map[string]*core.HistoricTaskInstance, len(inst.historicTasks)),
	}

	for id, ex := range inst.executions {
		copied := *ex
		c.executions[id] = &copied
	}

	for id, task := range inst.tasks {
		copied := *task
		copied.candidates = append([]string(nil), task.candidates...)
		copied.localVars = cloneVariables(task.localVars)
		c.tasks[id] = &copied
	}

	for id, ht := range inst.historicTasks {
		copied := *ht
		c.historicTasks[id] = &copied
	}

	c.historicActivities = make([]*historicActivity, len(inst.historicActivities))
	for i, ha := range inst.historicActivities {
		copied := *ha
		c.historicActivities[i] = &copied
	}

	return c
}
