package tasks

import (
	"context"

	"github.com/enactio/enact/fault"
)

// VariablesByProcessInstanceID returns the instance's variable mapping.
func (s *Service) VariablesByProcessInstanceID(ctx context.Context, processInstanceID string) (map[string]any, error) {
	variables, err := s.engine.Variables(ctx, processInstanceID)
	if err != nil {
		return nil, fault.FromEngine("querying instance variables", err)
	}

	return variables, nil
}

// VariablesByTaskID returns the variables visible to a task.
func (s *Service) VariablesByTaskID(ctx context.Context, taskID string) (map[string]any, error) {
	variables, err := s.engine.TaskVariables(ctx, taskID)
	if err != nil {
		return nil, fault.FromEngine("querying task variables", err)
	}

	return variables, nil
}

// VariablesLocalByTaskID returns only the task-local variables.
func (s *Service) VariablesLocalByTaskID(ctx context.Context, taskID string) (map[string]any, error) {
	variables, err := s.engine.TaskVariablesLocal(ctx, taskID)
	if err != nil {
		return nil, fault.FromEngine("querying task-local variables", err)
	}

	return variables, nil
}

// VariableLocalByTaskID returns one task-local variable, or nil.
func (s *Service) VariableLocalByTaskID(ctx context.Context, taskID, name string) (any, error) {
	variables, err := s.VariablesLocalByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return variables[name], nil
}

// SetVariables merges variables into the instance scope through the task.
func (s *Service) SetVariables(ctx context.Context, taskID string, variables map[string]any) error {
	if err := s.engine.SetVariables(ctx, taskID, variables); err != nil {
		return fault.FromEngine("setting variables", err)
	}

	return nil
}

// SetVariablesLocal merges variables into the task-local scope.
func (s *Service) SetVariablesLocal(ctx context.Context, taskID string, variables map[string]any) error {
	if err := s.engine.SetVariablesLocal(ctx, taskID, variables); err != nil {
		return fault.FromEngine("setting task-local variables", err)
	}

	return nil
}

// RemoveVariables removes the named variables from both scopes.
func (s *Service) RemoveVariables(ctx context.Context, taskID string, names []string) error {
	if err := s.engine.RemoveVariables(ctx, taskID, names); err != nil {
		return fault.FromEngine("removing variables", err)
	}

	return nil
}
