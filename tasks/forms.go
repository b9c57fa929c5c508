package tasks

import (
	"context"

	"github.com/enactio/enact/core"
)

// SaveFormRequest carries the form data attached to a task completion.
type SaveFormRequest struct {
	UserID   string
	UserName string
	FormData map[string]any
}

// FormService persists task form data. The default implementation does
// nothing; deployments that collect forms plug their own in via
// WithFormService.
type FormService interface {
	SaveTaskForm(ctx context.Context, instance *core.ProcessInstance, task *core.Task, request SaveFormRequest) error
}

type nopFormService struct{}

func (nopFormService) SaveTaskForm(ctx context.Context, instance *core.ProcessInstance, task *core.Task, request SaveFormRequest) error {
	return nil
}
