package tasks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enactio/enact/backend/memory"
	"github.com/enactio/enact/candidate"
	"github.com/enactio/enact/core"
	"github.com/enactio/enact/tasks"
)

// mapPolicyProvider resolves candidates from a static activity -> users map.
type mapPolicyProvider map[string][]string

func (p mapPolicyProvider) ActivityConfiguration(ctx context.Context, resolvingUserID, definitionID, activityKey string) (candidate.Policy, error) {
	users, ok := p[activityKey]
	if !ok {
		return nil, nil
	}
	return candidate.StaticPolicy(users...), nil
}

type fixture struct {
	engine   *memory.Engine
	recorder *memory.Recorder
	service  *tasks.Service
}

func newFixture(t *testing.T, policies mapPolicyProvider, opts ...tasks.Option) *fixture {
	t.Helper()

	engine := memory.NewEngine()
	recorder := memory.NewRecorder()

	return &fixture{
		engine:   engine,
		recorder: recorder,
		service:  tasks.New(engine, recorder, policies, opts...),
	}
}

func expenseDefinition(t *testing.T) *core.ProcessDefinition {
	t.Helper()

	def := core.NewProcessDefinition("expense:1", "expense", "Expense", 1)
	def.AddActivity("start", core.ActivityStartEvent, "Start")
	def.AddActivity("submit", core.ActivityUserTask, "Submit request")
	def.AddActivity("approve", core.ActivityUserTask, "Approve request")
	def.AddActivity("end", core.ActivityEndEvent, "End")
	require.NoError(t, def.Connect("start", "submit"))
	require.NoError(t, def.Connect("submit", "approve"))
	require.NoError(t, def.Connect("approve", "end"))

	return def
}

// startExpense deploys the expense definition and starts one instance,
// returning the instance and its live "submit" task.
func startExpense(t *testing.T, f *fixture) (*core.ProcessInstance, *core.Task) {
	t.Helper()
	ctx := context.Background()

	f.engine.Deploy(expenseDefinition(t))

	inst, err := f.engine.StartInstance(ctx, "expense:1", "EXP-1", nil)
	require.NoError(t, err)

	liveTasks, err := f.service.SelectNowTask(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, liveTasks, 1)

	return inst, liveTasks[0]
}

// advanceToApprove claims and completes the submit task as userID and returns
// the live approve task.
func advanceToApprove(t *testing.T, f *fixture, inst *core.ProcessInstance, submit *core.Task, userID string) *core.Task {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.engine.AddCandidateUser(ctx, submit.ID, userID))
	require.NoError(t, f.service.Claim(ctx, submit.ID, userID))
	require.NoError(t, f.service.Complete(ctx, tasks.CompleteTaskRequest{
		TaskID:         submit.ID,
		CompleteUserID: userID,
	}))

	liveTasks, err := f.service.SelectNowTask(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, liveTasks, 1)
	require.Equal(t, "approve", liveTasks[0].TaskDefinitionKey)

	return liveTasks[0]
}
