package tasks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enactio/enact/backend"
	"github.com/enactio/enact/backend/memory"
	"github.com/enactio/enact/core"
	"github.com/enactio/enact/fault"
	"github.com/enactio/enact/history"
	"github.com/enactio/enact/tasks"
)

func outgoingDestinations(a *core.Activity) []string {
	var ids []string
	for _, t := range a.Outgoing {
		ids = append(ids, t.Destination.ID)
	}
	return ids
}

func Test_Reject_EndToEnd(t *testing.T) {
	f := newFixture(t, mapPolicyProvider{"submit": {"alice"}, "approve": {"boss"}})
	ctx := context.Background()
	inst, submit := startExpense(t, f)
	advanceToApprove(t, f, inst, submit, "alice")

	def, err := f.engine.DeployedDefinition(ctx, "expense:1")
	require.NoError(t, err)
	approveOutgoingBefore := append([]*core.Transition(nil), def.Activity("approve").Outgoing...)

	err = f.service.Reject(ctx, tasks.RejectTaskRequest{
		ProcessInstanceID: inst.ID,
		ActivityID:        "approve",
		RejectUserID:      "boss",
		RejectUserName:    "Boss",
		Data:              map[string]any{"reason": "missing receipt"},
	})
	require.NoError(t, err)

	// Execution walked backward: a live task re-appeared at submit with
	// candidates resolved for the rejecting user
	liveTasks, err := f.service.SelectNowTask(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, liveTasks, 1)
	require.Equal(t, "submit", liveTasks[0].TaskDefinitionKey)
	require.Equal(t, []string{"alice"}, liveTasks[0].Candidates)

	// The rejected activity's transitions are exactly as before the call
	require.ElementsMatch(t, approveOutgoingBefore, def.Activity("approve").Outgoing)

	// No historic trace of the synthetic backward hop remains
	historicTasks, err := f.engine.HistoricTasks(ctx, backend.HistoricTaskFilter{
		ProcessInstanceID: inst.ID,
		TaskDefinitionKey: "approve",
	})
	require.NoError(t, err)
	require.Empty(t, historicTasks)
	require.Zero(t, f.engine.HistoricActivityCount(inst.ID, "approve"))

	// Exactly one reject entry, pointing at the newly-live task
	entries, err := f.recorder.ProcessHistory(ctx, inst.ID)
	require.NoError(t, err)

	var rejects []*history.Entry
	for _, e := range entries {
		if e.Type == history.EntryTypeReject {
			rejects = append(rejects, e)
		}
	}
	require.Len(t, rejects, 1)
	require.Equal(t, liveTasks[0].ID, rejects[0].TaskID)
	require.Equal(t, "submit", rejects[0].TaskDefinitionKey)
	require.Equal(t, "boss", rejects[0].CreatorID)
	require.Equal(t, "missing receipt", rejects[0].Data["reason"])
}

func Test_Reject_NoHistoricOccurrence(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	inst, _ := startExpense(t, f)

	err := f.service.Reject(ctx, tasks.RejectTaskRequest{
		ProcessInstanceID: inst.ID,
		ActivityID:        "nonexistent",
		RejectUserID:      "boss",
	})
	require.True(t, fault.IsNotFound(err))
}

func Test_Reject_ProcessEnded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	inst, submit := startExpense(t, f)
	approve := advanceToApprove(t, f, inst, submit, "alice")

	// Finish the process entirely
	require.NoError(t, f.engine.AddCandidateUser(ctx, approve.ID, "boss"))
	require.NoError(t, f.service.Claim(ctx, approve.ID, "boss"))
	require.NoError(t, f.service.Complete(ctx, tasks.CompleteTaskRequest{
		TaskID:         approve.ID,
		CompleteUserID: "boss",
	}))

	err := f.service.Reject(ctx, tasks.RejectTaskRequest{
		ProcessInstanceID: inst.ID,
		ActivityID:        "approve",
		RejectUserID:      "boss",
	})
	require.True(t, fault.IsNotFound(err))
}

func Test_Reject_PicksLiveOccurrence(t *testing.T) {
	f := newFixture(t, mapPolicyProvider{"submit": {"alice"}})
	ctx := context.Background()
	inst, submit := startExpense(t, f)
	approve := advanceToApprove(t, f, inst, submit, "alice")

	// Jump execution back to submit: the activity now has both a finished
	// occurrence and a live, unfinished one
	_, err := f.service.JumpTask(ctx, approve.ID, "submit")
	require.NoError(t, err)

	err = f.service.Reject(ctx, tasks.RejectTaskRequest{
		ProcessInstanceID: inst.ID,
		ActivityID:        "submit",
		RejectUserID:      "boss",
	})
	require.NoError(t, err)

	// The reject removed the live occurrence's record; the finished one from
	// the earlier completion is untouched
	historicTasks, err := f.engine.HistoricTasks(ctx, backend.HistoricTaskFilter{
		ProcessInstanceID: inst.ID,
		TaskDefinitionKey: "submit",
	})
	require.NoError(t, err)

	var finishedIDs []string
	for _, ht := range historicTasks {
		if !ht.EndedAt.IsZero() {
			finishedIDs = append(finishedIDs, ht.ID)
		}
	}
	require.Equal(t, []string{submit.ID}, finishedIDs)

	// Execution came to rest at submit again, as a fresh task
	liveTasks, err := f.service.SelectNowTask(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, liveTasks, 1)
	require.Equal(t, "submit", liveTasks[0].TaskDefinitionKey)
	require.NotEqual(t, submit.ID, liveTasks[0].ID)
}

func Test_Reject_ParallelBranch(t *testing.T) {
	def := core.NewProcessDefinition("par:1", "par", "Parallel", 1)
	def.AddActivity("start", core.ActivityStartEvent, "Start")
	def.AddActivity("fork", core.ActivityParallelGateway, "Fork")
	def.AddActivity("left", core.ActivityUserTask, "Left")
	def.AddActivity("right", core.ActivityUserTask, "Right")
	def.AddActivity("end", core.ActivityEndEvent, "End")
	require.NoError(t, def.Connect("start", "fork"))
	require.NoError(t, def.Connect("fork", "left"))
	require.NoError(t, def.Connect("fork", "right"))
	require.NoError(t, def.Connect("left", "end"))
	require.NoError(t, def.Connect("right", "end"))

	f := newFixture(t, nil)
	ctx := context.Background()
	f.engine.Deploy(def)

	inst, err := f.engine.StartInstance(ctx, "par:1", "PAR-1", nil)
	require.NoError(t, err)

	leftOutgoingBefore := append([]*core.Transition(nil), def.Activity("left").Outgoing...)

	err = f.service.Reject(ctx, tasks.RejectTaskRequest{
		ProcessInstanceID: inst.ID,
		ActivityID:        "left",
		RejectUserID:      "boss",
	})
	require.True(t, fault.IsBusiness(err))

	// No graph mutation happened at all
	require.Equal(t, leftOutgoingBefore, def.Activity("left").Outgoing)

	// Both branch tasks still live
	liveTasks, err := f.service.SelectNowTask(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, liveTasks, 2)

	entries, err := f.recorder.ProcessHistory(ctx, inst.ID)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func Test_Reject_PendingTimers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	inst, submit := startExpense(t, f)
	approve := advanceToApprove(t, f, inst, submit, "alice")

	f.engine.SetPendingJobs(approve.ExecutionID, 1)

	err := f.service.Reject(ctx, tasks.RejectTaskRequest{
		ProcessInstanceID: inst.ID,
		ActivityID:        "approve",
		RejectUserID:      "boss",
	})
	require.True(t, fault.IsBusiness(err))
}

func Test_Reject_Validation(t *testing.T) {
	f := newFixture(t, nil)

	err := f.service.Reject(context.Background(), tasks.RejectTaskRequest{ActivityID: "a", RejectUserID: "u"})
	require.True(t, fault.IsBusiness(err))

	err = f.service.Reject(context.Background(), tasks.RejectTaskRequest{ProcessInstanceID: "p", RejectUserID: "u"})
	require.True(t, fault.IsBusiness(err))

	err = f.service.Reject(context.Background(), tasks.RejectTaskRequest{ProcessInstanceID: "p", ActivityID: "a"})
	require.True(t, fault.IsBusiness(err))
}

// failingRecorder fails every append, forcing the reject's atomic unit to
// roll back after the graph was rewired and restored.
type failingRecorder struct{}

var errRecorder = errors.New("audit store unavailable")

func (failingRecorder) Record(ctx context.Context, entry *history.Entry) error {
	return errRecorder
}

func (failingRecorder) ProcessHistory(ctx context.Context, processInstanceID string) ([]*history.Entry, error) {
	return nil, nil
}

func (failingRecorder) Close() error { return nil }

func Test_Reject_FailureRollsBackAndRestoresGraph(t *testing.T) {
	f := &fixture{
		engine:   memory.NewEngine(),
		recorder: memory.NewRecorder(),
	}
	f.service = tasks.New(f.engine, failingRecorder{}, mapPolicyProvider{"submit": {"alice"}})
	ctx := context.Background()
	inst, submit := startExpense(t, f)
	approve := advanceToApprove(t, f, inst, submit, "alice")

	def, err := f.engine.DeployedDefinition(ctx, "expense:1")
	require.NoError(t, err)
	approveOutgoingBefore := append([]*core.Transition(nil), def.Activity("approve").Outgoing...)

	err = f.service.Reject(ctx, tasks.RejectTaskRequest{
		ProcessInstanceID: inst.ID,
		ActivityID:        "approve",
		RejectUserID:      "boss",
	})
	require.ErrorIs(t, err, errRecorder)

	// Graph restored even though the operation failed
	require.ElementsMatch(t, approveOutgoingBefore, def.Activity("approve").Outgoing)

	// Engine state rolled back: the approve task is live again
	liveTasks, err := f.service.SelectNowTask(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, liveTasks, 1)
	require.Equal(t, approve.ID, liveTasks[0].ID)
	require.Equal(t, "approve", liveTasks[0].TaskDefinitionKey)
}
