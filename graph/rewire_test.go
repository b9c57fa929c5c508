package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enactio/enact/core"
)

func buildDefinition(t *testing.T) *core.ProcessDefinition {
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

func outgoingDestinations(a *core.Activity) []string {
	var ids []string
	for _, t := range a.Outgoing {
		ids = append(ids, t.Destination.ID)
	}
	return ids
}

func Test_RewireToPredecessors(t *testing.T) {
	def := buildDefinition(t)
	approve := def.Activity("approve")

	h := RewireToPredecessors(approve)

	// Forward edge to "end" replaced by a backward edge to "submit"
	require.Equal(t, []string{"submit"}, outgoingDestinations(approve))
	for _, tr := range approve.Outgoing {
		require.Same(t, approve, tr.Source)
	}

	h.Restore()

	require.Equal(t, []string{"end"}, outgoingDestinations(approve))
	require.True(t, h.Restored())
}

func Test_RewireRestore_SetEquality(t *testing.T) {
	def := buildDefinition(t)
	approve := def.Activity("approve")

	before := append([]*core.Transition(nil), approve.Outgoing...)

	h := RewireToPredecessors(approve)
	h.Restore()

	require.ElementsMatch(t, before, approve.Outgoing)
}

func Test_RewireRestore_Idempotent(t *testing.T) {
	def := buildDefinition(t)
	approve := def.Activity("approve")

	h := RewireToPredecessors(approve)
	h.Restore()
	h.Restore()

	require.Equal(t, []string{"end"}, outgoingDestinations(approve))
	require.Len(t, approve.Outgoing, 1)
}

func Test_RewireMultiplePredecessors(t *testing.T) {
	def := core.NewProcessDefinition("d:1", "d", "D", 1)
	def.AddActivity("a", core.ActivityUserTask, "A")
	def.AddActivity("b", core.ActivityUserTask, "B")
	def.AddActivity("c", core.ActivityUserTask, "C")
	def.AddActivity("end", core.ActivityEndEvent, "End")
	require.NoError(t, def.Connect("a", "c"))
	require.NoError(t, def.Connect("b", "c"))
	require.NoError(t, def.Connect("c", "end"))

	c := def.Activity("c")
	h := RewireToPredecessors(c)

	require.ElementsMatch(t, []string{"a", "b"}, outgoingDestinations(c))

	h.Restore()
	require.Equal(t, []string{"end"}, outgoingDestinations(c))
}

func Test_RewireNoIncoming(t *testing.T) {
	def := core.NewProcessDefinition("d:1", "d", "D", 1)
	def.AddActivity("first", core.ActivityUserTask, "First")
	def.AddActivity("end", core.ActivityEndEvent, "End")
	require.NoError(t, def.Connect("first", "end"))

	first := def.Activity("first")
	h := RewireToPredecessors(first)

	require.Empty(t, first.Outgoing)

	h.Restore()
	require.Equal(t, []string{"end"}, outgoingDestinations(first))
}
