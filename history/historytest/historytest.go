// Package historytest is a conformance suite run against every Recorder
// implementation.
package historytest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enactio/enact/history"
)

func RecorderTest(t *testing.T, setup func() history.Recorder, teardown func(r history.Recorder)) {
	tests := []struct {
		name string
		f    func(t *testing.T, ctx context.Context, r history.Recorder)
	}{
		{
			name: "RecordAndQuery",
			f: func(t *testing.T, ctx context.Context, r history.Recorder) {
				entry := &history.Entry{
					BusinessKey:         "EXP-42",
					Type:                history.EntryTypeComplete,
					TypeText:            history.TypeTextComplete,
					CreatorID:           "alice",
					CreatorName:         "Alice",
					ProcessDefinitionID: "expense:1",
					ProcessInstanceID:   "pi-1",
					TaskID:              "t1",
					TaskDefinitionKey:   "approve",
					TaskName:            "Approve request",
					Data:                map[string]any{"comment": "ok"},
				}

				require.NoError(t, r.Record(ctx, entry))
				require.NotEmpty(t, entry.ID)

				entries, err := r.ProcessHistory(ctx, "pi-1")
				require.NoError(t, err)
				require.Len(t, entries, 1)

				got := entries[0]
				require.Equal(t, entry.ID, got.ID)
				require.Equal(t, "EXP-42", got.BusinessKey)
				require.Equal(t, history.EntryTypeComplete, got.Type)
				require.Equal(t, "alice", got.CreatorID)
				require.Equal(t, "approve", got.TaskDefinitionKey)
				require.Equal(t, "ok", got.Data["comment"])
				require.False(t, got.CreatedAt.IsZero())
			},
		},
		{
			name: "InsertionOrderPerInstance",
			f: func(t *testing.T, ctx context.Context, r history.Recorder) {
				for i := 0; i < 5; i++ {
					require.NoError(t, r.Record(ctx, &history.Entry{
						Type:              history.EntryTypeComplete,
						ProcessInstanceID: "pi-ordered",
						TaskID:            fmt.Sprintf("t%d", i),
					}))
				}

				entries, err := r.ProcessHistory(ctx, "pi-ordered")
				require.NoError(t, err)
				require.Len(t, entries, 5)
				for i, e := range entries {
					require.Equal(t, fmt.Sprintf("t%d", i), e.TaskID)
				}
			},
		},
		{
			name: "InstancesIsolated",
			f: func(t *testing.T, ctx context.Context, r history.Recorder) {
				require.NoError(t, r.Record(ctx, &history.Entry{Type: history.EntryTypeReject, ProcessInstanceID: "pi-a"}))
				require.NoError(t, r.Record(ctx, &history.Entry{Type: history.EntryTypeComplete, ProcessInstanceID: "pi-b"}))

				entries, err := r.ProcessHistory(ctx, "pi-a")
				require.NoError(t, err)
				require.Len(t, entries, 1)
				require.Equal(t, history.EntryTypeReject, entries[0].Type)
			},
		},
		{
			name: "EmptyInstance",
			f: func(t *testing.T, ctx context.Context, r history.Recorder) {
				entries, err := r.ProcessHistory(ctx, "pi-none")
				require.NoError(t, err)
				require.Empty(t, entries)
			},
		},
		{
			name: "NullableTaskFields",
			f: func(t *testing.T, ctx context.Context, r history.Recorder) {
				// A reject with no newly-live task records empty task fields
				require.NoError(t, r.Record(ctx, &history.Entry{
					Type:              history.EntryTypeReject,
					TypeText:          history.TypeTextReject,
					ProcessInstanceID: "pi-null",
				}))

				entries, err := r.ProcessHistory(ctx, "pi-null")
				require.NoError(t, err)
				require.Len(t, entries, 1)
				require.Empty(t, entries[0].TaskID)
				require.Empty(t, entries[0].TaskName)
				require.Nil(t, entries[0].Data)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setup()
			t.Cleanup(func() {
				if teardown != nil {
					teardown(r)
					return
				}

				require.NoError(t, r.Close())
			})

			tt.f(t, context.Background(), r)
		})
	}
}
