package candidate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enactio/enact/core"
)

type providerFunc func(ctx context.Context, resolvingUserID, definitionID, activityKey string) (Policy, error)

func (f providerFunc) ActivityConfiguration(ctx context.Context, resolvingUserID, definitionID, activityKey string) (Policy, error) {
	return f(ctx, resolvingUserID, definitionID, activityKey)
}

func Test_Resolve(t *testing.T) {
	r := NewResolver(providerFunc(func(ctx context.Context, resolvingUserID, definitionID, activityKey string) (Policy, error) {
		require.Equal(t, "alice", resolvingUserID)
		require.Equal(t, "expense:1", definitionID)
		require.Equal(t, "approve", activityKey)

		return StaticPolicy("bob", "carol"), nil
	}))

	infos, err := r.Resolve(context.Background(), "alice", "expense:1", "approve", &core.Task{ID: "t1"})
	require.NoError(t, err)
	require.Equal(t, []Info{{UserID: "bob"}, {UserID: "carol"}}, infos)
}

func Test_Resolve_NoPolicy(t *testing.T) {
	r := NewResolver(NopPolicyProvider{})

	infos, err := r.Resolve(context.Background(), "alice", "expense:1", "approve", &core.Task{ID: "t1"})
	require.NoError(t, err)
	require.Empty(t, infos)
}

func Test_Resolve_EmptyPolicyResult(t *testing.T) {
	r := NewResolver(providerFunc(func(ctx context.Context, resolvingUserID, definitionID, activityKey string) (Policy, error) {
		return StaticPolicy(), nil
	}))

	infos, err := r.Resolve(context.Background(), "alice", "expense:1", "approve", &core.Task{ID: "t1"})
	require.NoError(t, err)
	require.Empty(t, infos)
}

func Test_Resolve_ProviderError(t *testing.T) {
	provErr := errors.New("configuration store unavailable")
	r := NewResolver(providerFunc(func(ctx context.Context, resolvingUserID, definitionID, activityKey string) (Policy, error) {
		return nil, provErr
	}))

	_, err := r.Resolve(context.Background(), "alice", "expense:1", "approve", &core.Task{ID: "t1"})
	require.ErrorIs(t, err, provErr)
}

func Test_Resolve_PolicyUsesTaskContext(t *testing.T) {
	r := NewResolver(providerFunc(func(ctx context.Context, resolvingUserID, definitionID, activityKey string) (Policy, error) {
		return PolicyFunc(func(ctx context.Context, task *core.Task) ([]Info, error) {
			if task.Variables["amount"].(int) > 1000 {
				return []Info{{UserID: "cfo", UserName: "CFO"}}, nil
			}
			return []Info{{UserID: "manager"}}, nil
		}), nil
	}))

	infos, err := r.Resolve(context.Background(), "alice", "expense:1", "approve", &core.Task{
		ID:        "t1",
		Variables: map[string]any{"amount": 5000},
	})
	require.NoError(t, err)
	require.Equal(t, []Info{{UserID: "cfo", UserName: "CFO"}}, infos)
}
