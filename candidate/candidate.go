// Package candidate resolves which users are eligible to act on a task next.
// Eligibility comes from external policy configuration keyed by definition and
// activity; policies may depend on the resolving user and on task context.
package candidate

import (
	"context"
	"fmt"

	"github.com/enactio/enact/core"
)

// Info is one resolved candidate. Entries with an empty UserID are skipped by
// consumers; policies may emit them for positions that are currently vacant.
type Info struct {
	UserID   string
	UserName string
}

// Policy produces the candidates for one activity.
type Policy interface {
	CandidateInfo(ctx context.Context, task *core.Task) ([]Info, error)
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(ctx context.Context, task *core.Task) ([]Info, error)

func (f PolicyFunc) CandidateInfo(ctx context.Context, task *core.Task) ([]Info, error) {
	return f(ctx, task)
}

// StaticPolicy returns a policy that always yields the given users.
func StaticPolicy(userIDs ...string) Policy {
	return PolicyFunc(func(ctx context.Context, task *core.Task) ([]Info, error) {
		infos := make([]Info, 0, len(userIDs))
		for _, id := range userIDs {
			infos = append(infos, Info{UserID: id})
		}
		return infos, nil
	})
}

// PolicyProvider looks up the policy configured for an activity. The policy
// may depend on the resolving user, e.g. "the resolver's manager".
type PolicyProvider interface {
	ActivityConfiguration(ctx context.Context, resolvingUserID, definitionID, activityKey string) (Policy, error)
}

// NopPolicyProvider configures no activity and resolves nobody.
type NopPolicyProvider struct{}

func (NopPolicyProvider) ActivityConfiguration(ctx context.Context, resolvingUserID, definitionID, activityKey string) (Policy, error) {
	return nil, nil
}

// Resolver resolves candidates through a PolicyProvider.
type Resolver struct {
	provider PolicyProvider
}

func NewResolver(provider PolicyProvider) *Resolver {
	return &Resolver{provider: provider}
}

// Resolve returns the ordered candidates for the task's activity. A missing
// policy or a policy without eligible users yields an empty slice, not an
// error: the task simply has no candidates yet.
func (r *Resolver) Resolve(ctx context.Context, resolvingUserID, definitionID, activityKey string, task *core.Task) ([]Info, error) {
	policy, err := r.provider.ActivityConfiguration(ctx, resolvingUserID, definitionID, activityKey)
	if err != nil {
		return nil, fmt.Errorf("looking up activity configuration: %w", err)
	}

	if policy == nil {
		return nil, nil
	}

	infos, err := policy.CandidateInfo(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("resolving candidates: %w", err)
	}

	return infos, nil
}
