package tasks

import (
	"context"

	"github.com/enactio/enact/core"
	"github.com/enactio/enact/fault"
	"github.com/enactio/enact/internal/log"
	"github.com/enactio/enact/internal/metrickeys"
	"github.com/enactio/enact/metrics"
)

// SetCandidate resolves the candidates configured for the task's activity and
// adds each resolved user to the task's candidate set. The resolving user may
// influence the outcome, e.g. a "resolver's manager" policy. Resolving nobody
// is not an error: the task simply has no candidates yet.
func (s *Service) SetCandidate(ctx context.Context, resolvingUserID string, task *core.Task) error {
	if task == nil {
		return nil
	}

	if task.TaskDefinitionKey == "" {
		s.options.Logger.Warn("Cannot resolve candidates for task without definition key",
			log.TaskIDKey, task.ID,
		)
		return nil
	}

	infos, err := s.resolver.Resolve(ctx, resolvingUserID, task.ProcessDefinitionID, task.TaskDefinitionKey, task)
	if err != nil {
		return fault.FromEngine("resolving candidates", err)
	}

	for _, info := range infos {
		if info.UserID == "" {
			continue
		}

		if err := s.engine.AddCandidateUser(ctx, task.ID, info.UserID); err != nil {
			return fault.FromEngine("adding candidate user", err)
		}
	}

	s.options.Metrics.Counter(metrickeys.CandidatesResolved, metrics.Tags{}, float64(len(infos)))

	return nil
}
