package metrickeys

const (
	TaskClaimed   = "task.claimed"
	TaskCompleted = "task.completed"
	TaskRejected  = "task.rejected"
	TaskJumped    = "task.jumped"
	ProcessEnded  = "process.ended"

	CandidatesResolved = "candidates.resolved"
)
