package memory

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/enactio/enact/history"
)

// Recorder is an in-memory audit store.
type Recorder struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string][]*history.Entry
}

func NewRecorder() *Recorder {
	return &Recorder{
		clock:   clock.New(),
		entries: map[string][]*history.Entry{},
	}
}

var _ history.Recorder = (*Recorder)(nil)

func (r *Recorder) Record(ctx context.Context, entry *history.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.clock.Now()
	}

	copied := *entry
	r.entries[entry.ProcessInstanceID] = append(r.entries[entry.ProcessInstanceID], &copied)

	return nil
}

func (r *Recorder) ProcessHistory(ctx context.Context, processInstanceID string) ([]*history.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.entries[processInstanceID]
	entries := make([]*history.Entry, 0, len(stored))
	for _, e := range stored {
		copied := *e
		entries = append(entries, &copied)
	}

	return entries, nil
}

func (r *Recorder) Close() error {
	return nil
}
