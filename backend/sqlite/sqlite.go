// Package sqlite persists the audit log in a sqlite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/enactio/enact/history"
)

//go:embed schema.sql
var schema string

// NewInMemoryRecorder keeps the audit log in a private in-memory database,
// mostly useful for tests.
func NewInMemoryRecorder() *Recorder {
	r := newRecorder("file::memory:?mode=memory")

	r.db.SetMaxOpenConns(1)

	return r
}

func NewSqliteRecorder(path string) *Recorder {
	return newRecorder(fmt.Sprintf("file:%v", path))
}

func newRecorder(dsn string) *Recorder {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		panic(err)
	}

	if _, err := db.Exec(schema); err != nil {
		panic(fmt.Errorf("initializing database: %w", err))
	}

	return &Recorder{
		db:    db,
		clock: clock.New(),
	}
}

type Recorder struct {
	db    *sql.DB
	clock clock.Clock
}

var _ history.Recorder = (*Recorder)(nil)

func (r *Recorder) Record(ctx context.Context, entry *history.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.clock.Now()
	}

	var data *string
	if entry.Data != nil {
		b, err := json.Marshal(entry.Data)
		if err != nil {
			return fmt.Errorf("marshaling entry data: %w", err)
		}
		s := string(b)
		data = &s
	}

	// Concurrent writers can hit a busy database; retry briefly before
	// giving up
	insert := func() error {
		_, err := r.db.ExecContext(
			ctx,
			`INSERT INTO process_history
				(id, business_key, type, type_text, creator_id, creator_name,
				process_definition_id, process_instance_id, task_id, task_definition_key, task_name, data, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			entry.BusinessKey,
			entry.Type,
			entry.TypeText,
			entry.CreatorID,
			entry.CreatorName,
			entry.ProcessDefinitionID,
			entry.ProcessInstanceID,
			entry.TaskID,
			entry.TaskDefinitionKey,
			entry.TaskName,
			data,
			entry.CreatedAt,
		)
		if err != nil {
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(insert, b); err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

func (r *Recorder) ProcessHistory(ctx context.Context, processInstanceID string) ([]*history.Entry, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, business_key, type, type_text, creator_id, creator_name,
			process_definition_id, process_instance_id, task_id, task_definition_key, task_name, data, created_at
			FROM process_history WHERE process_instance_id = ? ORDER BY rowid`,
		processInstanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*history.Entry

	for rows.Next() {
		var entry history.Entry
		var data *string
		var createdAt time.Time

		if err := rows.Scan(
			&entry.ID,
			&entry.BusinessKey,
			&entry.Type,
			&entry.TypeText,
			&entry.CreatorID,
			&entry.CreatorName,
			&entry.ProcessDefinitionID,
			&entry.ProcessInstanceID,
			&entry.TaskID,
			&entry.TaskDefinitionKey,
			&entry.TaskName,
			&data,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		if data != nil {
			if err := json.Unmarshal([]byte(*data), &entry.Data); err != nil {
				return nil, fmt.Errorf("unmarshaling entry data: %w", err)
			}
		}
		entry.CreatedAt = createdAt

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *Recorder) Close() error {
	return r.db.Close()
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}
