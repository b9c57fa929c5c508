// Package mysql persists the audit log in a mysql database.
package mysql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	mysqlmigrate "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	"github.com/enactio/enact/history"
)

//go:embed db/migrations/*.sql
var migrationsFS embed.FS

func NewMysqlRecorder(host string, port int, user, password, database string) *Recorder {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&interpolateParams=true", user, password, host, port, database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		panic(err)
	}

	r := &Recorder{
		db:    db,
		clock: clock.New(),
	}

	if err := r.Migrate(); err != nil {
		panic(err)
	}

	return r
}

// NewMysqlRecorderWithDB uses an existing connection and does not apply
// migrations or close the connection.
func NewMysqlRecorderWithDB(db *sql.DB) *Recorder {
	return &Recorder{
		db:         db,
		clock:      clock.New(),
		sharedConn: true,
	}
}

type Recorder struct {
	db         *sql.DB
	clock      clock.Clock
	sharedConn bool
}

var _ history.Recorder = (*Recorder)(nil)

// Migrate brings the schema up to date.
func (r *Recorder) Migrate() error {
	dbi, err := mysqlmigrate.WithInstance(r.db, &mysqlmigrate.Config{})
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}

	migrations, err := iofs.New(migrationsFS, "db/migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", migrations, "mysql", dbi)
	if err != nil {
		return fmt.Errorf("creating migration: %w", err)
	}

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	return nil
}

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

	_, err := r.db.ExecContext(
		ctx,
		"INSERT INTO `process_history` (id, business_key, type, type_text, creator_id, creator_name, process_definition_id, process_instance_id, task_id, task_definition_key, task_name, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
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
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

func (r *Recorder) ProcessHistory(ctx context.Context, processInstanceID string) ([]*history.Entry, error) {
	rows, err := r.db.QueryContext(
		ctx,
		"SELECT id, business_key, type, type_text, creator_id, creator_name, process_definition_id, process_instance_id, task_id, task_definition_key, task_name, data, created_at FROM `process_history` WHERE process_instance_id = ? ORDER BY seq",
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
	if r.sharedConn {
		return nil
	}

	return r.db.Close()
}
