package dao

import (
	"database/sql"
	"time"
)

// RunDAO dag_run表的数据访问对象（内部使用）
type RunDAO struct {
	ID           string         `db:"id"`
	DagName      string         `db:"dag_name"`
	Status       string         `db:"status"`
	StartedAt    time.Time      `db:"started_at"`
	FinishedAt   sql.NullTime   `db:"finished_at"`
	TaskTotal    int            `db:"task_total"`
	TaskFailed   int            `db:"task_failed"`
	TaskSkipped  int            `db:"task_skipped"`
	ErrorMessage sql.NullString `db:"error_message"`
}

// TaskRunDAO dag_task_run表的数据访问对象（内部使用）
type TaskRunDAO struct {
	RunID      string         `db:"run_id"`
	TaskID     int64          `db:"task_id"`
	TaskName   string         `db:"task_name"`
	Status     string         `db:"status"`
	Output     sql.NullString `db:"output"`
	ErrorMsg   sql.NullString `db:"error_msg"`
	StartedAt  sql.NullTime   `db:"started_at"`
	FinishedAt sql.NullTime   `db:"finished_at"`
}

// NullTime 零值时间转为NULL
func NullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// NullString 空串转为NULL
func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
