// Package sqlrepo 基于sqlx的运行历史存储，通过Dialect适配不同数据库
package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/dag-engine/pkg/storage"
	"github.com/LENAX/dag-engine/pkg/storage/dao"
)

const (
	runTable     = "dag_run"
	taskRunTable = "dag_task_run"
)

var (
	runColumns = []string{
		"id", "dag_name", "status", "started_at", "finished_at",
		"task_total", "task_failed", "task_skipped", "error_message",
	}
	taskRunColumns = []string{
		"run_id", "task_id", "task_name", "status", "output",
		"error_msg", "started_at", "finished_at",
	}
)

// schema 以SQLite语法书写，由Dialect转换
var schema = []string{
	`CREATE TABLE IF NOT EXISTS dag_run (
		id VARCHAR(64) PRIMARY KEY,
		dag_name VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		task_total INTEGER NOT NULL DEFAULT 0,
		task_failed INTEGER NOT NULL DEFAULT 0,
		task_skipped INTEGER NOT NULL DEFAULT 0,
		error_message TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_dag_run_dag_name ON dag_run(dag_name);`,
	`CREATE TABLE IF NOT EXISTS dag_task_run (
		run_id VARCHAR(64) NOT NULL,
		task_id BIGINT NOT NULL,
		task_name VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL,
		output TEXT,
		error_msg TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		PRIMARY KEY (run_id, task_id)
	);`,
}

// RunRepo RunRepository 的sqlx实现（对外导出）
type RunRepo struct {
	db      *sqlx.DB
	dialect storage.Dialect
}

// NewRunRepo 创建RunRepo并初始化表结构（对外导出）
func NewRunRepo(db *sqlx.DB, dialect storage.Dialect) (*RunRepo, error) {
	repo := &RunRepo{db: db, dialect: dialect}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return repo, nil
}

// GetDB 获取底层数据库连接（对外导出）
func (r *RunRepo) GetDB() *sqlx.DB {
	return r.db
}

// Close 关闭数据库连接（对外导出）
func (r *RunRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// initSchema 初始化数据库表结构
func (r *RunRepo) initSchema() error {
	for _, stmt := range schema {
		ddl := r.dialect.CreateTableSQL(stmt)
		if ddl == "" {
			continue
		}
		if _, err := r.db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun 保存运行记录（事务内写入运行和全部Task记录）
func (r *RunRepo) SaveRun(ctx context.Context, run *storage.RunRecord) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("运行记录ID不能为空")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	runSQL := r.dialect.UpsertSQL(runTable, runColumns, []string{"id"}, runColumns[1:])
	if _, err := tx.NamedExecContext(ctx, runSQL, toRunDAO(run)); err != nil {
		return fmt.Errorf("保存运行记录失败: RunID=%s, Error=%w", run.ID, err)
	}

	taskSQL := r.dialect.UpsertSQL(taskRunTable, taskRunColumns, []string{"run_id", "task_id"}, taskRunColumns[2:])
	for _, t := range run.Tasks {
		taskDAO := toTaskRunDAO(run.ID, t)
		if _, err := tx.NamedExecContext(ctx, taskSQL, taskDAO); err != nil {
			return fmt.Errorf("保存Task记录失败: RunID=%s, TaskID=%d, Error=%w", run.ID, t.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// GetRun 按ID查询运行记录及其Task记录
func (r *RunRepo) GetRun(ctx context.Context, id string) (*storage.RunRecord, error) {
	var runDAO dao.RunDAO
	query := r.db.Rebind(`SELECT * FROM dag_run WHERE id = ?`)
	if err := r.db.GetContext(ctx, &runDAO, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}

	var taskDAOs []dao.TaskRunDAO
	query = r.db.Rebind(`SELECT * FROM dag_task_run WHERE run_id = ? ORDER BY task_id`)
	if err := r.db.SelectContext(ctx, &taskDAOs, query, id); err != nil {
		return nil, fmt.Errorf("查询Task记录失败: %w", err)
	}

	run := fromRunDAO(&runDAO)
	run.Tasks = make([]*storage.TaskRecord, 0, len(taskDAOs))
	for i := range taskDAOs {
		run.Tasks = append(run.Tasks, fromTaskRunDAO(&taskDAOs[i]))
	}
	return run, nil
}

// ListRuns 按开始时间倒序列出运行记录
func (r *RunRepo) ListRuns(ctx context.Context, dagName string, limit int) ([]*storage.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		runDAOs []dao.RunDAO
		query   string
		args    []any
	)
	if dagName == "" {
		query = `SELECT * FROM dag_run ORDER BY started_at DESC LIMIT ?`
		args = []any{limit}
	} else {
		query = `SELECT * FROM dag_run WHERE dag_name = ? ORDER BY started_at DESC LIMIT ?`
		args = []any{dagName, limit}
	}
	if err := r.db.SelectContext(ctx, &runDAOs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}

	runs := make([]*storage.RunRecord, 0, len(runDAOs))
	for i := range runDAOs {
		runs = append(runs, fromRunDAO(&runDAOs[i]))
	}
	return runs, nil
}

func toRunDAO(run *storage.RunRecord) *dao.RunDAO {
	return &dao.RunDAO{
		ID:           run.ID,
		DagName:      run.DagName,
		Status:       run.Status,
		StartedAt:    run.StartedAt.UTC(),
		FinishedAt:   dao.NullTime(run.FinishedAt),
		TaskTotal:    run.TaskTotal,
		TaskFailed:   run.TaskFailed,
		TaskSkipped:  run.TaskSkipped,
		ErrorMessage: dao.NullString(run.ErrorMessage),
	}
}

func fromRunDAO(d *dao.RunDAO) *storage.RunRecord {
	run := &storage.RunRecord{
		ID:           d.ID,
		DagName:      d.DagName,
		Status:       d.Status,
		StartedAt:    d.StartedAt,
		TaskTotal:    d.TaskTotal,
		TaskFailed:   d.TaskFailed,
		TaskSkipped:  d.TaskSkipped,
		ErrorMessage: d.ErrorMessage.String,
	}
	if d.FinishedAt.Valid {
		run.FinishedAt = d.FinishedAt.Time
	}
	return run
}

func toTaskRunDAO(runID string, t *storage.TaskRecord) *dao.TaskRunDAO {
	return &dao.TaskRunDAO{
		RunID:      runID,
		TaskID:     int64(t.TaskID),
		TaskName:   t.TaskName,
		Status:     t.Status,
		Output:     dao.NullString(t.Output),
		ErrorMsg:   dao.NullString(t.ErrorMsg),
		StartedAt:  dao.NullTime(t.StartedAt),
		FinishedAt: dao.NullTime(t.FinishedAt),
	}
}

func fromTaskRunDAO(d *dao.TaskRunDAO) *storage.TaskRecord {
	t := &storage.TaskRecord{
		RunID:    d.RunID,
		TaskID:   uint64(d.TaskID),
		TaskName: d.TaskName,
		Status:   d.Status,
		Output:   d.Output.String,
		ErrorMsg: d.ErrorMsg.String,
	}
	if d.StartedAt.Valid {
		t.StartedAt = d.StartedAt.Time
	}
	if d.FinishedAt.Valid {
		t.FinishedAt = d.FinishedAt.Time
	}
	return t
}

// 确保实现接口
var _ storage.RunRepository = (*RunRepo)(nil)
