package handler

import (
	"time"

	"github.com/LENAX/dag-engine/pkg/api/dto"
	"github.com/LENAX/dag-engine/pkg/core/engine"
	"github.com/LENAX/dag-engine/pkg/core/task"
	"github.com/LENAX/dag-engine/pkg/storage"
)

func toUint64s(ids []task.ID) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		out = append(out, uint64(id))
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// toRunResult 将运行结果转换为响应
func toRunResult(r *engine.Result) dto.RunResult {
	status := storage.RunStatusSuccess
	if !r.OK() {
		status = storage.RunStatusFailed
	}
	out := dto.RunResult{
		RunID:      r.RunID,
		DagName:    r.DagName,
		Status:     status,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Duration:   formatDuration(r.Duration()),
		Succeeded:  len(r.Succeeded()),
		Failed:     len(r.Failed()),
		Skipped:    len(r.Skipped()),
		Tasks:      make([]dto.TaskResult, 0, r.Len()),
	}
	for _, m := range r.Messages {
		item := dto.TaskResult{
			TaskID:       uint64(m.TaskID),
			TaskName:     m.TaskName,
			Status:       string(m.Status),
			ErrorMessage: m.ToErrorMessage(),
			StartedAt:    timePtr(m.StartedAt),
			FinishedAt:   timePtr(m.FinishedAt),
		}
		if m.IsSuccess() {
			item.Output = m.Output.String()
		}
		if d := m.Duration(); d > 0 {
			item.Duration = formatDuration(d)
		}
		out.Tasks = append(out.Tasks, item)
	}
	return out
}

// toRunResultFromRecord 将历史记录转换为响应
func toRunResultFromRecord(rec *storage.RunRecord) dto.RunResult {
	out := dto.RunResult{
		RunID:      rec.ID,
		DagName:    rec.DagName,
		Status:     rec.Status,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		Duration:   formatDuration(rec.Duration()),
		Failed:     rec.TaskFailed,
		Skipped:    rec.TaskSkipped,
		Succeeded:  rec.TaskTotal - rec.TaskFailed - rec.TaskSkipped,
		Tasks:      make([]dto.TaskResult, 0, len(rec.Tasks)),
	}
	for _, t := range rec.Tasks {
		item := dto.TaskResult{
			TaskID:       t.TaskID,
			TaskName:     t.TaskName,
			Status:       t.Status,
			Output:       t.Output,
			ErrorMessage: t.ErrorMsg,
			StartedAt:    timePtr(t.StartedAt),
			FinishedAt:   timePtr(t.FinishedAt),
		}
		if !t.StartedAt.IsZero() && !t.FinishedAt.IsZero() {
			item.Duration = formatDuration(t.FinishedAt.Sub(t.StartedAt))
		}
		out.Tasks = append(out.Tasks, item)
	}
	return out
}

func toRunSummary(rec *storage.RunRecord) dto.RunSummary {
	return dto.RunSummary{
		RunID:        rec.ID,
		DagName:      rec.DagName,
		Status:       rec.Status,
		StartedAt:    rec.StartedAt,
		Duration:     formatDuration(rec.Duration()),
		TaskTotal:    rec.TaskTotal,
		TaskFailed:   rec.TaskFailed,
		TaskSkipped:  rec.TaskSkipped,
		ErrorMessage: rec.ErrorMessage,
	}
}
