package engine

import (
	"github.com/LENAX/dag-engine/pkg/storage"
)

// ToRunRecord 将运行结果转换为可持久化的运行记录（对外导出）
func ToRunRecord(r *Result) *storage.RunRecord {
	rec := &storage.RunRecord{
		ID:           r.RunID,
		DagName:      r.DagName,
		Status:       storage.RunStatusSuccess,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		TaskTotal:    r.Len(),
		TaskFailed:   len(r.Failed()),
		TaskSkipped:  len(r.Skipped()),
		ErrorMessage: r.FirstError(),
		Tasks:        make([]*storage.TaskRecord, 0, r.Len()),
	}
	if !r.OK() {
		rec.Status = storage.RunStatusFailed
	}
	for _, m := range r.Messages {
		tr := &storage.TaskRecord{
			RunID:      r.RunID,
			TaskID:     uint64(m.TaskID),
			TaskName:   m.TaskName,
			Status:     string(m.Status),
			ErrorMsg:   m.ToErrorMessage(),
			StartedAt:  m.StartedAt,
			FinishedAt: m.FinishedAt,
		}
		if m.Status == StatusSucceeded {
			tr.Output = m.Output.String()
		}
		rec.Tasks = append(rec.Tasks, tr)
	}
	return rec
}
