package models

import "time"

type JobRunStatus string

const (
	JobRunOK     JobRunStatus = "ok"
	JobRunFailed JobRunStatus = "failed"
)

// JobRun records one execution of a scheduled job.
type JobRun struct {
	ID         uint         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Job        string       `gorm:"column:job;size:50;index:idx_job_runs_job_started,priority:1" json:"job"`
	Status     JobRunStatus `gorm:"column:status;size:20" json:"status"`
	Affected   int          `gorm:"column:affected;default:0" json:"affected"`
	LastError  string       `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	StartedAt  time.Time    `gorm:"column:started_at;index:idx_job_runs_job_started,priority:2" json:"started_at"`
	FinishedAt time.Time    `gorm:"column:finished_at" json:"finished_at"`
}

func (JobRun) TableName() string {
	return "job_runs"
}
