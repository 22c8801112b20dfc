package repository

import (
	"gorm.io/gorm"

	"radpanel/internal/models"
)

// JobRunRepository records scheduler executions.
type JobRunRepository struct {
	db *gorm.DB
}

func NewJobRunRepository(db *gorm.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

func (r *JobRunRepository) Create(run *models.JobRun) error {
	return r.db.Create(run).Error
}

// LatestByJob returns the most recent run of a job.
func (r *JobRunRepository) LatestByJob(job string) (*models.JobRun, error) {
	var run models.JobRun
	err := r.db.Where("job = ?", job).Order("started_at DESC, id DESC").First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// FindAll returns runs newest first, optionally for one job.
func (r *JobRunRepository) FindAll(limit, page int, job string) ([]models.JobRun, int64, error) {
	var runs []models.JobRun
	var total int64

	db := r.db.Model(&models.JobRun{})
	if job != "" {
		db = db.Where("job = ?", job)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, _, offset := pageBounds(limit, page)
	if err := db.Limit(limit).Offset(offset).Order("started_at DESC, id DESC").Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
