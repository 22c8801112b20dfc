package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"radpanel/internal/config"
	"radpanel/internal/metrics"
	"radpanel/internal/models"
	"radpanel/internal/repository"
	"radpanel/internal/service"
)

const (
	JobExpire         = "expire_orders"
	JobSync           = "sync_usage"
	JobCleanup        = "cleanup_receipts"
	JobNegativeCredit = "negative_credit"

	jobTimeout = 10 * time.Minute
)

// ErrUnknownJob is returned by Run for a name that is not scheduled.
var ErrUnknownJob = errors.New("unknown job")

// Job is one scheduled task. Run returns how many rows it touched.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (int, error)
}

// Scheduler manages all cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   []Job
	runs   *repository.JobRunRepository
	logger *zap.Logger
	now    func() time.Time
}

// New creates a new cron scheduler with the jobs enabled in cfg.
func New(cfg *config.Config, svc *service.Services, runs *repository.JobRunRepository, logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		runs:   runs,
		logger: logger,
		now:    time.Now,
	}
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
	)
	s.jobs = defaultJobs(cfg, svc)
	return s
}

func defaultJobs(cfg *config.Config, svc *service.Services) []Job {
	jobs := []Job{
		{
			Name: JobExpire,
			Spec: cfg.Jobs.ExpireSpec,
			Run: func(ctx context.Context) (int, error) {
				n, err := svc.Orders.ExpireDue(ctx)
				return int(n), err
			},
		},
		{
			Name: JobSync,
			Spec: cfg.Jobs.SyncSpec,
			Run:  svc.Orders.SyncActive,
		},
		{
			Name: JobCleanup,
			Spec: cfg.Jobs.CleanupSpec,
			Run: func(context.Context) (int, error) {
				return svc.Payments.CleanupReceipts(cfg.Upload.Retention)
			},
		},
	}
	if cfg.Jobs.NegativeCreditEnabled {
		grace := cfg.Jobs.NegativeCreditGrace
		jobs = append(jobs, Job{
			Name: JobNegativeCredit,
			Spec: cfg.Jobs.NegativeCreditSpec,
			Run: func(ctx context.Context) (int, error) {
				return svc.Orders.EnforceNegativeCredit(ctx, grace)
			},
		})
	}
	return jobs
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []Job {
	return s.jobs
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting cron scheduler...")

	for _, job := range s.jobs {
		job := job
		if _, err := s.cron.AddFunc(job.Spec, func() { s.execute(job) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
		}
		s.logger.Info("Scheduled job", zap.String("job", job.Name), zap.String("spec", job.Spec))
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started")
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Run executes a job by name outside its schedule.
func (s *Scheduler) Run(name string) (*models.JobRun, error) {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.execute(job), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

// execute runs one job, records the run and never lets a panic escape.
func (s *Scheduler) execute(job Job) (run *models.JobRun) {
	run = &models.JobRun{Job: job.Name, StartedAt: s.now().UTC()}
	defer s.finish(run)
	defer s.recoverFromPanic(run)

	s.logger.Debug("Running job", zap.String("job", job.Name))

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := job.Run(ctx)
	run.Affected = n
	if err != nil {
		run.Status = models.JobRunFailed
		run.LastError = err.Error()
		return run
	}
	run.Status = models.JobRunOK
	return run
}

func (s *Scheduler) finish(run *models.JobRun) {
	run.FinishedAt = s.now().UTC()
	metrics.IncJobRun(run.Job, string(run.Status))

	fields := []zap.Field{
		zap.String("job", run.Job),
		zap.Int("affected", run.Affected),
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
	}
	if run.Status == models.JobRunFailed {
		s.logger.Error("Cron job failed", append(fields, zap.String("error", run.LastError))...)
	} else if run.Affected > 0 {
		s.logger.Info("Cron job finished", fields...)
	}

	if s.runs == nil {
		return
	}
	if err := s.runs.Create(run); err != nil {
		s.logger.Warn("Failed to record job run", zap.String("job", run.Job), zap.Error(err))
	}
}

func (s *Scheduler) recoverFromPanic(run *models.JobRun) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", run.Job), zap.Any("error", r))
		run.Status = models.JobRunFailed
		run.LastError = fmt.Sprintf("panic: %v", r)
	}
}

// cronLogger routes robfig/cron's own messages to zap.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().With(zap.Error(err)).Errorw(msg, keysAndValues...)
}
