package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobRunsTotal) }

var jobRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "radpanel_job_runs_total",
		Help: "Scheduled job executions by job and result.",
	},
	[]string{"job", "result"},
)

func IncJobRun(job, result string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(result)).Inc()
}
