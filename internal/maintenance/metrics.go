package maintenance

import "github.com/prometheus/client_golang/prometheus"

var (
	retentionRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salescope_retention_runs_total",
			Help: "Total number of upload retention runs by status.",
		},
		[]string{"status"},
	)
	uploadsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salescope_uploads_deleted_total",
			Help: "Total number of archived uploads deleted by retention runs.",
		},
	)
	uploadsBytesFreedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salescope_uploads_bytes_freed_total",
			Help: "Total bytes freed by upload retention runs.",
		},
	)
	datasetCheckRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salescope_dataset_check_runs_total",
			Help: "Total number of dataset check runs by status.",
		},
		[]string{"status"},
	)
	datasetPartsCheckedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salescope_dataset_parts_checked_total",
			Help: "Total number of dataset parts checked.",
		},
	)
	datasetMissingPartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salescope_dataset_missing_parts_total",
			Help: "Total number of missing dataset parts detected.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		retentionRunsTotal,
		uploadsDeletedTotal,
		uploadsBytesFreedTotal,
		datasetCheckRunsTotal,
		datasetPartsCheckedTotal,
		datasetMissingPartsTotal,
	)
}
