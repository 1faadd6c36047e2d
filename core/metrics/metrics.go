// Package metrics provides Prometheus metrics for the cloud-disk sync engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pull metrics
	pullActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clouddisk_sync_pull_actions_total",
			Help: "Pulled records by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	pullBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clouddisk_sync_pull_batch_duration_seconds",
			Help:    "Time to apply one pulled batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	conflictRenamesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clouddisk_sync_conflict_renames_total",
			Help: "Existing siblings renamed to make room for a pulled record",
		},
	)

	// Push metrics
	pushRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clouddisk_sync_push_records_total",
			Help: "Records handed to the uploader by batch kind",
		},
		[]string{"kind"},
	)

	pushAcksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clouddisk_sync_push_acks_total",
			Help: "Server acknowledgements by batch kind and status",
		},
		[]string{"kind", "status"},
	)

	// Local state metrics
	dualWriteRollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clouddisk_sync_dual_write_rollbacks_total",
			Help: "Database transactions rolled back because the paired dentry or file step failed",
		},
		[]string{"op"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clouddisk_sync_notifications_total",
			Help: "Change notifications emitted by type",
		},
		[]string{"type"},
	)

	downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clouddisk_sync_downloads_total",
			Help: "Content downloads by status",
		},
		[]string{"status"},
	)

	downloadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clouddisk_sync_download_bytes_total",
			Help: "Bytes written into the local content cache",
		},
	)
)

// RecordPullAction counts one applied (or failed) pull action.
func RecordPullAction(action, outcome string) {
	pullActionsTotal.WithLabelValues(action, outcome).Inc()
}

// ObservePullBatch records the duration of a pull batch.
func ObservePullBatch(d time.Duration) {
	pullBatchDuration.Observe(d.Seconds())
}

// RecordConflictRename counts one conflict rename.
func RecordConflictRename() {
	conflictRenamesTotal.Inc()
}

// RecordPushRecords counts records returned by a push getter.
func RecordPushRecords(kind string, n int) {
	pushRecordsTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordPushAck counts one acknowledgement.
func RecordPushAck(kind string, ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	pushAcksTotal.WithLabelValues(kind, status).Inc()
}

// RecordRollback counts a rolled back dual write.
func RecordRollback(op string) {
	dualWriteRollbacksTotal.WithLabelValues(op).Inc()
}

// RecordNotification counts one emitted notification.
func RecordNotification(notifyType string) {
	notificationsTotal.WithLabelValues(notifyType).Inc()
}

// RecordDownload counts one download attempt and its size on success.
func RecordDownload(ok bool, bytes int64) {
	if !ok {
		downloadsTotal.WithLabelValues("failure").Inc()
		return
	}
	downloadsTotal.WithLabelValues("success").Inc()
	downloadBytes.Add(float64(bytes))
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
