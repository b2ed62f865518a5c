package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"checkpoint/internal/attendance"
	"checkpoint/internal/compliance"
	"checkpoint/internal/dailycode"
)

// Metrics holds all Prometheus metrics for the application. It satisfies the
// counter interfaces of the attendance, privacy, and retention packages.
type Metrics struct {
	Redemptions      *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
	Compliance       *prometheus.CounterVec
	AuditFailures    prometheus.Counter
	RetentionDeleted prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		Redemptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_redemptions_total",
			Help: "Daily code redemptions recorded, by event kind",
		}, []string{"kind"}),
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_rejections_total",
			Help: "Refused redemption attempts, by stable reason",
		}, []string{"reason"}),
		Compliance: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_compliance_classifications_total",
			Help: "Address compliance classifications of recorded events",
		}, []string{"status"}),
		AuditFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_audit_failures_total",
			Help: "Audit entries dropped or failed to persist",
		}),
		RetentionDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_retention_deleted_rows_total",
			Help: "Audit log rows removed by the retention scheduler",
		}),
	}
}

func (m *Metrics) RecordRedemption(kind dailycode.Kind) {
	m.Redemptions.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) RecordRejection(reason attendance.Reason) {
	m.Rejections.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) RecordCompliance(status compliance.Status) {
	m.Compliance.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) IncrementAuditFailures() {
	m.AuditFailures.Inc()
}

func (m *Metrics) AddRetentionDeleted(count int64) {
	m.RetentionDeleted.Add(float64(count))
}
