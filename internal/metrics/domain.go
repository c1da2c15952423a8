package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resumeSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resume",
			Name:      "saves_total",
			Help:      "简历保存次数（created / updated）。",
		},
		[]string{"mode"},
	)

	blobOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blob",
			Name:      "operations_total",
			Help:      "对象存储上传与删除次数。",
		},
		[]string{"op", "result"},
	)

	autosaveOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autosave",
			Name:      "outcomes_total",
			Help:      "自动保存结果：saved / skipped / failed。",
		},
		[]string{"outcome"},
	)
)

func ResumeSaved(created bool) {
	if created {
		resumeSaves.WithLabelValues("created").Inc()
		return
	}
	resumeSaves.WithLabelValues("updated").Inc()
}

// BlobOp 记录一次对象存储操作，op 为 upload 或 delete。
func BlobOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	blobOps.WithLabelValues(op, result).Inc()
}

func AutosaveOutcome(outcome string) {
	autosaveOutcomes.WithLabelValues(outcome).Inc()
}
