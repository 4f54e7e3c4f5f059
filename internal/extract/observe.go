package extract

import (
	"time"

	"github.com/dgallion1/recgest/internal/metrics"
)

func observe(stats *LLMStats, provider string, d time.Duration, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case IsRetryable(err):
		outcome = "retryable"
	default:
		outcome = "error"
	}
	stats.Record(d, err != nil)
	metrics.LLMRequests.WithLabelValues(provider, outcome).Inc()
	metrics.LLMDuration.WithLabelValues(provider).Observe(d.Seconds())
}
