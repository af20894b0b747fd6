package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DeltasApplied counts trade deltas successfully applied to the feed.
	DeltasApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pricefeed",
		Name:      "deltas_applied_total",
		Help:      "Trade deltas applied to the candle feed.",
	})

	// DeltasRejected counts deltas refused by contract checks (cycle
	// regression, overlapping suffix).
	DeltasRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pricefeed",
		Name:      "deltas_rejected_total",
		Help:      "Trade deltas rejected by precondition checks.",
	})

	// CandlesEmitted counts candles produced by resampling across all deltas.
	CandlesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pricefeed",
		Name:      "candles_emitted_total",
		Help:      "Candles emitted by the resampler.",
	})

	// TruncatedRows counts candles discarded by correction windows.
	TruncatedRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pricefeed",
		Name:      "truncated_rows_total",
		Help:      "Candles discarded when applying correction windows.",
	})

	// LookupMisses counts tolerant price lookups that found no sample.
	LookupMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pricefeed",
		Name:      "price_lookup_misses_total",
		Help:      "Tolerant price lookups outside the requested tolerance.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
