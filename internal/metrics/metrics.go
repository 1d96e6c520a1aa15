package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AutosaveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "review_autosave_total", Help: "Debounced rubric saves by outcome"},
		[]string{"outcome"},
	)
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "review_submissions_total", Help: "Review submissions by outcome"},
		[]string{"outcome"},
	)
	ExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "review_exports_total", Help: "PDF exports by cache result"},
		[]string{"cache"},
	)
	CheckoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "checkout_total", Help: "Checkout requests by tier"},
		[]string{"tier"},
	)
	TierCorrections = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "checkout_tier_corrections_total", Help: "Amounts replaced by tier inference"},
	)
	PurgedScripts = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scripts_purged_total", Help: "Scripts removed through the cascade delete"},
	)
	OpenDrafts = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "review_open_drafts", Help: "Rubric forms held in memory"},
	)
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected by the token bucket"},
		[]string{"scope"},
	)
	ResponseCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_response_cache_total", Help: "Cached endpoint lookups by result"},
		[]string{"result"},
	)
	AuditViolations = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "integrity_audit_violations", Help: "Rows failing the last integrity audit"},
	)
)

func Register() {
	prometheus.MustRegister(
		AutosaveTotal, SubmissionsTotal, ExportsTotal, CheckoutTotal,
		TierCorrections, PurgedScripts, OpenDrafts, AuditViolations,
		RateLimited, ResponseCache,
	)
}
