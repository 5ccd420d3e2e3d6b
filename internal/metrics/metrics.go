package metrics

import (
    "net/http"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    pagesProcessed = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "scansort",
            Name:      "pages_processed_total",
            Help:      "Total pages processed by status (ok, failed)",
        },
        []string{"status"},
    )

    ocrInvocations = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "scansort",
            Name:      "ocr_invocations_total",
            Help:      "Total OCR engine invocations by mode (text, tsv, pdf, osd)",
        },
        []string{"mode"},
    )

    ocrFailures = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "scansort",
            Name:      "ocr_failures_total",
            Help:      "Per-item failures by taxonomy kind (input, engine, fs, unknown)",
        },
        []string{"kind"},
    )

    ocrDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "scansort",
            Name:      "ocr_duration_seconds",
            Help:      "Duration of OCR engine invocations by mode",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"mode"},
    )

    dateFallbackAttempts = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "scansort",
            Name:      "date_fallback_attempts_total",
            Help:      "Region-OCR date rescue attempts by region",
        },
        []string{"region"},
    )

    dateFallbackHits = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "scansort",
            Name:      "date_fallback_hits_total",
            Help:      "Region-OCR date rescue successes by region",
        },
        []string{"region"},
    )

    extractionSentinels = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "scansort",
            Name:      "extraction_sentinels_total",
            Help:      "Fields that resolved to a sentinel value (date, document_type, title, signatory)",
        },
        []string{"field"},
    )

    bucketsCreated = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "scansort",
            Name:      "buckets_created_total",
            Help:      "Document buckets opened during grouping",
        },
    )

    bucketPages = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "scansort",
            Name:      "bucket_pages",
            Help:      "Pages per finalized document",
            Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
        },
    )

    batchDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "scansort",
            Name:      "batch_duration_seconds",
            Help:      "Wall-clock duration of whole batch runs",
            Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
        },
    )

    jobsProcessed = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "scansort",
            Name:      "jobs_processed_total",
            Help:      "Queue jobs processed by result (success, failed, dlq)",
        },
        []string{"result"},
    )

    queueDepth = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{
            Namespace: "scansort",
            Name:      "queue_depth",
            Help:      "Queue depth gauges for stream, delayed and dlq",
        },
        []string{"type"},
    )
)

// Init registers collectors. The helpers work before Init too, so batch runs
// without a metrics endpoint pay nothing for instrumentation.
func Init() {
    prometheus.MustRegister(pagesProcessed, ocrInvocations, ocrFailures, ocrDuration,
        dateFallbackAttempts, dateFallbackHits, extractionSentinels,
        bucketsCreated, bucketPages, batchDuration, jobsProcessed, queueDepth)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func PageProcessed(status string) { pagesProcessed.WithLabelValues(status).Inc() }
func OCRInvocation(mode string)   { ocrInvocations.WithLabelValues(mode).Inc() }
func Failure(kind string)         { ocrFailures.WithLabelValues(kind).Inc() }

func ObserveOCRDuration(mode string, seconds float64) {
    ocrDuration.WithLabelValues(mode).Observe(seconds)
}

func DateFallbackAttempt(region string) { dateFallbackAttempts.WithLabelValues(region).Inc() }
func DateFallbackHit(region string)     { dateFallbackHits.WithLabelValues(region).Inc() }
func ExtractionSentinel(field string)   { extractionSentinels.WithLabelValues(field).Inc() }

func BucketCreated()           { bucketsCreated.Inc() }
func ObserveBucketPages(n int) { bucketPages.Observe(float64(n)) }

func ObserveBatchDuration(seconds float64) { batchDuration.Observe(seconds) }
func JobProcessed(result string)           { jobsProcessed.WithLabelValues(result).Inc() }

func SetQueueDepth(kind string, v int64) { queueDepth.WithLabelValues(kind).Set(float64(v)) }
