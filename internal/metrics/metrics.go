package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg             *prometheus.Registry
	Written         *prometheus.CounterVec
	Failed          *prometheus.CounterVec
	Skipped         *prometheus.CounterVec
	PaymentOutcomes *prometheus.CounterVec
	ExportRows      *prometheus.CounterVec
	UploadFailures  prometheus.Counter
	ScanPages       prometheus.Histogram
	Restored        *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	written := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "shopseed_records_written_total"}, []string{"table"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "shopseed_records_failed_total"}, []string{"table", "op"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "shopseed_records_skipped_total"}, []string{"table"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "shopseed_payment_outcomes_total"}, []string{"outcome"})
	exportRows := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "shopseed_export_rows_total"}, []string{"table"})
	uploadFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "shopseed_upload_failures_total"})
	scanPages := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shopseed_scan_pages",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	restored := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "shopseed_restore_records_total"}, []string{"source", "result"})

	r.MustRegister(written, failed, skipped, outcomes, exportRows, uploadFailures, scanPages, restored)
	return &Registry{
		reg:             r,
		Written:         written,
		Failed:          failed,
		Skipped:         skipped,
		PaymentOutcomes: outcomes,
		ExportRows:      exportRows,
		UploadFailures:  uploadFailures,
		ScanPages:       scanPages,
		Restored:        restored,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// WriteTextfile dumps the current values in the node-exporter textfile format,
// for batch runs that exit before anything could scrape them.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
