package screening

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resume_screener"

// Metrics counts what happened to the documents of screening runs.
type Metrics struct {
	documents    *prometheus.CounterVec
	methods      *prometheus.CounterVec
	secondaryOCR prometheus.Counter
	lowConf      prometheus.Counter
	duration     prometheus.Histogram
	gatherer     prometheus.Gatherer
}

// NewMetrics registers the screening collectors on reg.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed, by outcome status.",
		}, []string{"status"}),
		methods: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Successful text acquisitions, by method.",
		}, []string{"method"}),
		secondaryOCR: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secondary_ocr_total",
			Help:      "Secondary OCR attempts for low confidence text.",
		}),
		lowConf: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_confidence_total",
			Help:      "Documents whose text stayed below the minimum length.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Time spent acquiring and extracting one document.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{m.documents, m.methods, m.secondaryOCR, m.lowConf, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register screening metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) observe(o Outcome) {
	if m == nil {
		return
	}

	m.documents.WithLabelValues(string(o.Status())).Inc()
	if o.Text != nil {
		m.methods.WithLabelValues(string(o.Text.Method)).Inc()
	}
	if o.SecondaryOCR {
		m.secondaryOCR.Inc()
	}
	if o.Warning != nil {
		m.lowConf.Inc()
	}
	if o.Duration > 0 {
		m.duration.Observe(o.Duration.Seconds())
	}
}

// WriteTextfile writes every metric of the registry in the text exposition
// format, atomically, for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
