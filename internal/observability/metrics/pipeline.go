package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

const namespace = "docstruct"

// PipelineMetrics records per-stage timings and classification outcomes.
// It satisfies ports.PipelineObserver.
type PipelineMetrics struct {
	service string

	stageDuration   *prometheus.HistogramVec
	ocrFallbacks    *prometheus.CounterVec
	classifications *prometheus.CounterVec
	confidence      *prometheus.HistogramVec
	legalStructured *prometheus.CounterVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds by status.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service", "stage", "status"},
	)
	ocrFallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "ocr_fallback_total",
			Help:      "Total documents sent to OCR because extracted text was too short.",
		},
		[]string{"service", "media_type"},
	)
	classifications := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classification",
			Name:      "documents_total",
			Help:      "Total classified documents by primary category.",
		},
		[]string{"service", "category"},
	)
	confidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classification",
			Name:      "confidence",
			Help:      "Distribution of fused primary category confidence.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)

	legalStructured := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "legal",
			Name:      "documents_structured_total",
			Help:      "Total legal documents rendered as Akoma Ntoso.",
		},
		[]string{"service"},
	)

	if registerer != nil {
		registerer.MustRegister(stageDuration, ocrFallbacks, classifications, confidence, legalStructured)
	}

	return &PipelineMetrics{
		service:         service,
		stageDuration:   stageDuration,
		ocrFallbacks:    ocrFallbacks,
		classifications: classifications,
		confidence:      confidence,
		legalStructured: legalStructured,
	}
}

func (m *PipelineMetrics) ObserveStage(stage string, elapsedSeconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.stageDuration.WithLabelValues(m.service, stage, status).Observe(elapsedSeconds)
	if stage == "legal" && err == nil {
		m.legalStructured.WithLabelValues(m.service).Inc()
	}
}

func (m *PipelineMetrics) ObserveOCRFallback(mediaType string) {
	if mediaType == "" {
		mediaType = "unknown"
	}
	m.ocrFallbacks.WithLabelValues(m.service, mediaType).Inc()
}

func (m *PipelineMetrics) ObserveClassification(result domain.ClassificationResult) {
	category := string(result.PrimaryCategory)
	if category == "" {
		category = "unknown"
	}
	m.classifications.WithLabelValues(m.service, category).Inc()
	m.confidence.WithLabelValues(m.service).Observe(result.Confidence)
}
