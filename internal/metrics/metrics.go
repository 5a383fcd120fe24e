package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis outcomes recorded on AnalysesTotal.
const (
	OutcomeSuccess       = "success"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeModelConfig   = "model_config"
	OutcomeModelFailure  = "model_failure"
	OutcomeInternalError = "internal_error"
)

// File failure stages recorded on FileFailures.
const (
	StageUpload  = "upload"
	StageExtract = "extract"
)

var (
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fnol_analyses_total",
			Help: "Total number of claim analyses by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	FileFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fnol_file_failures_total",
			Help: "Total number of per-file failures by pipeline stage",
		},
		[]string{"stage"},
	)

	ModelInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fnol_model_invocation_seconds",
			Help:    "Duration of model invocations in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"model"},
	)

	AssessmentScores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fnol_assessment_scores_total",
			Help: "Total number of assessments by fraud confidence score",
		},
		[]string{"score"},
	)
)
