// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_api_prediction_duration_seconds",
			Help:    "Time taken to align and predict a batch in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"model"},
	)

	BatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_api_batch_size",
			Help:    "Number of records per prediction request",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"model"},
	)

	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_api_predictions_total",
			Help: "Total number of records classified",
		},
		[]string{"model", "class"},
	)

	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_api_request_count_total",
			Help: "Total number of prediction requests processed",
		},
		[]string{"model", "status"},
	)

	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_api_error_count",
			Help: "Error count",
		},
		[]string{"model", "kind"},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_api_auth_failures_total",
			Help: "Rejected API keys",
		},
		[]string{"reason"},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_api_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
		//we don't need model here because we know what models are being failed from error count
	)
)
