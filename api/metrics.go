package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrs_renders_total",
		Help: "Successful quota set renders, by environment",
	}, []string{"environment"})

	manifestsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrs_manifests_rendered_total",
		Help: "ResourceQuota documents emitted, by environment",
	}, []string{"environment"})

	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrs_validation_failures_total",
		Help: "Quota sets rejected by schema validation",
	}, []string{"environment"})
)
