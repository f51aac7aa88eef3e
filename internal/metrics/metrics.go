// Package metrics declares the prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "extmailer"

var (
	// SectionDecisions counts visibility decisions per section and outcome.
	SectionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Namespace: namespace,
		Name:      "section_decisions_total",
		Help:      "Visibility decisions of global configuration sections.",
	}, []string{"section", "decision"})

	// Submissions counts configuration submissions per section and result.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Namespace: namespace,
		Name:      "configuration_submissions_total",
		Help:      "Global configuration submissions, by section and result.",
	}, []string{"section", "result"})

	// Logins counts sign in attempts per auth source and result.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Sign in attempts, by auth source and result.",
	}, []string{"source", "result"})
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)
