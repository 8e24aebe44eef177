package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submissions counts resolved submissions by outcome
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xuexin",
		Name:      "submissions_total",
		Help:      "Student record submissions by outcome.",
	}, []string{"outcome"})

	// Uploads counts stored photos by detected extension
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xuexin",
		Name:      "uploads_total",
		Help:      "Stored admission photos by detected format.",
	}, []string{"ext"})

	// CredentialImages counts generated collection-code images
	CredentialImages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "xuexin",
		Name:      "credential_images_total",
		Help:      "Generated collection-code images.",
	})

	// RateLimited counts rejected requests per limited route
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xuexin",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	}, []string{"route"})
)
