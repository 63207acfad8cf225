package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application-level prometheus collectors. The HTTP-level
// metrics come from the fiberprometheus middleware; these cover the managers.
type Metrics struct {
	ConversationTurns prometheus.Counter
	NotesGenerated    prometheus.Counter
	CacheRequests     *prometheus.CounterVec
}

// NewMetrics registers the collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		ConversationTurns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aetherscribe_conversation_turns_total",
			Help: "Completed conversation turns (user message plus assistant reply).",
		}),
		NotesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aetherscribe_notes_generated_total",
			Help: "Scribe notes generated from the transcript.",
		}),
		CacheRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aetherscribe_cache_requests_total",
			Help: "Asset gateway requests by strategy and result.",
		}, []string{"strategy", "result"}),
	}
}
