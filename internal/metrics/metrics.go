// Package metrics exposes Prometheus counters for the reorder and
// rotation paths. Served from /metrics by cmd/server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReorderOutcomes counts resolver decisions by outcome label
	// (ok, replay, version_conflict, op_id_mismatch, reject).
	ReorderOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytqm_reorder_outcomes_total",
		Help: "Reorder apply requests by resolver outcome.",
	}, []string{"outcome"})

	// Rotations counts committed rotation batches by mode.
	Rotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytqm_rotations_total",
		Help: "Committed rotation batches by mode (plain, next_last).",
	}, []string{"mode"})

	// ChatEntries counts members added from live chat keyword matches.
	ChatEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytqm_chat_entries_total",
		Help: "Members added from live chat keyword matches.",
	})

	// ChatPolls counts live chat poll cycles by result label
	// (ok, lease_held, error).
	ChatPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytqm_chat_polls_total",
		Help: "Live chat poll cycles by result.",
	}, []string{"result"})
)
