// Package metrics exposes Prometheus collectors for the referral engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// JoinOutcomes counts handled join events by guard outcome
// (fresh, duplicate, rejoin, conflict).
var JoinOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "referralhub_join_outcomes_total",
	Help: "Join events handled, partitioned by guard outcome.",
}, []string{"outcome"})

// Settlements counts completed ledger settlements by earning kind.
var Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "referralhub_settlements_total",
	Help: "Completed reward settlements, partitioned by earning kind.",
}, []string{"kind"})

// SettlementFailures counts ledger settlements that exhausted their retries.
var SettlementFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "referralhub_settlement_failures_total",
	Help: "Reward settlements that failed after retry exhaustion.",
})

// LevelUps counts level transitions granted by the progression state machine.
var LevelUps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "referralhub_level_ups_total",
	Help: "Level transitions, partitioned by target level.",
}, []string{"level"})
