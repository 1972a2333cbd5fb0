package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ruleApplications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qlower_rule_applications_total",
		Help: "Rewrites committed, by rule",
	}, []string{"rule"})

	ruleBacktracks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qlower_backtracks_total",
		Help: "Recognized candidates discarded because their output could not be lowered, by rule",
	}, []string{"rule"})

	commandsForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qlower_commands_forwarded_total",
		Help: "Commands forwarded to the next stage after lowering",
	})

	rewriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qlower_rewrite_failures_total",
		Help: "Top-level commands that failed to lower, by reason",
	}, []string{"reason"})
)

const (
	reasonNoDecomposition = "no_decomposition"
	reasonExhausted       = "depth_exhausted"
	reasonRuleError       = "rule_error"
	reasonSinkError       = "sink_error"
)
