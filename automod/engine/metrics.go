package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("automod")

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "automod_event_duration_sec",
	Help: "Total duration of automod event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_event_errors",
	Help: "Number of events which failed processing",
}, []string{"type"})

var eventDuplicateCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_event_duplicates",
	Help: "Number of redelivered messages skipped",
})

var ruleHitCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_rule_hits",
	Help: "Number of messages each rule fired on",
}, []string{"rule"})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_platform_actions",
	Help: "Number of successful outbound platform actions",
}, []string{"action"})

var actionErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_platform_action_errors",
	Help: "Number of failed outbound platform actions, by error kind",
}, []string{"action", "kind"})

var actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "automod_platform_action_duration_sec",
	Help: "Duration of outbound platform action calls",
}, []string{"action"})

var caseNewCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_new_cases",
	Help: "Number of new cases persisted",
}, []string{"action"})

var casePersistErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_case_persist_errors",
	Help: "Number of cases which could not be persisted after the platform action was taken",
})

var escalationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_escalations",
	Help: "Number of warning escalations applied",
}, []string{"step"})

var notifyErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_notify_errors",
	Help: "Number of case notifications which failed to send",
}, []string{"notifier"})
