// Prometheus instrumentation for the conversational core. Label sets stay
// small and bounded: event kinds, command words, and action verbs are all
// fixed vocabularies.
package bot

import "github.com/prometheus/client_golang/prometheus"

var (
	// botUpdates counts normalized inbound events by kind.
	botUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of inbound chat events handled.",
		},
		[]string{"kind"},
	)

	// botCommands counts dispatched slash commands by command word.
	// Unrecognized words collapse to a single "unknown" label value.
	botCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of commands dispatched.",
		},
		[]string{"command"},
	)

	// botActions counts dispatched button actions by verb.
	botActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_actions_total",
			Help: "Total number of button actions dispatched.",
		},
		[]string{"verb"},
	)

	// botMalformedActions counts button payloads that failed to parse.
	botMalformedActions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_malformed_actions_total",
			Help: "Total number of unparseable button payloads.",
		},
	)

	// botUnauthorized counts denied admin-only invocations.
	botUnauthorized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_unauthorized_total",
			Help: "Total number of admin actions denied by the allow-list.",
		},
	)

	// botCatalogLookups counts catalog calls by operation and outcome.
	botCatalogLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_catalog_lookups_total",
			Help: "Total number of catalog lookups by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	// botNotifications counts availability notices by delivery outcome.
	botNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_notifications_total",
			Help: "Total number of availability notices by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		botUpdates,
		botCommands,
		botActions,
		botMalformedActions,
		botUnauthorized,
		botCatalogLookups,
		botNotifications,
	)
}
