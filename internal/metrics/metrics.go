package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntentsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_creator_intents_dispatched_total",
		Help: "Transaction intents published to the execution queue.",
	})

	StatusEventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_creator_status_events_handled_total",
		Help: "Transaction status events consumed, by status.",
	}, []string{"status"})

	ContinuationsRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_creator_continuations_redeemed_total",
		Help: "Workflow continuation tokens redeemed.",
	})

	BatchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_creator_batches_created_total",
		Help: "Batch requests accepted.",
	})

	VaultsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_creator_vaults_rejected_total",
		Help: "Vault items whose deployment was rejected on chain.",
	})
)
