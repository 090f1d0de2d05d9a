package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const (
	PatternRoleInvitation  = "role-invitation"
	PatternOwnerSummary    = "owner-summary"
	PatternStartMonitoring = "start-monitoring"
)

// Publisher is the queue the delivery service consumes from.
type Publisher interface {
	Publish(ctx context.Context, message []byte) error
}

// Notifier publishes delivery triggers for external services. All of its
// callers treat these as fire-and-forget: a failed trigger is logged by the
// caller and never rolls back the state change that caused it.
type Notifier struct {
	notifications Publisher
	monitoring    Publisher
	log           *slog.Logger
}

type RoleInvitationData struct {
	ItemID       uuid.UUID `json:"item_id"`
	Email        string    `json:"email"`
	ClaimAddress string    `json:"claim_address"`
}

type OwnerSummaryData struct {
	ItemID       uuid.UUID `json:"item_id"`
	OwnerID      string    `json:"owner_id"`
	VaultAddress string    `json:"vault_address"`
}

type StartMonitoringData struct {
	ItemID       uuid.UUID `json:"item_id"`
	VaultAddress string    `json:"vault_address,omitempty"`
}

type Notification struct {
	Pattern string `json:"pattern"`
	Data    any    `json:"data"`
}

func New(notifications, monitoring Publisher) *Notifier {
	return &Notifier{
		notifications: notifications,
		monitoring:    monitoring,
		log:           slog.With("component", "notifier"),
	}
}

// RoleInvitation asks the delivery service to invite a role holder to claim
// their resolved role vault.
func (n *Notifier) RoleInvitation(ctx context.Context, data RoleInvitationData) error {
	return n.publish(ctx, n.notifications, PatternRoleInvitation, data)
}

// OwnerSummary tells the batch owner their vault is live.
func (n *Notifier) OwnerSummary(ctx context.Context, data OwnerSummaryData) error {
	return n.publish(ctx, n.notifications, PatternOwnerSummary, data)
}

// StartMonitoring hands a freshly created vault to the monitoring service.
func (n *Notifier) StartMonitoring(ctx context.Context, data StartMonitoringData) error {
	return n.publish(ctx, n.monitoring, PatternStartMonitoring, data)
}

func (n *Notifier) publish(ctx context.Context, target Publisher, pattern string,
	data any) error {

	payload, err := json.Marshal(Notification{Pattern: pattern, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s notification: %w", pattern, err)
	}

	n.log.Debug("Sending notification", "pattern", pattern, "payload", payload)

	if err := target.Publish(ctx, payload); err != nil {
		return fmt.Errorf("enqueue %s notification: %w", pattern, err)
	}

	return nil
}
