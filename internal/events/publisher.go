package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	SubjectSubscribed   = "podsync.subscriptions.subscribed"
	SubjectUnsubscribed = "podsync.subscriptions.unsubscribed"
	SubjectDeleted      = "podsync.subscriptions.deleted"
)

type SubscriptionPayload struct {
	UserID         int64     `json:"user_id"`
	SubscriptionID int64     `json:"subscription_id"`
	Guid           uuid.UUID `json:"guid,omitempty"`
	At             time.Time `json:"at"`
}

type DeletionPayload struct {
	UserID         int64     `json:"user_id"`
	SubscriptionID int64     `json:"subscription_id"`
	TaskID         int64     `json:"task_id"`
	Status         string    `json:"status"`
	At             time.Time `json:"at"`
}

// Publisher pushes lifecycle events to NATS. Publishing is best
// effort: a failed publish is logged, never surfaced to the caller,
// because the write it describes has already committed.
type Publisher struct {
	nc *nats.Conn
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

func (p *Publisher) PublishSubscribed(userID, subscriptionID int64, guid uuid.UUID) {
	p.publish(SubjectSubscribed, SubscriptionPayload{
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Guid:           guid,
		At:             time.Now(),
	})
}

func (p *Publisher) PublishUnsubscribed(userID, subscriptionID int64, guid uuid.UUID) {
	p.publish(SubjectUnsubscribed, SubscriptionPayload{
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Guid:           guid,
		At:             time.Now(),
	})
}

func (p *Publisher) PublishDeleted(userID, subscriptionID, taskID int64, status string) {
	p.publish(SubjectDeleted, DeletionPayload{
		UserID:         userID,
		SubscriptionID: subscriptionID,
		TaskID:         taskID,
		Status:         status,
		At:             time.Now(),
	})
}

func (p *Publisher) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("marshal event")

		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("publish event")
	}
}
