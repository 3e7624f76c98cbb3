package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is the internal identity of a podcast feed. Clients
// never address it directly; they go through its GUID history.
type Subscription struct {
	ID int64 `gorm:"primaryKey"`

	Created time.Time
	Updated *time.Time
	Deleted *time.Time
}

// UserSubscription ties a user to a subscription. Deleted unset means
// currently subscribed. At most one row exists per pair.
type UserSubscription struct {
	UserID         int64 `gorm:"primaryKey"`
	SubscriptionID int64 `gorm:"primaryKey"`

	Created time.Time
	Updated *time.Time
	Deleted *time.Time
}

// SubscriptionFeed is one entry of a subscription's feed-URL history.
// Podcasts migrate hosting; the newest non-deleted row is the current
// feed.
type SubscriptionFeed struct {
	ID             int64 `gorm:"primaryKey"`
	SubscriptionID int64 `gorm:"index"`

	Feed    string
	Created time.Time
	Updated *time.Time
	Deleted *time.Time
}

// SubscriptionGuid is one entry of a subscription's GUID history. The
// oldest row is the canonical public identity, the newest the current
// one.
type SubscriptionGuid struct {
	ID             int64 `gorm:"primaryKey"`
	SubscriptionID int64 `gorm:"index"`

	Guid    uuid.UUID `gorm:"type:uuid;index"`
	Created time.Time
	Updated *time.Time
	Deleted *time.Time
}

// Reconciled is the externally visible state of one subscription,
// computed per request from the histories above.
type Reconciled struct {
	FeedURL             string     `json:"feed_url"`
	Guid                uuid.UUID  `json:"guid"`
	IsSubscribed        bool       `json:"is_subscribed"`
	SubscriptionChanged *time.Time `json:"subscription_changed"`
	NewGuid             *uuid.UUID `json:"new_guid"`
	GuidChanged         *time.Time `json:"guid_changed"`
	Deleted             *time.Time `json:"deleted"`
}

type ReconciledPage struct {
	Total         int64        `json:"total"`
	Page          int64        `json:"page"`
	PerPage       int64        `json:"per_page"`
	Subscriptions []Reconciled `json:"subscriptions"`
}

func EmptyPage() ReconciledPage {
	return ReconciledPage{
		Total:         0,
		Page:          1,
		PerPage:       0,
		Subscriptions: []Reconciled{},
	}
}

// FeedRequest is one entry of a batch add.
type FeedRequest struct {
	FeedURL string     `json:"feed_url"`
	Guid    *uuid.UUID `json:"guid"`
}

type NewSubscription struct {
	FeedURL             string    `json:"feed_url"`
	Guid                uuid.UUID `json:"guid"`
	IsSubscribed        bool      `json:"is_subscribed"`
	SubscriptionChanged time.Time `json:"subscription_changed"`
}

type FailedSubscription struct {
	FeedURL string `json:"feed_url"`
	Message string `json:"message"`
}

type NewSubscriptions struct {
	Success []NewSubscription    `json:"success"`
	Failure []FailedSubscription `json:"failure"`
}

type SubscriptionUpdate struct {
	NewFeedURL   string    `json:"new_feed_url"`
	Guid         uuid.UUID `json:"guid"`
	IsSubscribed bool      `json:"is_subscribed"`
}
