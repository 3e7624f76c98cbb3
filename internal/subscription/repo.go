package subscription

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// GetIDByGUID resolves any GUID a subscription has ever carried, not
// just the canonical one.
func (r *Repo) GetIDByGUID(guid uuid.UUID) (int64, error) {
	var row SubscriptionGuid
	err := r.db.
		Where("guid = ?", guid).
		First(&row).
		Error
	if err != nil {
		return 0, err
	}

	return row.SubscriptionID, nil
}

func (r *Repo) GetIDByFeedURL(feed string) (int64, error) {
	var row SubscriptionFeed
	err := r.db.
		Where("feed = ?", feed).
		Order("created DESC").
		First(&row).
		Error
	if err != nil {
		return 0, err
	}

	return row.SubscriptionID, nil
}

func (r *Repo) GetFeedHistory(subscriptionID int64) ([]SubscriptionFeed, error) {
	var rows []SubscriptionFeed
	err := r.db.
		Where("subscription_id = ?", subscriptionID).
		Order("created ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("get feed history: %d: %w", subscriptionID, err)
	}

	return rows, nil
}

func (r *Repo) GetGuidHistory(subscriptionID int64) ([]SubscriptionGuid, error) {
	var rows []SubscriptionGuid
	err := r.db.
		Where("subscription_id = ?", subscriptionID).
		Order("created ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("get guid history: %d: %w", subscriptionID, err)
	}

	return rows, nil
}

func (r *Repo) GetUserSubscription(userID, subscriptionID int64) (*UserSubscription, error) {
	var row UserSubscription
	err := r.db.
		Where("user_id = ? AND subscription_id = ?", userID, subscriptionID).
		First(&row).
		Error
	if err != nil {
		return nil, err
	}

	return &row, nil
}

// ListUserSubscriptionIDs returns the user's subscription ids newest
// first. The since filter keeps the protocol's observed semantics, see
// ChangedBeforeFilter.
func (r *Repo) ListUserSubscriptionIDs(userID int64, page, perPage int, since *time.Time) ([]int64, error) {
	filters := []Filter{
		UserIDFilter{ID: userID},
		OrderByCreatedDescFilter{},
		PageFilter{Offset: (page - 1) * perPage, Limit: perPage},
	}
	if since != nil {
		filters = append(filters, ChangedBeforeFilter{Since: *since})
	}

	db := r.db.Model(&UserSubscription{})
	for _, f := range filters {
		db = f.Apply(db)
	}

	var ids []int64
	if err := db.Pluck("subscription_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list user subscriptions: %d: %w", userID, err)
	}

	return ids, nil
}

// CreateWithHistory inserts a subscription together with its first
// feed and guid rows and the user association, atomically.
func (r *Repo) CreateWithHistory(userID int64, feed string, guid uuid.UUID, now time.Time) (int64, error) {
	sub := Subscription{Created: now}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sub).Error; err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}

		if err := tx.Create(&SubscriptionFeed{
			SubscriptionID: sub.ID,
			Feed:           feed,
			Created:        now,
		}).Error; err != nil {
			return fmt.Errorf("create feed row: %w", err)
		}

		if err := tx.Create(&SubscriptionGuid{
			SubscriptionID: sub.ID,
			Guid:           guid,
			Created:        now,
		}).Error; err != nil {
			return fmt.Errorf("create guid row: %w", err)
		}

		if err := tx.Create(&UserSubscription{
			UserID:         userID,
			SubscriptionID: sub.ID,
			Created:        now,
		}).Error; err != nil {
			return fmt.Errorf("create user subscription: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return sub.ID, nil
}

func (r *Repo) CreateUserSubscription(userID, subscriptionID int64, now time.Time) error {
	return r.db.Create(&UserSubscription{
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Created:        now,
	}).Error
}

// Resubscribe clears the association's deleted mark.
func (r *Repo) Resubscribe(userID, subscriptionID int64, now time.Time) error {
	return r.db.
		Model(&UserSubscription{}).
		Where("user_id = ? AND subscription_id = ?", userID, subscriptionID).
		Updates(map[string]any{
			"updated": now,
			"deleted": nil,
		}).
		Error
}

// SetUnsubscribed marks the association deleted. Used by the deletion
// worker and by explicit unsubscribes.
func (r *Repo) SetUnsubscribed(userID, subscriptionID int64, now time.Time) error {
	res := r.db.
		Model(&UserSubscription{}).
		Where("user_id = ? AND subscription_id = ?", userID, subscriptionID).
		Updates(map[string]any{
			"updated": now,
			"deleted": now,
		})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *Repo) AddFeed(subscriptionID int64, feed string, now time.Time) error {
	return r.db.Create(&SubscriptionFeed{
		SubscriptionID: subscriptionID,
		Feed:           feed,
		Created:        now,
	}).Error
}

func (r *Repo) AddGuid(subscriptionID int64, guid uuid.UUID, now time.Time) error {
	return r.db.Create(&SubscriptionGuid{
		SubscriptionID: subscriptionID,
		Guid:           guid,
		Created:        now,
		Updated:        &now,
	}).Error
}
