package subscription

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	defaultPage    = 1
	defaultPerPage = 50
	maxPerPage     = 1000
)

var (
	// ErrNotFound covers unknown GUIDs, foreign subscriptions and
	// unpresentable rows alike; callers must not be able to tell
	// them apart.
	ErrNotFound = errors.New("subscription not found")
	// ErrGone marks a subscription that exists but has been
	// unsubscribed.
	ErrGone = errors.New("subscription is gone")
	// ErrValidation marks malformed client input.
	ErrValidation = errors.New("validation failed")
)

type DataProvider interface {
	GetIDByGUID(guid uuid.UUID) (int64, error)
	GetIDByFeedURL(feed string) (int64, error)
	GetFeedHistory(subscriptionID int64) ([]SubscriptionFeed, error)
	GetGuidHistory(subscriptionID int64) ([]SubscriptionGuid, error)
	GetUserSubscription(userID, subscriptionID int64) (*UserSubscription, error)
	ListUserSubscriptionIDs(userID int64, page, perPage int, since *time.Time) ([]int64, error)
	CreateWithHistory(userID int64, feed string, guid uuid.UUID, now time.Time) (int64, error)
	CreateUserSubscription(userID, subscriptionID int64, now time.Time) error
	Resubscribe(userID, subscriptionID int64, now time.Time) error
	SetUnsubscribed(userID, subscriptionID int64, now time.Time) error
	AddFeed(subscriptionID int64, feed string, now time.Time) error
	AddGuid(subscriptionID int64, guid uuid.UUID, now time.Time) error
}

type EventPublisher interface {
	PublishSubscribed(userID, subscriptionID int64, guid uuid.UUID)
	PublishUnsubscribed(userID, subscriptionID int64, guid uuid.UUID)
}

type Service struct {
	repo   DataProvider
	events EventPublisher
}

func NewService(r DataProvider, ep EventPublisher) *Service {
	return &Service{
		repo:   r,
		events: ep,
	}
}

// GetByID assembles the reconciled view of one subscription for one
// user: current feed from the feed history, canonical and current GUID
// from the guid history, subscribed state from the association row.
func (s *Service) GetByID(userID, subscriptionID int64) (*Reconciled, error) {
	us, err := s.repo.GetUserSubscription(userID, subscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get user subscription: %w", err)
	}

	feeds, err := s.repo.GetFeedHistory(subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("get feed history: %w", err)
	}

	guids, err := s.repo.GetGuidHistory(subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("get guid history: %w", err)
	}

	// A subscription without at least one feed and one guid row
	// cannot be presented. The write path never produces this, so
	// log it as a broken row rather than failing the request.
	if len(feeds) == 0 || len(guids) == 0 {
		log.Warn().
			Int64("subscription_id", subscriptionID).
			Int("feeds", len(feeds)).
			Int("guids", len(guids)).
			Msg("subscription has incomplete history")

		return nil, ErrNotFound
	}

	current := feeds[len(feeds)-1]
	if _, err := url.Parse(current.Feed); err != nil {
		return nil, fmt.Errorf("stored feed url unparseable: %d: %w", subscriptionID, err)
	}

	canonical := guids[0]
	newest := guids[len(guids)-1]

	var newGuid *uuid.UUID
	if newest.Guid != canonical.Guid {
		g := newest.Guid
		newGuid = &g
	}

	return &Reconciled{
		FeedURL:             current.Feed,
		Guid:                canonical.Guid,
		IsSubscribed:        us.Deleted == nil,
		SubscriptionChanged: us.Updated,
		NewGuid:             newGuid,
		GuidChanged:         newest.Updated,
		Deleted:             us.Deleted,
	}, nil
}

// GetByGUID resolves any historical GUID and delegates to GetByID.
// Unknown GUID and unpresentable data come back as the same ErrNotFound.
func (s *Service) GetByGUID(userID int64, guid uuid.UUID) (*Reconciled, error) {
	id, err := s.repo.GetIDByGUID(guid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("resolve guid: %w", err)
	}

	return s.GetByID(userID, id)
}

// List pages through the user's subscriptions, newest first. Items
// that fail to reconcile are skipped and logged instead of discarding
// the whole page. Total counts the returned items only.
func (s *Service) List(userID int64, page, perPage int64, since *time.Time) (ReconciledPage, error) {
	if page <= 0 {
		page = defaultPage
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	ids, err := s.repo.ListUserSubscriptionIDs(userID, int(page), int(perPage), since)
	if err != nil {
		return ReconciledPage{}, fmt.Errorf("list subscription ids: %w", err)
	}

	subscriptions := make([]Reconciled, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetByID(userID, id)
		if errors.Is(err, ErrNotFound) {
			log.Warn().
				Int64("user_id", userID).
				Int64("subscription_id", id).
				Msg("skipping unpresentable subscription")

			continue
		}

		if err != nil {
			return ReconciledPage{}, fmt.Errorf("reconcile %d: %w", id, err)
		}

		subscriptions = append(subscriptions, *rec)
	}

	return ReconciledPage{
		Total:         int64(len(subscriptions)),
		Page:          page,
		PerPage:       perPage,
		Subscriptions: subscriptions,
	}, nil
}

// Add subscribes the user to each requested feed, creating the
// subscription on first sight and reviving a previously removed
// association otherwise. Failures are reported per feed.
func (s *Service) Add(userID int64, feeds []FeedRequest) NewSubscriptions {
	res := NewSubscriptions{
		Success: make([]NewSubscription, 0, len(feeds)),
		Failure: make([]FailedSubscription, 0),
	}

	now := time.Now()

	for _, feed := range feeds {
		parsed, err := url.Parse(feed.FeedURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			res.Failure = append(res.Failure, FailedSubscription{
				FeedURL: feed.FeedURL,
				Message: "feed url is not valid",
			})

			continue
		}

		guid, err := s.subscribe(userID, feed, now)
		if err != nil {
			log.Error().Err(err).Str("feed", feed.FeedURL).Msg("subscribe")
			res.Failure = append(res.Failure, FailedSubscription{
				FeedURL: feed.FeedURL,
				Message: "subscription could not be stored",
			})

			continue
		}

		res.Success = append(res.Success, NewSubscription{
			FeedURL:             feed.FeedURL,
			Guid:                guid,
			IsSubscribed:        true,
			SubscriptionChanged: now,
		})
	}

	return res
}

// subscribe stores one feed for the user and returns the canonical
// GUID of the resulting subscription.
func (s *Service) subscribe(userID int64, feed FeedRequest, now time.Time) (uuid.UUID, error) {
	id, err := s.repo.GetIDByFeedURL(feed.FeedURL)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.UUID{}, fmt.Errorf("resolve feed url: %w", err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		guid := uuid.New()
		if feed.Guid != nil {
			guid = *feed.Guid
		}

		subID, err := s.repo.CreateWithHistory(userID, feed.FeedURL, guid, now)
		if err != nil {
			return uuid.UUID{}, fmt.Errorf("create subscription: %w", err)
		}

		s.events.PublishSubscribed(userID, subID, guid)

		return guid, nil
	}

	guids, err := s.repo.GetGuidHistory(id)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("get guid history: %w", err)
	}

	if len(guids) == 0 {
		return uuid.UUID{}, fmt.Errorf("subscription %d has no guid history", id)
	}

	canonical := guids[0].Guid

	us, err := s.repo.GetUserSubscription(userID, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.repo.CreateUserSubscription(userID, id, now); err != nil {
			return uuid.UUID{}, fmt.Errorf("create user subscription: %w", err)
		}
	case err != nil:
		return uuid.UUID{}, fmt.Errorf("get user subscription: %w", err)
	case us.Deleted != nil:
		if err := s.repo.Resubscribe(userID, id, now); err != nil {
			return uuid.UUID{}, fmt.Errorf("resubscribe: %w", err)
		}
	default:
		// already subscribed, nothing to change
		return canonical, nil
	}

	s.events.PublishSubscribed(userID, id, canonical)

	return canonical, nil
}

type UpdateRequest struct {
	NewFeedURL   string     `json:"new_feed_url"`
	NewGuid      *uuid.UUID `json:"new_guid"`
	IsSubscribed bool       `json:"is_subscribed"`
}

// Update records a feed migration and/or GUID reissue for the
// subscription addressed by guid, and flips the subscribed state when
// requested.
func (s *Service) Update(userID int64, guid uuid.UUID, req UpdateRequest) (*SubscriptionUpdate, error) {
	parsed, err := url.Parse(req.NewFeedURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, ErrValidation
	}

	id, err := s.repo.GetIDByGUID(guid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("resolve guid: %w", err)
	}

	us, err := s.repo.GetUserSubscription(userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get user subscription: %w", err)
	}

	now := time.Now()

	feeds, err := s.repo.GetFeedHistory(id)
	if err != nil {
		return nil, fmt.Errorf("get feed history: %w", err)
	}

	if len(feeds) == 0 || feeds[len(feeds)-1].Feed != req.NewFeedURL {
		if err := s.repo.AddFeed(id, req.NewFeedURL, now); err != nil {
			return nil, fmt.Errorf("add feed: %w", err)
		}
	}

	guids, err := s.repo.GetGuidHistory(id)
	if err != nil {
		return nil, fmt.Errorf("get guid history: %w", err)
	}

	if len(guids) == 0 {
		return nil, fmt.Errorf("subscription %d has no guid history", id)
	}

	canonical := guids[0].Guid

	if req.NewGuid != nil && *req.NewGuid != guids[len(guids)-1].Guid {
		if err := s.repo.AddGuid(id, *req.NewGuid, now); err != nil {
			return nil, fmt.Errorf("add guid: %w", err)
		}
	}

	switch {
	case !req.IsSubscribed && us.Deleted == nil:
		if err := s.repo.SetUnsubscribed(userID, id, now); err != nil {
			return nil, fmt.Errorf("unsubscribe: %w", err)
		}

		s.events.PublishUnsubscribed(userID, id, canonical)
	case req.IsSubscribed && us.Deleted != nil:
		if err := s.repo.Resubscribe(userID, id, now); err != nil {
			return nil, fmt.Errorf("resubscribe: %w", err)
		}

		s.events.PublishSubscribed(userID, id, canonical)
	}

	return &SubscriptionUpdate{
		NewFeedURL:   req.NewFeedURL,
		Guid:         canonical,
		IsSubscribed: req.IsSubscribed,
	}, nil
}
