package deletion

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/podsync-labs/podsync-storage/internal/subscription"
)

// ErrNotFound covers unknown GUIDs, subscriptions the caller never had
// and foreign task ids, without distinguishing them.
var ErrNotFound = errors.New("deletion target not found")

type TaskProvider interface {
	Create(*Task) error
	GetByIDAndUser(id, userID int64) (*Task, error)
}

type SubscriptionResolver interface {
	GetIDByGUID(guid uuid.UUID) (int64, error)
	GetUserSubscription(userID, subscriptionID int64) (*subscription.UserSubscription, error)
}

type Service struct {
	repo TaskProvider
	subs SubscriptionResolver
}

func NewService(r TaskProvider, sr SubscriptionResolver) *Service {
	return &Service{
		repo: r,
		subs: sr,
	}
}

// Create records a pending deletion task for the subscription behind
// guid. The caller must actually hold the subscription; unknown GUIDs
// and subscriptions belonging to someone else both come back as
// ErrNotFound with nothing persisted.
func (s *Service) Create(userID int64, guid uuid.UUID) (int64, error) {
	subID, err := s.subs.GetIDByGUID(guid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}

	if err != nil {
		return 0, fmt.Errorf("resolve guid: %w", err)
	}

	if _, err := s.subs.GetUserSubscription(userID, subID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}

		return 0, fmt.Errorf("get user subscription: %w", err)
	}

	task := Task{
		UserID:         userID,
		SubscriptionID: subID,
		Status:         StatusPending,
	}
	if err := s.repo.Create(&task); err != nil {
		return 0, fmt.Errorf("create deletion task: %w", err)
	}

	return task.ID, nil
}

// GetStatus returns the task view for the caller's own task.
func (s *Service) GetStatus(userID, taskID int64) (*StatusView, error) {
	task, err := s.repo.GetByIDAndUser(taskID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get deletion task: %w", err)
	}

	view := NewStatusView(task.ID, task.Status)

	return &view, nil
}
