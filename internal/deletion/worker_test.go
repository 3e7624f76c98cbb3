package deletion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeWorkerRepo struct {
	tasks map[int64]*Task
}

func newFakeWorkerRepo(tasks ...*Task) *fakeWorkerRepo {
	f := &fakeWorkerRepo{tasks: make(map[int64]*Task)}
	for _, task := range tasks {
		f.tasks[task.ID] = task
	}

	return f
}

func (f *fakeWorkerRepo) GetPending(limit int) ([]Task, error) {
	pending := make([]Task, 0, limit)
	for _, task := range f.tasks {
		if task.Status == StatusPending && len(pending) < limit {
			pending = append(pending, *task)
		}
	}

	return pending, nil
}

func (f *fakeWorkerRepo) CountPending() (int64, error) {
	var count int64
	for _, task := range f.tasks {
		if task.Status == StatusPending {
			count++
		}
	}

	return count, nil
}

func (f *fakeWorkerRepo) MarkProcessed(id int64, to Status) (bool, error) {
	task, ok := f.tasks[id]
	if !ok || task.Status != StatusPending {
		return false, nil
	}

	task.Status = to

	return true, nil
}

type fakeUnsubscriber struct {
	err   error
	calls int
}

func (f *fakeUnsubscriber) SetUnsubscribed(int64, int64, time.Time) error {
	f.calls++

	return f.err
}

type fakeDeletionPublisher struct {
	published []string
}

func (f *fakeDeletionPublisher) PublishDeleted(_, _, _ int64, status string) {
	f.published = append(f.published, status)
}

func TestUnitWorkerSettlesPendingTask(t *testing.T) {
	repo := newFakeWorkerRepo(&Task{ID: 1, UserID: 7, SubscriptionID: 42, Status: StatusPending})
	unsub := &fakeUnsubscriber{}
	publisher := &fakeDeletionPublisher{}

	worker := NewWorker(repo, unsub, publisher, time.Second, 100)

	require.NoError(t, worker.process(context.Background()))
	require.Equal(t, StatusSuccess, repo.tasks[1].Status)
	require.Equal(t, 1, unsub.calls)
	require.Equal(t, []string{"success"}, publisher.published)
}

func TestUnitWorkerMarksFailureOnError(t *testing.T) {
	for name, unsubErr := range map[string]error{
		"storage error":  errors.New("connection refused"),
		"target missing": gorm.ErrRecordNotFound,
	} {
		t.Run(name, func(t *testing.T) {
			repo := newFakeWorkerRepo(&Task{ID: 1, UserID: 7, SubscriptionID: 42, Status: StatusPending})
			unsub := &fakeUnsubscriber{err: unsubErr}
			publisher := &fakeDeletionPublisher{}

			worker := NewWorker(repo, unsub, publisher, time.Second, 100)

			require.NoError(t, worker.process(context.Background()))
			require.Equal(t, StatusFailure, repo.tasks[1].Status)
			require.Equal(t, []string{"failure"}, publisher.published)
		})
	}
}

func TestUnitWorkerNeverRevertsTerminalStatus(t *testing.T) {
	repo := newFakeWorkerRepo(&Task{ID: 1, UserID: 7, SubscriptionID: 42, Status: StatusSuccess})
	unsub := &fakeUnsubscriber{}
	publisher := &fakeDeletionPublisher{}

	worker := NewWorker(repo, unsub, publisher, time.Second, 100)

	require.NoError(t, worker.process(context.Background()))
	require.Equal(t, StatusSuccess, repo.tasks[1].Status)
	require.Zero(t, unsub.calls)
	require.Empty(t, publisher.published)
}

func TestUnitWorkerSkipsAlreadySettledRace(t *testing.T) {
	task := &Task{ID: 1, UserID: 7, SubscriptionID: 42, Status: StatusPending}
	repo := newFakeWorkerRepo(task)
	publisher := &fakeDeletionPublisher{}

	worker := NewWorker(repo, &fakeUnsubscriber{}, publisher, time.Second, 100)

	// another worker settles the task after it was fetched
	pending, err := repo.GetPending(100)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	task.Status = StatusFailure

	worker.processOne(pending[0])

	require.Equal(t, StatusFailure, repo.tasks[1].Status)
	require.Empty(t, publisher.published)
}
