package deletion

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/podsync-labs/podsync-storage/internal/metrics"
)

type WorkerRepo interface {
	GetPending(limit int) ([]Task, error)
	CountPending() (int64, error)
	MarkProcessed(id int64, to Status) (bool, error)
}

type Unsubscriber interface {
	SetUnsubscribed(userID, subscriptionID int64, now time.Time) error
}

type WorkerPublisher interface {
	PublishDeleted(userID, subscriptionID, taskID int64, status string)
}

// Worker drains pending deletion tasks: it performs the unsubscribe
// and settles each task in a terminal status. It is the only writer of
// task statuses.
type Worker struct {
	repo      WorkerRepo
	subs      Unsubscriber
	events    WorkerPublisher
	interval  time.Duration
	batchSize int
}

func NewWorker(r WorkerRepo, u Unsubscriber, ep WorkerPublisher, interval time.Duration, batchSize int) *Worker {
	return &Worker{
		repo:      r,
		subs:      u,
		events:    ep,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	for {
		if err := w.process(ctx); err != nil {
			log.Error().Err(err).Msg("process deletions")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.interval):
		}
	}
}

func (w *Worker) process(ctx context.Context) error {
	tasks, err := w.repo.GetPending(w.batchSize)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		w.processOne(task)
	}

	pending, err := w.repo.CountPending()
	if err != nil {
		return err
	}

	metrics.PendingDeletionsGauge.Set(float64(pending))

	return nil
}

func (w *Worker) processOne(task Task) {
	status := StatusSuccess

	err := w.subs.SetUnsubscribed(task.UserID, task.SubscriptionID, time.Now())
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// association vanished underneath the task, nothing left
		// to delete
		log.Warn().
			Int64("task_id", task.ID).
			Int64("subscription_id", task.SubscriptionID).
			Msg("deletion target no longer exists")

		status = StatusFailure
	case err != nil:
		log.Error().Err(err).Int64("task_id", task.ID).Msg("unsubscribe")

		status = StatusFailure
	}

	moved, err := w.repo.MarkProcessed(task.ID, status)
	if err != nil {
		log.Error().Err(err).Int64("task_id", task.ID).Msg("mark task processed")

		return
	}

	if !moved {
		log.Warn().Int64("task_id", task.ID).Msg("task already settled")

		return
	}

	metrics.CollectDeletionTask(string(status))
	w.events.PublishDeleted(task.UserID, task.SubscriptionID, task.ID, string(status))
}
