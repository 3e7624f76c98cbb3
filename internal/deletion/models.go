package deletion

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Terminal reports whether a task may no longer change state.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Wire returns the status representation clients see.
func (s Status) Wire() string {
	return strings.ToUpper(string(s))
}

// Task is a durable record of a requested subscription removal. It is
// created pending and moved to exactly one terminal status by the
// worker.
type Task struct {
	ID int64 `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	UserID         int64 `gorm:"index"`
	SubscriptionID int64
	Status         Status
}

func (t *Task) TableName() string {
	return "task_deletions"
}

type Received struct {
	DeletionID int64  `json:"deletion_id"`
	Message    string `json:"message"`
}

func NewReceived(id int64) Received {
	return Received{
		DeletionID: id,
		Message:    "Deletion request was received and will be processed",
	}
}

type StatusView struct {
	DeletionID int64  `json:"deletion_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func NewStatusView(id int64, status Status) StatusView {
	return StatusView{
		DeletionID: id,
		Status:     status.Wire(),
		Message:    statusMessage(status),
	}
}

func statusMessage(status Status) string {
	switch status {
	case StatusSuccess:
		return "Subscription deleted successfully"
	case StatusPending:
		return "Deletion is pending"
	case StatusFailure:
		return "The deletion process encountered an error and was rolled back"
	default:
		return "Unknown deletion status"
	}
}
